package domain

import "time"

// ============================================================================
// Calling backend contract
// ============================================================================

// Envelope is the wrapper every calling backend response carries
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AudioFile is an uploaded greeting held in memory until it is forwarded
type AudioFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AddNumberInput carries the three fields required to register a number
type AddNumberInput struct {
	PhoneNumber string     `json:"phone_number" validate:"required"`
	TextContent string     `json:"text_content" validate:"required"`
	Audio       *AudioFile `json:"-" validate:"required"`
}

// UpdateTextRequest is the body of PUT /update-text/{id}
type UpdateTextRequest struct {
	TextContent string `json:"text_content" validate:"required"`
}

// ConfigureWebhookRequest is the body of POST /configure-webhook
type ConfigureWebhookRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// SendBlastRequest is the body of one POST /send-blast (one batch)
type SendBlastRequest struct {
	Message      string   `json:"message"`
	PhoneNumbers []string `json:"phone_numbers"`
}

// BlastDelivery is a per-recipient success entry of a send-blast response
type BlastDelivery struct {
	PhoneNumber string `json:"phone_number"`
	Status      string `json:"status"`
	MessageSID  string `json:"message_sid"`
}

// BlastFailure is a per-recipient failure entry of a send-blast response
type BlastFailure struct {
	PhoneNumber string `json:"phone_number"`
	Status      string `json:"status,omitempty"`
	Error       string `json:"error"`
}

// SendBlastResult is the data of a send-blast response
type SendBlastResult struct {
	SentCount   int             `json:"sent_count"`
	FailedCount int             `json:"failed_count"`
	Results     []BlastDelivery `json:"results"`
	Errors      []BlastFailure  `json:"errors"`
}

// CostBreakdownRequest bounds the cost report; both dates are optional
type CostBreakdownRequest struct {
	StartDate string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateBudgetRequest is the body of POST /update-budget
type UpdateBudgetRequest struct {
	TotalBudget float64 `json:"total_budget" validate:"gt=0"`
}

// BudgetUpdate is the data of an update-budget response
type BudgetUpdate struct {
	TotalBudget float64 `json:"total_budget"`
}

// ============================================================================
// Console API
// ============================================================================

// UpdateBudgetInput is the console form: the raw text the operator typed
type UpdateBudgetInput struct {
	Amount string `json:"amount"`
}

// CreateCustomFilterRequest creates a filter from a comma/newline separated list
type CreateCustomFilterRequest struct {
	Name         string `json:"name"`
	PhoneNumbers string `json:"phoneNumbers"`
}

// RecipientFiltersRequest selects the called-number and custom filters.
// Empty values mean "all" and "none" respectively.
type RecipientFiltersRequest struct {
	Called         string `json:"called"`
	CustomFilterID string `json:"customFilterId"`
}

// ToggleRecipientRequest flips one number in the selection
type ToggleRecipientRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
}

// BlastMessageRequest sets the message draft
type BlastMessageRequest struct {
	Message string `json:"message"`
}

// CalledNumberOption is one entry of the called-number filter
type CalledNumberOption struct {
	Number string `json:"number"`
	Calls  int    `json:"calls"`
}

// RecipientView is everything the blast screen renders about recipients
type RecipientView struct {
	UniqueNumbers  []string             `json:"uniqueNumbers"`
	Filtered       []string             `json:"filtered"`
	Selected       []string             `json:"selected"`
	CalledFilter   string               `json:"calledFilter"`
	CustomFilterID string               `json:"customFilterId"`
	CalledOptions  []CalledNumberOption `json:"calledOptions"`
	CustomFilters  []CustomFilter       `json:"customFilters"`
	AllSelected    bool                 `json:"allSelected"`
	LargeBatch     bool                 `json:"largeBatch"`
}

// BlastState is the dispatcher's run state
type BlastState string

const (
	BlastStateIdle      BlastState = "idle"
	BlastStateSending   BlastState = "sending"
	BlastStateCompleted BlastState = "completed"
	BlastStateFailed    BlastState = "failed"
)

// BlastOutcome summarizes one dispatch, successful or not
type BlastOutcome struct {
	SentCount        int             `json:"sent_count"`
	FailedCount      int             `json:"failed_count"`
	Results          []BlastDelivery `json:"results"`
	Errors           []BlastFailure  `json:"errors"`
	BatchesCompleted int             `json:"batches_completed"`
	TotalBatches     int             `json:"total_batches"`
	// FailedBatch is the 1-based batch that aborted the run, 0 when none did
	FailedBatch int    `json:"failed_batch,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BlastStatus is the polled view of the dispatcher
type BlastStatus struct {
	State        BlastState    `json:"state"`
	RunID        string        `json:"run_id,omitempty"`
	CurrentBatch int           `json:"current_batch"`
	TotalBatches int           `json:"total_batches"`
	Progress     int           `json:"progress"`
	Message      string        `json:"message"`
	LastOutcome  *BlastOutcome `json:"last_outcome,omitempty"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
}

// CallLogViewMode selects between the raw log and one row per caller
type CallLogViewMode string

const (
	CallLogViewLatest CallLogViewMode = "latest"
	CallLogViewAll    CallLogViewMode = "all"
)

// NotificationLevel mirrors toast variants
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "default"
	NotificationError   NotificationLevel = "destructive"
)

// Notification is one transient operator message
type Notification struct {
	ID          uint64            `json:"id"`
	Level       NotificationLevel `json:"variant"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at"`
}

// CostView is the cost screen: the last fetched report, if any, and the
// error of the last failed fetch
type CostView struct {
	Breakdown *CostBreakdown `json:"breakdown,omitempty"`
	Error     string         `json:"error,omitempty"`
	FetchedAt *time.Time     `json:"fetched_at,omitempty"`
}
