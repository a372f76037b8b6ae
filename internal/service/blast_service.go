package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/thetyagiayush/warhol-ringmaster/internal/backend"
	"github.com/thetyagiayush/warhol-ringmaster/internal/config"
	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
	"github.com/thetyagiayush/warhol-ringmaster/internal/logger"
	"go.uber.org/zap"
)

// CalledFilterAll disables the called-number filter
const CalledFilterAll = "all"

var filterNumberSeparator = regexp.MustCompile(`[,\n]`)

// BlastOption customizes a BlastDispatcher
type BlastOption func(*BlastDispatcher)

// WithSleepFunc replaces the pause between batches
func WithSleepFunc(fn func(ctx context.Context, d time.Duration) error) BlastOption {
	return func(d *BlastDispatcher) {
		d.sleep = fn
	}
}

// BlastDispatcher builds the recipient list from call logs and sends a text
// blast to it in sequential, paced batches. One run at a time.
type BlastDispatcher struct {
	backend BlastBackend
	filters FilterStore
	feed    *NotificationFeed
	logger  *zap.Logger

	batchSize      int
	batchDelay     time.Duration
	maxLength      int
	abortOnFailure bool
	sleep          func(ctx context.Context, d time.Duration) error
	now            func() time.Time

	mu             sync.Mutex
	logs           []domain.CallLogEntry
	uniqueNumbers  []string
	customFilters  []domain.CustomFilter
	filtersLoaded  bool
	calledFilter   string
	customFilterID string
	selected       []string
	message        string
	status         domain.BlastStatus
	done           chan struct{}
}

// NewBlastDispatcher creates a new BlastDispatcher instance
func NewBlastDispatcher(
	backend BlastBackend,
	filters FilterStore,
	cfg *config.BlastConfig,
	feed *NotificationFeed,
	logger *zap.Logger,
	opts ...BlastOption,
) *BlastDispatcher {
	d := &BlastDispatcher{
		backend:        backend,
		filters:        filters,
		feed:           feed,
		logger:         logger,
		batchSize:      cfg.BatchSize,
		batchDelay:     cfg.BatchDelay(),
		maxLength:      cfg.MaxMessageLength,
		abortOnFailure: cfg.AbortOnFailure,
		sleep:          sleepContext,
		now:            time.Now,
		logs:           []domain.CallLogEntry{},
		uniqueNumbers:  []string{},
		customFilters:  []domain.CustomFilter{},
		calledFilter:   CalledFilterAll,
		selected:       []string{},
		status:         domain.BlastStatus{State: domain.BlastStateIdle},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh reloads call logs and custom filters, then resets the selection
// to the filtered recipients
func (d *BlastDispatcher) Refresh(ctx context.Context) (domain.RecipientView, error) {
	logs, err := d.backend.ListCallLogs(ctx)
	if err != nil {
		berr := newBackendError(err, "Failed to fetch call logs.")
		d.feed.publishBackend(berr)
		d.logger.Error("failed to fetch call logs for blast", zap.Error(err))
		return d.RecipientView(), berr
	}

	filters, ferr := d.filters.LoadFilters(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.logs = append([]domain.CallLogEntry(nil), logs...)
	d.uniqueNumbers = UniqueCallers(logs)
	if ferr != nil {
		d.filtersLoaded = false
		d.feed.Error("Error", "Failed to load custom filters.")
		d.logger.Warn("failed to load custom filters", zap.Error(ferr))
	} else {
		d.customFilters = filters
		d.filtersLoaded = true
	}
	if d.customFilterID != "" && d.findFilter(d.customFilterID) < 0 {
		d.customFilterID = ""
	}
	d.selected = d.filteredLocked()

	if ferr != nil {
		return d.viewLocked(), fmt.Errorf("%w: %v", ErrFilterStoreUnavailable, ferr)
	}
	return d.viewLocked(), nil
}

// LoadCustomFilters reads the stored custom filters, replacing the ones held
// in memory
func (d *BlastDispatcher) LoadCustomFilters(ctx context.Context) ([]domain.CustomFilter, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.filtersLoaded = false
	if err := d.ensureFiltersLocked(ctx); err != nil {
		return nil, err
	}
	return append([]domain.CustomFilter{}, d.customFilters...), nil
}

// ensureFiltersLocked loads the stored filters unless the in-memory list
// already mirrors them. SaveFilters replaces the stored list, so nothing is
// written until a load has succeeded.
func (d *BlastDispatcher) ensureFiltersLocked(ctx context.Context) error {
	if d.filtersLoaded {
		return nil
	}
	filters, err := d.filters.LoadFilters(ctx)
	if err != nil {
		d.logger.Warn("failed to load custom filters", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrFilterStoreUnavailable, err)
	}
	d.customFilters = filters
	d.filtersLoaded = true
	if d.customFilterID != "" && d.findFilter(d.customFilterID) < 0 {
		d.customFilterID = ""
		d.selected = d.filteredLocked()
	}
	return nil
}

// UniqueCallers returns every distinct caller number in order of first
// appearance, skipping anonymous callers
func UniqueCallers(logs []domain.CallLogEntry) []string {
	seen := make(map[string]struct{}, len(logs))
	out := make([]string, 0, len(logs))
	for _, e := range logs {
		if e.IsAnonymous() {
			continue
		}
		if _, ok := seen[e.PhoneNumber]; ok {
			continue
		}
		seen[e.PhoneNumber] = struct{}{}
		out = append(out, e.PhoneNumber)
	}
	return out
}

// CalledOptions lists every dialed number with its call count, in order of
// first appearance. Empty and anonymous values are skipped.
func CalledOptions(logs []domain.CallLogEntry) []domain.CalledNumberOption {
	index := make(map[string]int)
	out := []domain.CalledNumberOption{}
	for _, e := range logs {
		if e.Called == "" || domain.IsAnonymousNumber(e.Called) {
			continue
		}
		if i, ok := index[e.Called]; ok {
			out[i].Calls++
			continue
		}
		index[e.Called] = len(out)
		out = append(out, domain.CalledNumberOption{Number: e.Called, Calls: 1})
	}
	return out
}

// FilterRecipients narrows unique to callers who dialed called (unless it is
// "all" or empty) and to members of custom (when set)
func FilterRecipients(unique []string, logs []domain.CallLogEntry, called string, custom *domain.CustomFilter) []string {
	var dialed map[string]struct{}
	if called != "" && called != CalledFilterAll {
		dialed = make(map[string]struct{})
		for _, e := range logs {
			if e.Called == called {
				dialed[e.PhoneNumber] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(unique))
	for _, number := range unique {
		if dialed != nil {
			if _, ok := dialed[number]; !ok {
				continue
			}
		}
		if custom != nil && !custom.Contains(number) {
			continue
		}
		out = append(out, number)
	}
	return out
}

// RecipientView returns the current recipient state
func (d *BlastDispatcher) RecipientView() domain.RecipientView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewLocked()
}

// SetFilters changes both filters and resets the selection to the result.
// An empty called value means all; an empty custom filter id means none.
func (d *BlastDispatcher) SetFilters(called, customFilterID string) (domain.RecipientView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if customFilterID != "" && d.findFilter(customFilterID) < 0 {
		return d.viewLocked(), fmt.Errorf("custom filter %s: %w", customFilterID, ErrNotFound)
	}
	if called == "" {
		called = CalledFilterAll
	}

	d.calledFilter = called
	d.customFilterID = customFilterID
	d.selected = d.filteredLocked()
	return d.viewLocked(), nil
}

// Toggle flips one filtered number in or out of the selection.
// Newly selected numbers go to the end.
func (d *BlastDispatcher) Toggle(number string) (domain.RecipientView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !containsString(d.filteredLocked(), number) {
		return d.viewLocked(), fmt.Errorf("recipient %s: %w", number, ErrNotFound)
	}

	if i := indexString(d.selected, number); i >= 0 {
		d.selected = append(d.selected[:i], d.selected[i+1:]...)
	} else {
		d.selected = append(d.selected, number)
	}
	return d.viewLocked(), nil
}

// ToggleSelectAll empties the selection when it already equals the filtered
// set and selects exactly the filtered set otherwise
func (d *BlastDispatcher) ToggleSelectAll() domain.RecipientView {
	d.mu.Lock()
	defer d.mu.Unlock()

	filtered := d.filteredLocked()
	if sameSet(d.selected, filtered) {
		d.selected = []string{}
	} else {
		d.selected = filtered
	}
	return d.viewLocked()
}

// CustomFilters returns the stored custom filters in creation order, loading
// them first if needed
func (d *BlastDispatcher) CustomFilters(ctx context.Context) ([]domain.CustomFilter, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureFiltersLocked(ctx); err != nil {
		return nil, err
	}
	return append([]domain.CustomFilter{}, d.customFilters...), nil
}

// ParseFilterNumbers splits a comma or newline separated list, trimming
// entries and dropping empty ones
func ParseFilterNumbers(raw string) []string {
	parts := filterNumberSeparator.Split(raw, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CreateFilter adds a named custom filter and persists the whole list at once.
// The new filter is not applied.
func (d *BlastDispatcher) CreateFilter(ctx context.Context, name, rawNumbers string) (*domain.CustomFilter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		verr := newValidationError("Missing Filter Name", "Please provide a name for the filter.")
		d.feed.publishValidation(verr)
		return nil, verr
	}

	numbers := ParseFilterNumbers(rawNumbers)
	if len(numbers) == 0 {
		verr := newValidationError("No Phone Numbers", "Please provide at least one phone number.")
		d.feed.publishValidation(verr)
		return nil, verr
	}

	filter := domain.CustomFilter{
		ID:           ulid.Make().String(),
		Name:         name,
		PhoneNumbers: numbers,
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureFiltersLocked(ctx); err != nil {
		d.feed.Error("Error", "Failed to load custom filters.")
		return nil, err
	}

	next := append(append([]domain.CustomFilter{}, d.customFilters...), filter)
	if err := d.filters.SaveFilters(ctx, next); err != nil {
		d.logger.Error("failed to save custom filters", zap.String("name", name), zap.Error(err))
		d.feed.Error("Error", "Failed to save custom filter.")
		return nil, fmt.Errorf("%w: %v", ErrFilterStoreUnavailable, err)
	}

	d.customFilters = next
	d.selected = d.filteredLocked()

	d.feed.Success("Filter Created", fmt.Sprintf("Created filter %q with %d numbers.", name, len(numbers)))
	d.logger.Info("custom filter created",
		zap.String("filter_id", filter.ID),
		zap.String("name", name),
		zap.Int("numbers", len(numbers)),
	)
	return &filter, nil
}

// SetMessage stores the message draft
func (d *BlastDispatcher) SetMessage(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.message = message
}

// Message returns the message draft
func (d *BlastDispatcher) Message() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.message
}

// ValidateSend reports why the current draft cannot be sent, or nil
func (d *BlastDispatcher) ValidateSend() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.validateLocked()
}

func (d *BlastDispatcher) validateLocked() *ValidationError {
	trimmed := strings.TrimSpace(d.message)
	if trimmed == "" {
		return newValidationError("Missing Message", "Please enter a message to send.")
	}
	if len(d.selected) == 0 {
		return &ValidationError{
			Title:       "No Recipients Selected",
			Description: "Please select at least one recipient.",
			Err:         ErrNoRecipients,
		}
	}
	if utf8.RuneCountInString(trimmed) > d.maxLength {
		return &ValidationError{
			Title:       "Message Too Long",
			Description: fmt.Sprintf("SMS messages should be %d characters or less for optimal delivery.", d.maxLength),
			Err:         ErrMessageTooLong,
		}
	}
	return nil
}

// Start validates the draft and sends the blast in the background. The run
// is not tied to ctx: once started it goes on until it completes or fails.
func (d *BlastDispatcher) Start(ctx context.Context) (domain.BlastStatus, error) {
	plan, message, runID, err := d.begin()
	if err != nil {
		return d.Status(), err
	}

	go d.execute(context.Background(), plan, message, runID)
	return d.Status(), nil
}

// Dispatch validates the draft and sends the blast, returning when the run ends
func (d *BlastDispatcher) Dispatch(ctx context.Context) (*domain.BlastOutcome, error) {
	plan, message, runID, err := d.begin()
	if err != nil {
		return nil, err
	}

	outcome := d.execute(ctx, plan, message, runID)
	if plan.Aborted() {
		return &outcome, fmt.Errorf("batch %d of %d failed: %s", outcome.FailedBatch, outcome.TotalBatches, outcome.Error)
	}
	return &outcome, nil
}

// Wait blocks until the current run, if any, has finished
func (d *BlastDispatcher) Wait() {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Status returns the state of the current or last run
func (d *BlastDispatcher) Status() domain.BlastStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	status := d.status
	status.Message = d.message
	if status.LastOutcome != nil {
		outcome := *status.LastOutcome
		status.LastOutcome = &outcome
	}
	return status
}

func (d *BlastDispatcher) begin() (*BatchPlan, string, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.status.State == domain.BlastStateSending {
		return nil, "", "", ErrDispatchInProgress
	}
	if verr := d.validateLocked(); verr != nil {
		d.feed.publishValidation(verr)
		return nil, "", "", verr
	}

	recipients := append([]string{}, d.selected...)
	plan := NewBatchPlan(recipients, d.batchSize, d.abortOnFailure)
	runID := uuid.New().String()
	startedAt := d.now()

	d.status = domain.BlastStatus{
		State:        domain.BlastStateSending,
		RunID:        runID,
		TotalBatches: plan.Batches(),
		StartedAt:    &startedAt,
	}
	d.done = make(chan struct{})
	blastInProgressGauge.Set(1)

	return plan, strings.TrimSpace(d.message), runID, nil
}

func (d *BlastDispatcher) execute(ctx context.Context, plan *BatchPlan, message, runID string) domain.BlastOutcome {
	log := logger.WithBlast(d.logger, runID, countRecipients(plan), plan.Batches())
	log.Info("text blast started")

	var lastErr error
	for !plan.Done() {
		batch, index, _ := plan.Current()
		d.setCurrentBatch(index)

		start := time.Now()
		result, err := d.backend.SendBlast(ctx, message, batch)
		blastBatchDurationHist.Observe(time.Since(start).Seconds())
		if err == nil && result == nil {
			result = &domain.SendBlastResult{}
		}

		failure := ""
		if err != nil {
			lastErr = err
			failure = backend.UserMessage(err, "Failed to send text blast. Please try again.")
			blastBatchesCounter.WithLabelValues("error").Inc()
			log.Warn("text blast batch failed",
				zap.Int("batch", index),
				zap.Int("size", len(batch)),
				zap.Error(err),
			)
		} else {
			blastBatchesCounter.WithLabelValues("ok").Inc()
			blastMessagesCounter.WithLabelValues("sent").Add(float64(result.SentCount))
			blastMessagesCounter.WithLabelValues("failed").Add(float64(result.FailedCount))
			log.Debug("text blast batch sent",
				zap.Int("batch", index),
				zap.Int("sent", result.SentCount),
				zap.Int("failed", result.FailedCount),
			)
		}

		plan.Record(result, err, failure)
		d.setProgress(plan.Progress())

		if plan.HasNext() {
			if serr := d.sleep(ctx, d.batchDelay); serr != nil {
				lastErr = serr
				plan.Abort("Text blast interrupted.")
				log.Warn("text blast interrupted", zap.Error(serr))
				break
			}
		}
	}

	outcome := plan.Outcome()
	d.finish(plan, outcome, lastErr, log)
	return outcome
}

func (d *BlastDispatcher) finish(plan *BatchPlan, outcome domain.BlastOutcome, lastErr error, log *zap.Logger) {
	d.mu.Lock()
	defer d.mu.Unlock()

	finishedAt := d.now()
	d.status.FinishedAt = &finishedAt
	d.status.Progress = plan.Progress()
	d.status.LastOutcome = &outcome
	blastInProgressGauge.Set(0)

	if plan.Aborted() {
		d.status.State = domain.BlastStateFailed
		blastRunsCounter.WithLabelValues(string(domain.BlastStateFailed)).Inc()
		d.feed.Error("Error", fmt.Sprintf("%s Batch %d of %d failed after sending %d messages.",
			outcome.Error, outcome.FailedBatch, outcome.TotalBatches, outcome.SentCount))
		log.Error("text blast failed",
			zap.Int("failed_batch", outcome.FailedBatch),
			zap.Int("sent", outcome.SentCount),
			zap.Int("failed", outcome.FailedCount),
			zap.Error(lastErr),
		)
	} else {
		d.status.State = domain.BlastStateCompleted
		blastRunsCounter.WithLabelValues(string(domain.BlastStateCompleted)).Inc()
		switch {
		case outcome.FailedCount == 0:
			d.feed.Success("Text Blast Completed!", fmt.Sprintf("Successfully sent %d messages.", outcome.SentCount))
		case outcome.SentCount > 0:
			d.feed.Success("Text Blast Completed", fmt.Sprintf("Sent: %d, Failed: %d. Check details below.", outcome.SentCount, outcome.FailedCount))
		default:
			d.feed.Error("Text Blast Completed", fmt.Sprintf("Sent: %d, Failed: %d. Check details below.", outcome.SentCount, outcome.FailedCount))
		}
		if outcome.SentCount > 0 {
			d.message = ""
		}
		log.Info("text blast completed",
			zap.Int("sent", outcome.SentCount),
			zap.Int("failed", outcome.FailedCount),
		)
	}

	if d.done != nil {
		close(d.done)
	}
}

func (d *BlastDispatcher) setCurrentBatch(index int) {
	d.mu.Lock()
	d.status.CurrentBatch = index
	d.mu.Unlock()
}

func (d *BlastDispatcher) setProgress(progress int) {
	d.mu.Lock()
	d.status.Progress = progress
	d.mu.Unlock()
}

func (d *BlastDispatcher) filteredLocked() []string {
	var custom *domain.CustomFilter
	if i := d.findFilter(d.customFilterID); i >= 0 {
		custom = &d.customFilters[i]
	}
	return FilterRecipients(d.uniqueNumbers, d.logs, d.calledFilter, custom)
}

func (d *BlastDispatcher) viewLocked() domain.RecipientView {
	filtered := d.filteredLocked()
	customID := d.customFilterID
	return domain.RecipientView{
		UniqueNumbers:  append([]string{}, d.uniqueNumbers...),
		Filtered:       filtered,
		Selected:       append([]string{}, d.selected...),
		CalledFilter:   d.calledFilter,
		CustomFilterID: customID,
		CalledOptions:  CalledOptions(d.logs),
		CustomFilters:  append([]domain.CustomFilter{}, d.customFilters...),
		AllSelected:    len(filtered) > 0 && sameSet(d.selected, filtered),
		LargeBatch:     len(d.selected) > d.batchSize,
	}
}

func (d *BlastDispatcher) findFilter(id string) int {
	if id == "" {
		return -1
	}
	for i, f := range d.customFilters {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func countRecipients(plan *BatchPlan) int {
	total := 0
	for _, b := range plan.batches {
		total += len(b)
	}
	return total
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	return indexString(list, s) >= 0
}

func indexString(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// IsValidation reports whether err was rejected before reaching the backend
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
