package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// AnonymousCaller is the caller id the carrier reports for withheld numbers
const AnonymousCaller = "anonymous"

// NumberMapping is a phone number's greeting audio and follow-up SMS text.
// Owned by the calling backend.
type NumberMapping struct {
	ID          int64     `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	AudioURL    string    `json:"audio_url"`
	TextContent string    `json:"text_content"`
	CreatedAt   time.Time `json:"created_at"`
}

// NumberDraft is a local, uncommitted copy of a mapping produced by Duplicate.
// It never reaches the backend; Key identifies it inside the console only.
type NumberDraft struct {
	Key        string        `json:"key"`
	TemplateID int64         `json:"template_id"`
	Mapping    NumberMapping `json:"mapping"`
}

// CallLogEntry is one inbound call recorded by the backend
type CallLogEntry struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	Called      string    `json:"called,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsAnonymous reports whether the caller withheld their number
func (e CallLogEntry) IsAnonymous() bool {
	return IsAnonymousNumber(e.PhoneNumber)
}

// IsAnonymousNumber compares case-insensitively against the anonymous marker
func IsAnonymousNumber(number string) bool {
	return strings.EqualFold(number, AnonymousCaller)
}

// CustomFilter is a named, operator-defined set of numbers used to narrow
// blast recipients. It only exists in the console's local store.
type CustomFilter struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	PhoneNumbers []string `json:"phoneNumbers"`
}

// Contains reports whether number is part of the filter
func (f CustomFilter) Contains(number string) bool {
	for _, n := range f.PhoneNumbers {
		if n == number {
			return true
		}
	}
	return false
}

// CustomFilterRecord is the persisted row for a CustomFilter
type CustomFilterRecord struct {
	ID        string `gorm:"primaryKey;size:32"`
	Name      string `gorm:"not null"`
	Position  int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	Numbers   []CustomFilterNumber `gorm:"foreignKey:FilterID;constraint:OnDelete:CASCADE"`
}

func (CustomFilterRecord) TableName() string {
	return "custom_filters"
}

// CustomFilterNumber keeps one number of a filter with its original position
type CustomFilterNumber struct {
	FilterID    string `gorm:"primaryKey;size:32"`
	Position    int    `gorm:"primaryKey;autoIncrement:false"`
	PhoneNumber string `gorm:"not null"`
}

func (CustomFilterNumber) TableName() string {
	return "custom_filter_numbers"
}

// PhoneNumberCosts is the phone number section of a cost report. Each
// details entry is passed through untouched; the front end reads
// phone_number, call_stats and call_cost from it.
type PhoneNumberCosts struct {
	TotalNumbers int               `json:"total_numbers"`
	TotalCost    float64           `json:"total_cost"`
	Details      []json.RawMessage `json:"details"`
}

// CallCosts is the calls section; details carry phone_number, total_calls and cost
type CallCosts struct {
	TotalCost float64           `json:"total_cost"`
	Details   []json.RawMessage `json:"details"`
}

// SMSCosts is the SMS section; details carry phone_number and cost
type SMSCosts struct {
	TotalCost float64           `json:"total_cost"`
	Details   []json.RawMessage `json:"details"`
}

// CostBreakdown is the server-computed spend report. The console only renders
// it and patches TotalBudget after a budget update.
type CostBreakdown struct {
	PhoneNumbers    PhoneNumberCosts `json:"phone_numbers"`
	Calls           CallCosts        `json:"calls"`
	SMS             SMSCosts         `json:"sms"`
	TotalSpend      float64          `json:"total_spend"`
	TotalBudget     float64          `json:"total_budget"`
	RemainingBudget float64          `json:"remaining_budget"`
}
