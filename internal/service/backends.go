package service

import (
	"context"

	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
)

// NumberBackend is the part of the calling backend NumberRegistry uses
type NumberBackend interface {
	ListNumbers(ctx context.Context) ([]domain.NumberMapping, error)
	AddNumber(ctx context.Context, in domain.AddNumberInput) (*domain.NumberMapping, error)
	UpdateText(ctx context.Context, id int64, textContent string) (*domain.NumberMapping, error)
	UpdateAudio(ctx context.Context, id int64, audio *domain.AudioFile) (*domain.NumberMapping, error)
	DeleteNumber(ctx context.Context, id int64) error
	ConfigureWebhook(ctx context.Context, phoneNumber string) error
}

// CallLogSource lists the call history
type CallLogSource interface {
	ListCallLogs(ctx context.Context) ([]domain.CallLogEntry, error)
}

// BlastSender sends one batch of a text blast
type BlastSender interface {
	SendBlast(ctx context.Context, message string, phoneNumbers []string) (*domain.SendBlastResult, error)
}

// BlastBackend is the part of the calling backend BlastDispatcher uses
type BlastBackend interface {
	CallLogSource
	BlastSender
}

// CostBackend is the part of the calling backend CostDashboard uses
type CostBackend interface {
	GetCostBreakdown(ctx context.Context, req domain.CostBreakdownRequest) (*domain.CostBreakdown, error)
	UpdateBudget(ctx context.Context, totalBudget float64) (*domain.BudgetUpdate, error)
}

// FilterStore persists custom recipient filters
type FilterStore interface {
	LoadFilters(ctx context.Context) ([]domain.CustomFilter, error)
	SaveFilters(ctx context.Context, filters []domain.CustomFilter) error
}
