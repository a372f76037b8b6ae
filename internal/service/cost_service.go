package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
	"go.uber.org/zap"
)

var validate = validator.New()

// CostDashboard shows the backend's cost report and edits the budget
type CostDashboard struct {
	backend CostBackend
	feed    *NotificationFeed
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.RWMutex
	breakdown *domain.CostBreakdown
	lastError string
	fetchedAt *time.Time
}

// NewCostDashboard creates a new CostDashboard instance
func NewCostDashboard(backend CostBackend, feed *NotificationFeed, logger *zap.Logger) *CostDashboard {
	return &CostDashboard{
		backend: backend,
		feed:    feed,
		logger:  logger,
		now:     time.Now,
	}
}

// FetchBreakdown loads the cost report for the optional date range and
// replaces the displayed one. Backend errors are shown as the backend worded them.
func (s *CostDashboard) FetchBreakdown(ctx context.Context, req domain.CostBreakdownRequest) (*domain.CostBreakdown, error) {
	req.StartDate = strings.TrimSpace(req.StartDate)
	req.EndDate = strings.TrimSpace(req.EndDate)

	if err := validate.Struct(req); err != nil {
		verr := newValidationError("Invalid Input", "Dates must use the YYYY-MM-DD format.")
		s.feed.publishValidation(verr)
		return nil, verr
	}
	if req.StartDate != "" && req.EndDate != "" && req.StartDate > req.EndDate {
		verr := newValidationError("Invalid Input", "Start date must not be after end date.")
		s.feed.publishValidation(verr)
		return nil, verr
	}

	breakdown, err := s.fetch(ctx, req)
	if err != nil {
		berr := newBackendError(err, "Failed to fetch cost breakdown")
		s.mu.Lock()
		s.lastError = berr.Description
		s.mu.Unlock()
		s.feed.publishBackend(berr)
		return nil, berr
	}
	return breakdown, nil
}

// CheckBudget refreshes the full-range report without notifying on
// failure and reports whether the remaining budget is below threshold
func (s *CostDashboard) CheckBudget(ctx context.Context, threshold float64) (*domain.CostBreakdown, bool, error) {
	breakdown, err := s.fetch(ctx, domain.CostBreakdownRequest{})
	if err != nil {
		return nil, false, err
	}

	low := breakdown.RemainingBudget < threshold
	if low {
		s.feed.Error("Low Budget", fmt.Sprintf("Remaining budget is %.2f of %.2f.", breakdown.RemainingBudget, breakdown.TotalBudget))
		s.logger.Warn("remaining budget below threshold",
			zap.Float64("remaining_budget", breakdown.RemainingBudget),
			zap.Float64("threshold", threshold),
		)
	}
	return breakdown, low, nil
}

func (s *CostDashboard) fetch(ctx context.Context, req domain.CostBreakdownRequest) (*domain.CostBreakdown, error) {
	breakdown, err := s.backend.GetCostBreakdown(ctx, req)
	if err != nil {
		s.logger.Error("failed to fetch cost breakdown",
			zap.String("start_date", req.StartDate),
			zap.String("end_date", req.EndDate),
			zap.Error(err),
		)
		return nil, err
	}

	fetchedAt := s.now()
	s.mu.Lock()
	s.breakdown = breakdown
	s.lastError = ""
	s.fetchedAt = &fetchedAt
	s.mu.Unlock()

	remainingBudgetGauge.Set(breakdown.RemainingBudget)
	return breakdown, nil
}

// ParseBudget accepts a finite, strictly positive amount
func ParseBudget(amount string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0, newValidationError("Invalid Input", "Budget must be a positive number")
	}
	return value, nil
}

// UpdateBudget sets the total budget and patches only total_budget of the
// displayed report. remaining_budget stays as fetched until the next fetch.
func (s *CostDashboard) UpdateBudget(ctx context.Context, amount string) (*domain.BudgetUpdate, error) {
	value, err := ParseBudget(amount)
	if err != nil {
		if verr, ok := err.(*ValidationError); ok {
			s.feed.publishValidation(verr)
		}
		return nil, err
	}

	if err := validate.Struct(domain.UpdateBudgetRequest{TotalBudget: value}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	update, err := s.backend.UpdateBudget(ctx, value)
	if err != nil {
		berr := newBackendError(err, "Failed to update budget")
		s.feed.publishBackend(berr)
		s.logger.Error("failed to update budget", zap.Float64("total_budget", value), zap.Error(err))
		return nil, berr
	}

	s.mu.Lock()
	if s.breakdown != nil {
		patched := *s.breakdown
		patched.TotalBudget = update.TotalBudget
		s.breakdown = &patched
	}
	s.mu.Unlock()

	s.feed.Success("Success", "Budget updated successfully")
	s.logger.Info("budget updated", zap.Float64("total_budget", update.TotalBudget))
	return update, nil
}

// View returns the displayed report and last error
func (s *CostDashboard) View() domain.CostView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := domain.CostView{Error: s.lastError}
	if s.breakdown != nil {
		b := *s.breakdown
		view.Breakdown = &b
	}
	if s.fetchedAt != nil {
		t := *s.fetchedAt
		view.FetchedAt = &t
	}
	return view
}
