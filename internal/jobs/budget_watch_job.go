package jobs

import (
	"context"
	"time"

	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
	"go.uber.org/zap"
)

// BudgetWatchJobName is the scheduler name of the budget watch
const BudgetWatchJobName = "budget_watch"

// DefaultBudgetWatchTimeout bounds a run when none is configured
const DefaultBudgetWatchTimeout = 30 * time.Second

// BudgetChecker refreshes the cost snapshot and reports whether the remaining
// budget is under threshold.
type BudgetChecker interface {
	CheckBudget(ctx context.Context, threshold float64) (*domain.CostBreakdown, bool, error)
}

// BudgetWatchJob periodically refreshes the cost dashboard so operators see a
// current snapshot and a warning when money is running out.
type BudgetWatchJob struct {
	checker   BudgetChecker
	threshold float64
	timeout   time.Duration
	logger    *zap.Logger
}

func NewBudgetWatchJob(checker BudgetChecker, threshold float64, timeout time.Duration, logger *zap.Logger) *BudgetWatchJob {
	if timeout <= 0 {
		timeout = DefaultBudgetWatchTimeout
	}
	return &BudgetWatchJob{
		checker:   checker,
		threshold: threshold,
		timeout:   timeout,
		logger:    logger,
	}
}

// Run is invoked by the scheduler
func (j *BudgetWatchJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	breakdown, low, err := j.checker.CheckBudget(ctx, j.threshold)
	if err != nil {
		j.logger.Error("budget watch refresh failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("budget watch refreshed",
		zap.Float64("total_spend", breakdown.TotalSpend),
		zap.Float64("remaining_budget", breakdown.RemainingBudget),
		zap.Bool("below_threshold", low),
		zap.Duration("duration", time.Since(start)))
}
