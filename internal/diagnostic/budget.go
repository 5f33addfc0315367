package diagnostic

import (
	"context"
	"errors"
	"time"
)

// Cancelled is returned when ctx is done before analysis completes.
var Cancelled = errors.New("diagnostic: analysis cancelled")

// Timeout marks a Report as having been cut short by the analysis budget;
// it is not a fatal error — Run returns the best-effort partial Report
// alongside it (spec §5).
var Timeout = errors.New("diagnostic: analysis budget exceeded")

// budgetClock tracks elapsed time against cfg.AnalysisBudgetMs and the
// caller's context. Run checks it at four points: before step 1, before
// step 2, before the regression analyzer inside step 2, and before step 3;
// steps 4 to 10 run without a further check.
type budgetClock struct {
	ctx      context.Context
	deadline time.Time
	enabled  bool
}

func newBudgetClock(ctx context.Context, start time.Time, budgetMs int64) *budgetClock {
	if budgetMs <= 0 {
		return &budgetClock{ctx: ctx}
	}
	return &budgetClock{ctx: ctx, deadline: start.Add(time.Duration(budgetMs) * time.Millisecond), enabled: true}
}

// check returns Cancelled if ctx is done, or Timeout if the budget has
// elapsed; nil otherwise. Callers treat Timeout as non-fatal (stop and
// return partial results) and Cancelled as fatal (propagate immediately).
func (b *budgetClock) check(now time.Time) error {
	if b.ctx != nil {
		select {
		case <-b.ctx.Done():
			return Cancelled
		default:
		}
	}
	if b.enabled && now.After(b.deadline) {
		return Timeout
	}
	return nil
}
