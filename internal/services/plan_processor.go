package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"billetera/internal/core"
	"billetera/internal/ledger"
	"billetera/internal/log"
)

// Plan horizons.
const (
	HorizonDay   = "day"
	HorizonWeek  = "week"
	HorizonMonth = "month"
)

// PlanProcessor materializes plan rule occurrences for every stored ledger.
type PlanProcessor struct {
	ledgers     *LedgerService
	horizon     string
	concurrency int
	now         func() time.Time
}

func NewPlanProcessor(ledgers *LedgerService, horizon string, concurrency int) *PlanProcessor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PlanProcessor{
		ledgers:     ledgers,
		horizon:     horizon,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// expander returns the expansion for the configured horizon around iso.
func (p *PlanProcessor) expander(iso string) (Mutation, error) {
	switch p.horizon {
	case HorizonDay:
		return func(s core.LedgerState) core.LedgerState { return ledger.ExpandDay(s, iso) }, nil
	case HorizonWeek:
		return func(s core.LedgerState) core.LedgerState { return ledger.ExpandWeek(s, iso) }, nil
	case HorizonMonth:
		return func(s core.LedgerState) core.LedgerState { return ledger.ExpandMonth(s, iso) }, nil
	default:
		return nil, fmt.Errorf("unknown plan horizon: %s", p.horizon)
	}
}

// ExpandUser runs one expansion for userID and returns how many expenses
// it created.
func (p *PlanProcessor) ExpandUser(ctx context.Context, userID string) (int, error) {
	if p.ledgers == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	iso := core.DateToISO(p.now())
	expand, err := p.expander(iso)
	if err != nil {
		return 0, err
	}

	created := 0
	_, err = p.ledgers.Apply(ctx, userID, func(s core.LedgerState) core.LedgerState {
		next := expand(s)
		created = len(next.Expenses) - len(s.Expenses)
		return next
	})
	if err != nil {
		return 0, fmt.Errorf("expand plan for %s: %w", userID, err)
	}
	return created, nil
}

// ProcessAll expands the plan for every user, a bounded number at a time.
// A failing user is logged and skipped; the returned count is the number
// of expenses created across all users.
func (p *PlanProcessor) ProcessAll(ctx context.Context) (int, error) {
	ctx = log.StartTrace(ctx, "plan")
	if p.ledgers == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}
	if _, err := p.expander(""); err != nil {
		return 0, err
	}

	users, err := p.ledgers.Users(ctx)
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Expanding plan rules",
		log.FieldComponent, log.ComponentPlan,
		"users", len(users),
		"horizon", p.horizon,
		"date", core.DateToISO(p.now()))

	var total, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, userID := range users {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := p.ExpandUser(gctx, userID)
			if err != nil {
				failed.Add(1)
				slog.ErrorContext(gctx, "Failed to expand plan",
					log.FieldComponent, log.ComponentPlan,
					log.FieldUserID, userID,
					log.FieldError, err)
				return nil
			}
			if n > 0 {
				slog.InfoContext(gctx, "Created planned expenses",
					log.FieldComponent, log.ComponentPlan,
					log.FieldOperation, log.OpExpand,
					log.FieldUserID, userID,
					log.FieldCreated, n)
			}
			total.Add(int64(n))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(total.Load()), err
	}

	slog.InfoContext(ctx, "Plan expansion complete",
		log.FieldComponent, log.ComponentPlan,
		log.FieldCreated, total.Load(),
		"failed", failed.Load())

	return int(total.Load()), nil
}
