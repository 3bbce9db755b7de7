package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/observe"
	"fintrack/internal/storage"
)

// StatsUpdate is one element of a Stats.Observe stream. Err set means the
// whole aggregate failed for that emission; there is no partial success.
type StatsUpdate struct {
	Stats core.Stats
	Err   error
}

// Stats derives income/expense/balance totals for a date range by
// combining the two per-type total streams with combine-latest semantics:
// a new value on either side re-emits using the freshest value of the
// other. Nothing is emitted until both sides have reported once.
type Stats struct {
	repo storage.Repository
}

func NewStats(repo storage.Repository) *Stats {
	return &Stats{repo: repo}
}

func (s *Stats) Observe(ctx context.Context, r core.Range) *observe.Stream[StatsUpdate] {
	out := observe.NewStream[StatsUpdate]()

	income := s.repo.ObserveTotal(ctx, core.Income, r)
	expense := s.repo.ObserveTotal(ctx, core.Expense, r)

	go func() {
		defer out.Close()
		defer income.Cancel()
		defer expense.Cancel()

		var (
			totalIncome, totalExpense decimal.Decimal
			incomeErr, expenseErr     error
			haveIncome, haveExpense   bool
		)

		emit := func() bool {
			if !haveIncome || !haveExpense {
				return true
			}
			switch {
			case incomeErr != nil:
				return out.Send(ctx, StatsUpdate{Err: fmt.Errorf("income total: %w", incomeErr)})
			case expenseErr != nil:
				return out.Send(ctx, StatsUpdate{Err: fmt.Errorf("expense total: %w", expenseErr)})
			default:
				return out.Send(ctx, StatsUpdate{Stats: core.NewStats(totalIncome, totalExpense)})
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-out.Done():
				return
			case u, ok := <-income.C():
				if !ok {
					return
				}
				totalIncome, incomeErr, haveIncome = u.Total, u.Err, true
				if !emit() {
					return
				}
			case u, ok := <-expense.C():
				if !ok {
					return
				}
				totalExpense, expenseErr, haveExpense = u.Total, u.Err, true
				if !emit() {
					return
				}
			}
		}
	}()

	return out
}
