package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/observe"
	"fintrack/internal/storage"
)

// fakeTotalsRepo hands out pre-built total streams so tests control the
// upstream emission order. Unused Repository methods panic if reached.
type fakeTotalsRepo struct {
	storage.Repository
	income  *observe.Stream[storage.TotalUpdate]
	expense *observe.Stream[storage.TotalUpdate]
}

func (f *fakeTotalsRepo) ObserveTotal(_ context.Context, typ core.TransactionType, _ core.Range) *observe.Stream[storage.TotalUpdate] {
	if typ == core.Income {
		return f.income
	}
	return f.expense
}

func testRange() core.Range {
	return core.Range{
		Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	}
}

func recvStats(t *testing.T, ch <-chan StatsUpdate) StatsUpdate {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stats update")
		return StatsUpdate{}
	}
}

func TestStats_Observe_CombineLatest(t *testing.T) {
	repo := &fakeTotalsRepo{
		income:  observe.NewStream[storage.TotalUpdate](),
		expense: observe.NewStream[storage.TotalUpdate](),
	}
	ctx := context.Background()

	out := NewStats(repo).Observe(ctx, testRange())
	defer out.Cancel()

	// One side alone must not produce an aggregate.
	repo.income.Send(ctx, storage.TotalUpdate{Total: decimal.NewFromInt(100)})
	select {
	case u := <-out.C():
		t.Fatalf("premature emission: %+v", u)
	case <-time.After(50 * time.Millisecond):
	}

	repo.expense.Send(ctx, storage.TotalUpdate{Total: decimal.NewFromInt(40)})
	first := recvStats(t, out.C())
	if first.Err != nil {
		t.Fatalf("unexpected error: %v", first.Err)
	}
	if !first.Stats.Balance.Equal(decimal.NewFromInt(60)) {
		t.Errorf("balance = %s, want 60", first.Stats.Balance)
	}

	// A fresh income value re-emits against the latest expense.
	repo.income.Send(ctx, storage.TotalUpdate{Total: decimal.NewFromInt(150)})
	second := recvStats(t, out.C())
	if !second.Stats.TotalIncome.Equal(decimal.NewFromInt(150)) ||
		!second.Stats.TotalExpense.Equal(decimal.NewFromInt(40)) {
		t.Errorf("stats = %+v, want income 150 against expense 40", second.Stats)
	}
	if !second.Stats.Balance.Equal(second.Stats.TotalIncome.Sub(second.Stats.TotalExpense)) {
		t.Error("balance must equal income - expense")
	}
}

func TestStats_Observe_ErrorAggregatesOnce(t *testing.T) {
	repo := &fakeTotalsRepo{
		income:  observe.NewStream[storage.TotalUpdate](),
		expense: observe.NewStream[storage.TotalUpdate](),
	}
	ctx := context.Background()

	out := NewStats(repo).Observe(ctx, testRange())
	defer out.Cancel()

	repo.income.Send(ctx, storage.TotalUpdate{Err: errors.New("disk gone")})
	repo.expense.Send(ctx, storage.TotalUpdate{Total: decimal.NewFromInt(5)})

	u := recvStats(t, out.C())
	if u.Err == nil {
		t.Fatal("expected aggregated failure")
	}
	if !strings.Contains(u.Err.Error(), "income total") {
		t.Errorf("error should name the failing side: %v", u.Err)
	}
}

func TestStats_Observe_RealRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	r := testRange()

	mustAdd(t, repo, txFixture("200", core.Income, "income_salary", r.Start))
	mustAdd(t, repo, txFixture("75.50", core.Expense, "expense_bills", r.Start))

	out := NewStats(repo).Observe(ctx, r)
	defer out.Cancel()

	u := recvStats(t, out.C())
	if u.Err != nil {
		t.Fatalf("stats error: %v", u.Err)
	}
	if want := decimal.RequireFromString("124.50"); !u.Stats.Balance.Equal(want) {
		t.Errorf("balance = %s, want %s", u.Stats.Balance, want)
	}
}
