package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLite {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testTransaction(amount string, typ core.TransactionType, categoryID string, date time.Time) core.Transaction {
	return core.Transaction{
		ID:       uuid.NewString(),
		Type:     typ,
		Amount:   decimal.RequireFromString(amount),
		Currency: "EUR",
		Category: core.Category{ID: categoryID},
		Date:     date,
		Notes:    "test",
	}
}

func recvTransactions(t *testing.T, ch <-chan TransactionsUpdate) TransactionsUpdate {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transactions update")
		return TransactionsUpdate{}
	}
}

func recvTotal(t *testing.T, ch <-chan TotalUpdate) TotalUpdate {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for total update")
		return TotalUpdate{}
	}
}

func TestSQLite_SeedIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "fintrack.db")

	for i := 0; i < 2; i++ {
		repo, err := NewSQLite(dbPath)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}

		stream := repo.ObserveCategories(context.Background())
		update := <-stream.C()
		stream.Cancel()
		if update.Err != nil {
			t.Fatalf("observe categories: %v", update.Err)
		}
		if len(update.Categories) != len(core.DefaultCategories) {
			t.Errorf("open %d: %d categories, want %d", i, len(update.Categories), len(core.DefaultCategories))
		}
		repo.Close()
	}
}

func TestSQLite_AddThenGetRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	in := testTransaction("42.99", core.Expense, "expense_groceries", date)

	stored, err := repo.AddTransaction(ctx, in)
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if stored.Category.Name != "Groceries" {
		t.Errorf("stored category name = %q, want joined Groceries", stored.Category.Name)
	}
	if stored.CreatedAt.IsZero() || stored.UpdatedAt.IsZero() {
		t.Error("timestamps must be set on insert")
	}

	got, err := repo.GetTransaction(ctx, in.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.ID != stored.ID || got.Notes != stored.Notes || got.Currency != stored.Currency {
		t.Errorf("fetched %+v, want %+v", got, stored)
	}
	if !got.Amount.Equal(stored.Amount) {
		t.Errorf("amount = %s, want %s", got.Amount, stored.Amount)
	}
	if !got.Date.Equal(stored.Date) {
		t.Errorf("date = %v, want %v", got.Date, stored.Date)
	}
}

func TestSQLite_AddTransaction_CategoryGuards(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	date := time.Now().UTC()

	t.Run("unknown category", func(t *testing.T) {
		_, err := repo.AddTransaction(ctx, testTransaction("10", core.Expense, "missing", date))
		if !errors.Is(err, core.ErrCategoryNotFound) {
			t.Errorf("err = %v, want ErrCategoryNotFound", err)
		}
	})

	t.Run("soft-deleted category", func(t *testing.T) {
		custom := core.Category{ID: "custom_pets", Name: "Pets", Type: core.Expense}
		if _, err := repo.AddCategory(ctx, custom); err != nil {
			t.Fatalf("AddCategory: %v", err)
		}
		if err := repo.DeleteCategory(ctx, custom.ID); err != nil {
			t.Fatalf("DeleteCategory: %v", err)
		}

		_, err := repo.AddTransaction(ctx, testTransaction("10", core.Expense, custom.ID, date))
		if !errors.Is(err, core.ErrCategoryDeleted) {
			t.Errorf("err = %v, want ErrCategoryDeleted", err)
		}
	})
}

func TestSQLite_DeleteTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tx := testTransaction("10", core.Income, "income_salary", time.Now().UTC())
	if _, err := repo.AddTransaction(ctx, tx); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	if err := repo.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteTransaction(ctx, "never-existed"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("delete missing = %v, want ErrNotFound", err)
	}
}

func TestSQLite_DeleteCategory_Guards(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("default protected", func(t *testing.T) {
		err := repo.DeleteCategory(ctx, "expense_groceries")
		if !errors.Is(err, core.ErrDefaultCategoryProtected) {
			t.Errorf("err = %v, want ErrDefaultCategoryProtected", err)
		}
	})

	t.Run("in use", func(t *testing.T) {
		custom := core.Category{ID: "custom_gym", Name: "Gym", Type: core.Expense}
		if _, err := repo.AddCategory(ctx, custom); err != nil {
			t.Fatalf("AddCategory: %v", err)
		}
		tx := testTransaction("25", core.Expense, custom.ID, time.Now().UTC())
		if _, err := repo.AddTransaction(ctx, tx); err != nil {
			t.Fatalf("AddTransaction: %v", err)
		}

		if err := repo.DeleteCategory(ctx, custom.ID); !errors.Is(err, core.ErrCategoryInUse) {
			t.Errorf("err = %v, want ErrCategoryInUse", err)
		}

		// Once the last reference goes away the delete succeeds.
		if err := repo.DeleteTransaction(ctx, tx.ID); err != nil {
			t.Fatalf("DeleteTransaction: %v", err)
		}
		if err := repo.DeleteCategory(ctx, custom.ID); err != nil {
			t.Fatalf("DeleteCategory after unreference: %v", err)
		}

		// Gone from listings, still resolvable for history.
		stream := repo.ObserveCategories(ctx)
		defer stream.Cancel()
		update := <-stream.C()
		for _, c := range update.Categories {
			if c.ID == custom.ID {
				t.Error("soft-deleted category still listed")
			}
		}
		got, err := repo.GetCategory(ctx, custom.ID)
		if err != nil {
			t.Fatalf("GetCategory after soft delete: %v", err)
		}
		if !got.Deleted {
			t.Error("category should carry the deleted flag")
		}
	})

	t.Run("missing", func(t *testing.T) {
		err := repo.DeleteCategory(ctx, "nope")
		if !errors.Is(err, core.ErrCategoryNotFound) {
			t.Errorf("err = %v, want ErrCategoryNotFound", err)
		}
	})
}

func TestSQLite_ObserveTransactions_EmitsOnChange(t *testing.T) {
	repo := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := repo.ObserveTransactions(ctx, Filter{})
	defer stream.Cancel()

	first := recvTransactions(t, stream.C())
	if first.Err != nil || len(first.Transactions) != 0 {
		t.Fatalf("initial snapshot = %+v, want empty", first)
	}

	tx := testTransaction("5", core.Expense, "expense_bills", time.Now().UTC())
	if _, err := repo.AddTransaction(ctx, tx); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	second := recvTransactions(t, stream.C())
	if second.Err != nil {
		t.Fatalf("update error: %v", second.Err)
	}
	if len(second.Transactions) != 1 || second.Transactions[0].ID != tx.ID {
		t.Errorf("update = %+v, want the inserted transaction", second.Transactions)
	}
}

func TestSQLite_ObserveTotal_InclusiveRangeByType(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	r := core.Range{
		Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	}

	seed := []core.Transaction{
		testTransaction("100.50", core.Income, "income_salary", r.Start),   // on start bound
		testTransaction("49.50", core.Income, "income_bonus", r.End),       // on end bound
		testTransaction("30", core.Expense, "expense_bills", r.Start),      // other type
		testTransaction("999", core.Income, "income_salary", r.End.Add(time.Hour)), // outside
	}
	for _, tx := range seed {
		if _, err := repo.AddTransaction(ctx, tx); err != nil {
			t.Fatalf("AddTransaction: %v", err)
		}
	}

	stream := repo.ObserveTotal(ctx, core.Income, r)
	defer stream.Cancel()

	update := recvTotal(t, stream.C())
	if update.Err != nil {
		t.Fatalf("total error: %v", update.Err)
	}
	if want := decimal.RequireFromString("150"); !update.Total.Equal(want) {
		t.Errorf("income total = %s, want %s", update.Total, want)
	}
}
