package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	// TransactionType distinguishes money coming in from money going out.
	TransactionType string

	// Category labels a transaction. Default categories are seeded at
	// storage initialization and cannot be deleted; custom ones are
	// soft-deleted so historical transactions keep resolving.
	Category struct {
		ID      string
		Name    string
		Type    TransactionType
		IconURL string
		Color   string
		Deleted bool
	}

	// Transaction is a single income or expense record. Amount is always a
	// positive magnitude; the sign is implied by Type.
	Transaction struct {
		ID        string
		Type      TransactionType
		Amount    decimal.Decimal
		Currency  string
		Category  Category
		Date      time.Time
		Notes     string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Stats is derived per observation and never persisted.
	Stats struct {
		TotalIncome  decimal.Decimal
		TotalExpense decimal.Decimal
		Balance      decimal.Decimal
	}

	// Range is an inclusive date interval [Start, End].
	Range struct {
		Start time.Time
		End   time.Time
	}
)

var (
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrEmptyCurrency = errors.New("empty currency code")
	ErrEmptyCategory = errors.New("empty category id")
	ErrZeroDate      = errors.New("date cannot be zero")
	ErrEmptyName     = errors.New("empty category name")
	ErrInvalidRange  = errors.New("range end before start")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Currency) == "" {
		return ErrEmptyCurrency
	}
	if strings.TrimSpace(t.Category.ID) == "" {
		return ErrEmptyCategory
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrZeroDate
	}
	if r.End.Before(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Contains reports whether ts falls within the inclusive range.
func (r Range) Contains(ts time.Time) bool {
	return !ts.Before(r.Start) && !ts.After(r.End)
}

// NewStats derives the balance from the two totals.
func NewStats(income, expense decimal.Decimal) Stats {
	return Stats{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income.Sub(expense),
	}
}

// MonthToDate is the default window shown on the transaction list: from the
// first of the current month up to now.
func MonthToDate(now time.Time) Range {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Range{Start: start, End: now}
}
