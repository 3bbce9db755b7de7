package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/observe"
)

// Repository is the persistence port. All operations are fallible and
// explicit; observation methods return streams that re-emit the current
// result set after every committed mutation.
type Repository interface {
	ObserveTransactions(ctx context.Context, f Filter) *observe.Stream[TransactionsUpdate]
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error

	ObserveTotal(ctx context.Context, typ core.TransactionType, r core.Range) *observe.Stream[TotalUpdate]

	ObserveCategories(ctx context.Context) *observe.Stream[CategoriesUpdate]
	GetCategory(ctx context.Context, id string) (core.Category, error)
	AddCategory(ctx context.Context, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// Filter narrows an observed transaction set. The zero value matches
// everything; set at most one of the narrowing fields.
type Filter struct {
	Range      *core.Range
	Type       core.TransactionType
	CategoryID string
}

// TransactionsUpdate is one element of an ObserveTransactions stream.
type TransactionsUpdate struct {
	Transactions []core.Transaction
	Err          error
}

// TotalUpdate is one element of an ObserveTotal stream.
type TotalUpdate struct {
	Total decimal.Decimal
	Err   error
}

// CategoriesUpdate is one element of an ObserveCategories stream.
type CategoriesUpdate struct {
	Categories []core.Category
	Err        error
}
