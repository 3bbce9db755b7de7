package core

import "errors"

// Domain errors surfaced at the repository and conversion boundaries.
// Callers match with errors.Is; storage wraps them with query context.
var (
	// ErrNotFound reports a missing transaction.
	ErrNotFound = errors.New("transaction not found")

	// ErrCategoryNotFound reports a write referencing a category that does
	// not exist.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrCategoryDeleted reports a write referencing a soft-deleted category.
	ErrCategoryDeleted = errors.New("category is deleted")

	// ErrDefaultCategoryProtected guards the seeded default categories
	// against deletion.
	ErrDefaultCategoryProtected = errors.New("default category cannot be deleted")

	// ErrCategoryInUse guards categories that still have transactions
	// referencing them.
	ErrCategoryInUse = errors.New("category has existing transactions")

	// ErrProviderNotFound reports an empty exchange-rate registry. An
	// unknown provider id alone does not produce it; the registry falls
	// back to the first registered provider instead.
	ErrProviderNotFound = errors.New("no exchange rate provider available")

	// ErrNoRate reports a provider response that carried no usable rate.
	ErrNoRate = errors.New("no rate in provider response")
)
