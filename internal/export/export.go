// Package export defines the outbound port for mirroring transactions to
// an external target. The worker drives it from AMQP change events.
package export

import (
	"context"

	"fintrack/internal/core"
)

// Mirror appends and removes transaction rows on the export target.
type Mirror interface {
	// Append writes one transaction and returns a target-specific row
	// reference.
	Append(ctx context.Context, t core.Transaction) (rowRef string, err error)

	// Remove deletes the row for the given transaction id. Removing an id
	// that was never mirrored is not an error.
	Remove(ctx context.Context, id string) error

	// IDs lists the transaction ids currently present on the target. The
	// worker uses it to reconcile rows missed while the bus was down.
	IDs(ctx context.Context) ([]string, error)
}
