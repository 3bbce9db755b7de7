// Package worker keeps the export target in step with local storage by
// consuming transaction change events.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/storage"
)

// SyncWorker applies transaction change events to an export mirror and can
// reconcile rows missed while the bus was down.
type SyncWorker struct {
	repo   storage.Repository
	mirror export.Mirror
}

func NewSyncWorker(repo storage.Repository, mirror export.Mirror) *SyncWorker {
	return &SyncWorker{
		repo:   repo,
		mirror: mirror,
	}
}

// HandleEvent processes a single change event from the bus.
func (w *SyncWorker) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"id", event.ID,
		"action", event.Action)

	switch event.Action {
	case amqp.ActionCreated:
		return w.mirrorTransaction(ctx, event.ID)

	case amqp.ActionUpdated:
		// Drop the old row first so the target never holds both versions.
		if err := w.mirror.Remove(ctx, event.ID); err != nil {
			return fmt.Errorf("remove stale row: %w", err)
		}
		return w.mirrorTransaction(ctx, event.ID)

	case amqp.ActionDeleted:
		if err := w.mirror.Remove(ctx, event.ID); err != nil {
			return fmt.Errorf("remove row: %w", err)
		}
		return nil

	default:
		slog.WarnContext(ctx, "Ignoring event with unknown action",
			"id", event.ID, "action", event.Action)
		return nil
	}
}

func (w *SyncWorker) mirrorTransaction(ctx context.Context, id string) error {
	t, err := w.repo.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted again before we got to it. The delete event will
		// clean up any row we would have written.
		slog.InfoContext(ctx, "Transaction gone from storage, skipping", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	ref, err := w.mirror.Append(ctx, t)
	if err != nil {
		return fmt.Errorf("append to mirror: %w", err)
	}

	slog.InfoContext(ctx, "Transaction mirrored", "id", id, "ref", ref)
	return nil
}

// Reconcile appends every stored transaction missing from the target. It is
// the backup path for events lost while the worker or the bus was down.
func (w *SyncWorker) Reconcile(ctx context.Context) error {
	mirrored, err := w.mirror.IDs(ctx)
	if err != nil {
		return fmt.Errorf("list mirrored ids: %w", err)
	}

	present := make(map[string]struct{}, len(mirrored))
	for _, id := range mirrored {
		present[id] = struct{}{}
	}

	transactions, err := w.snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot transactions: %w", err)
	}

	missing := 0
	for _, t := range transactions {
		if _, ok := present[t.ID]; ok {
			continue
		}
		if _, err := w.mirror.Append(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to reconcile transaction",
				"id", t.ID, "error", err)
			continue
		}
		missing++
	}

	if missing > 0 {
		slog.InfoContext(ctx, "Reconcile appended missing transactions", "count", missing)
	}
	return nil
}

// snapshot reads the current transaction set once.
func (w *SyncWorker) snapshot(ctx context.Context) ([]core.Transaction, error) {
	stream := w.repo.ObserveTransactions(ctx, storage.Filter{})
	defer stream.Cancel()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case update, ok := <-stream.C():
		if !ok {
			return nil, errors.New("transaction stream closed")
		}
		if update.Err != nil {
			return nil, update.Err
		}
		return update.Transactions, nil
	}
}
