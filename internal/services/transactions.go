package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/observe"
	"fintrack/internal/storage"
)

// Transactions orchestrates transaction CRUD over the repository and
// publishes change events for the export worker. The event bus is optional;
// publish failures are logged and swallowed so a broker outage never fails
// a local write.
type Transactions struct {
	repo storage.Repository
	bus  *amqp.Client
}

func NewTransactions(repo storage.Repository, bus *amqp.Client) *Transactions {
	return &Transactions{repo: repo, bus: bus}
}

func (s *Transactions) Observe(ctx context.Context, f storage.Filter) *observe.Stream[storage.TransactionsUpdate] {
	return s.repo.ObserveTransactions(ctx, f)
}

func (s *Transactions) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Transactions) Add(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	stored, err := s.repo.AddTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	s.publish(ctx, stored.ID, amqp.ActionCreated)
	return stored, nil
}

func (s *Transactions) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	stored, err := s.repo.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.publish(ctx, stored.ID, amqp.ActionUpdated)
	return stored, nil
}

func (s *Transactions) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publish(ctx, id, amqp.ActionDeleted)
	return nil
}

func (s *Transactions) publish(ctx context.Context, id string, action amqp.Action) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(id, action)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"id", id, "action", action, "error", err)
	}
}
