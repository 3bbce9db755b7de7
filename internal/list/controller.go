// Package list owns the transaction list screen's state machine: the
// Loading/Success/Error state stream, the soft-delete/undo flow with its
// single pending-delete slot, and the side-effect signals the UI reacts to.
package list

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// Controller coordinates the transaction stream and the stats stream into
// one observable state. Dispatch is synchronous: when it returns, the state
// transition for the event has been applied (stream emissions for Refresh
// arrive asynchronously as storage reports).
//
// The pending-delete slot holds at most one transaction awaiting commit. A
// second SoftDelete replaces the slot, orphaning the first undo window, and
// HardDelete deletes whatever the slot holds regardless of its advisory id.
type Controller struct {
	transactions *services.Transactions
	stats        *services.Stats
	currency     string
	now          func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	state         State
	pending       *core.Transaction
	cancelRefresh context.CancelFunc

	states  chan State
	effects chan Effect
}

func New(ctx context.Context, transactions *services.Transactions, stats *services.Stats, currency string) *Controller {
	ctx, cancel := context.WithCancel(ctx)
	return &Controller{
		transactions: transactions,
		stats:        stats,
		currency:     currency,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
		state:        Loading{},
		states:       make(chan State, 1),
		effects:      make(chan Effect, 16),
	}
}

// States delivers state transitions latest-wins: a slow consumer only ever
// misses intermediate states, never the current one.
func (c *Controller) States() <-chan State {
	return c.states
}

// Current returns the state as of the last transition.
func (c *Controller) Current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Effects() <-chan Effect {
	return c.effects
}

// Close cancels the live subscription and stops the controller.
func (c *Controller) Close() {
	c.cancel()
}

func (c *Controller) Dispatch(event Event) {
	switch e := event.(type) {
	case Refresh:
		c.refresh()
	case TransactionClicked:
		c.emit(NavigateToDetails{ID: e.ID})
	case AddClicked:
		c.emit(NavigateToAdd{})
	case SoftDelete:
		c.softDelete(e.ID)
	case Undo:
		c.undo()
	case HardDelete:
		c.hardDelete(e.ID)
	}
}

// refresh replaces the active subscription (latest-wins) and re-enters
// Loading until the combined stream emits.
func (c *Controller) refresh() {
	c.mu.Lock()
	if c.cancelRefresh != nil {
		c.cancelRefresh()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelRefresh = cancel
	c.mu.Unlock()

	c.push(Loading{})

	txStream := c.transactions.Observe(ctx, storage.Filter{})
	statsStream := c.stats.Observe(ctx, core.MonthToDate(c.now()))

	go func() {
		defer txStream.Cancel()
		defer statsStream.Cancel()

		var (
			txs                []core.Transaction
			stats              core.Stats
			haveTxs, haveStats bool
		)

		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-txStream.C():
				if !ok {
					return
				}
				if u.Err != nil {
					c.push(Error{Message: u.Err.Error()})
					continue
				}
				txs, haveTxs = u.Transactions, true
			case u, ok := <-statsStream.C():
				if !ok {
					return
				}
				if u.Err != nil {
					c.push(Error{Message: u.Err.Error()})
					continue
				}
				stats, haveStats = u.Stats, true
			}

			if haveTxs && haveStats {
				c.push(Success{
					Transactions: txs,
					TotalIncome:  c.format(stats.TotalIncome),
					TotalExpense: c.format(stats.TotalExpense),
					Balance:      c.format(stats.Balance),
				})
			}
		}
	}()
}

// softDelete hides the transaction from the visible list and arms the undo
// window. Totals stay as they were until the next refresh: the transient
// mismatch between list and totals is the screen's documented behavior.
func (c *Controller) softDelete(id string) {
	tx, err := c.transactions.Get(c.ctx, id)
	if err != nil {
		c.push(Error{Message: err.Error()})
		return
	}

	c.mu.Lock()
	if c.pending != nil {
		slog.Warn("Replacing pending delete, previous undo window orphaned",
			"previous", c.pending.ID, "next", id)
	}
	c.pending = &tx

	if cur, ok := c.state.(Success); ok {
		remaining := make([]core.Transaction, 0, len(cur.Transactions))
		for _, t := range cur.Transactions {
			if t.ID != id {
				remaining = append(remaining, t)
			}
		}
		cur.Transactions = remaining
		c.state = cur
		c.mu.Unlock()
		c.push(cur)
	} else {
		c.mu.Unlock()
	}

	c.emit(ShowUndoPrompt{ID: id, Message: "Transaction deleted"})
}

// undo discards the pending delete and reloads the authoritative list,
// which restores the hidden row. No-op when nothing is pending.
func (c *Controller) undo() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if pending == nil {
		return
	}

	c.refresh()
	c.emit(ShowMessage{Message: "Transaction restored"})
}

// hardDelete commits the pending delete. The event's id parameter is
// advisory only; the slot decides what is deleted.
func (c *Controller) hardDelete(advisoryID string) {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if pending == nil {
		slog.Warn("Hard delete with empty pending slot", "advisory_id", advisoryID)
		return
	}
	if advisoryID != "" && advisoryID != pending.ID {
		slog.Warn("Hard delete id disagrees with pending slot, slot wins",
			"advisory_id", advisoryID, "pending_id", pending.ID)
	}

	err := c.transactions.Delete(c.ctx, pending.ID)
	c.refresh()
	if err != nil {
		c.emit(ShowMessage{Message: fmt.Sprintf("Failed to delete transaction: %v", err)})
		return
	}
	c.emit(ShowMessage{Message: "Transaction deleted successfully"})
}

// push records the state and publishes it latest-wins.
func (c *Controller) push(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()

	for {
		select {
		case c.states <- s:
			return
		default:
			select {
			case <-c.states:
			default:
			}
		}
	}
}

// emit never blocks Dispatch: if the UI is not draining effects, the
// oldest unconsumed signal is dropped.
func (c *Controller) emit(e Effect) {
	select {
	case c.effects <- e:
	default:
		slog.Warn("Effect channel full, dropping oldest effect")
		select {
		case <-c.effects:
		default:
		}
		select {
		case c.effects <- e:
		default:
		}
	}
}

func (c *Controller) format(amount decimal.Decimal) string {
	return c.currency + " " + amount.StringFixed(2)
}
