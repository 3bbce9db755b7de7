package list

import "fintrack/internal/core"

// State is the tagged union consumed by the transaction list screen.
// Exactly one of Loading, Success or Error is current at any time.
type State interface{ isState() }

type Loading struct{}

type Success struct {
	Transactions []core.Transaction
	TotalIncome  string
	TotalExpense string
	Balance      string
}

type Error struct{ Message string }

func (Loading) isState() {}
func (Success) isState() {}
func (Error) isState()   {}

// Event is a discrete input from the UI layer.
type Event interface{ isEvent() }

// Refresh (re)subscribes to the combined transactions+stats stream,
// replacing any live subscription.
type Refresh struct{}

// TransactionClicked and AddClicked are pure navigation signals.
type TransactionClicked struct{ ID string }
type AddClicked struct{}

// SoftDelete optimistically hides a transaction and opens an undo window.
type SoftDelete struct{ ID string }

// Undo restores the pending soft-deleted transaction, if any.
type Undo struct{}

// HardDelete commits the pending delete when the undo window expires. The
// id is advisory: the transaction held in the pending slot is the one
// deleted, mirroring the screen's single-undo design.
type HardDelete struct{ ID string }

func (Refresh) isEvent()            {}
func (TransactionClicked) isEvent() {}
func (AddClicked) isEvent()         {}
func (SoftDelete) isEvent()         {}
func (Undo) isEvent()               {}
func (HardDelete) isEvent()         {}

// Effect is a one-shot side signal for the UI: navigation requests and
// snackbar prompts.
type Effect interface{ isEffect() }

type NavigateToDetails struct{ ID string }
type NavigateToAdd struct{}

// ShowUndoPrompt carries the hidden transaction's id so the UI can arm an
// undo action against it.
type ShowUndoPrompt struct {
	ID      string
	Message string
}

type ShowMessage struct{ Message string }

func (NavigateToDetails) isEffect() {}
func (NavigateToAdd) isEffect()     {}
func (ShowUndoPrompt) isEffect()    {}
func (ShowMessage) isEffect()       {}
