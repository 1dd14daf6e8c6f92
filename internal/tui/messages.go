package tui

import "github.com/Shlokpalrecha/Finguru/internal/model"

// resolvedMsg reports the result of confirming or discarding a decision.
type resolvedMsg struct {
	err           error
	entry         *model.LedgerEntry
	transactionID string
	discarded     bool
}
