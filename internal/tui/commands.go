package tui

import (
	"context"

	"github.com/Shlokpalrecha/Finguru/internal/confirm"
	tea "github.com/charmbracelet/bubbletea"
)

func confirmCmd(ctx context.Context, r Resolver, req confirm.Request) tea.Cmd {
	return func() tea.Msg {
		entry, err := r.Confirm(ctx, req)
		return resolvedMsg{transactionID: req.TransactionID, entry: entry, err: err}
	}
}

func rejectCmd(ctx context.Context, r Resolver, transactionID string) tea.Cmd {
	return func() tea.Msg {
		err := r.Reject(ctx, transactionID)
		return resolvedMsg{transactionID: transactionID, discarded: true, err: err}
	}
}
