package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shlokpalrecha/Finguru/internal/cli"
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the review screen until every decision is handled or the user
// quits, and returns the session's counts.
func Run(ctx context.Context, cfg Config, opts ...tea.ProgramOption) (cli.ReviewStats, error) {
	if cfg.Resolver == nil {
		return cli.ReviewStats{}, errors.New("tui: resolver is required")
	}

	m := New(ctx, cfg)
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return m.Stats(), fmt.Errorf("review screen failed: %w", err)
	}
	if fm, ok := final.(Model); ok {
		return fm.Stats(), ctx.Err()
	}
	return m.Stats(), ctx.Err()
}
