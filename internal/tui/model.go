// Package tui provides an interactive terminal screen for reviewing pending
// ledger decisions.
package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/cli"
	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/confirm"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Resolver finalizes or discards pending decisions.
type Resolver interface {
	Confirm(ctx context.Context, req confirm.Request) (*model.LedgerEntry, error)
	Reject(ctx context.Context, transactionID string) error
}

// Config holds the review screen's dependencies.
type Config struct {
	Resolver   Resolver
	Logger     *slog.Logger
	Pending    []model.PendingDecision
	Categories []model.ExpenseCategory
	Width      int
	Height     int
}

type state int

const (
	stateReview state = iota
	stateCategory
	stateAmount
	stateDone
)

// Model is the bubbletea model of the review screen.
type Model struct {
	startTime  time.Time
	ctx        context.Context
	resolver   Resolver
	logger     *slog.Logger
	formatter  *cli.Formatter
	category   *string
	amount     *float64
	status     string
	statusErr  bool
	pending    []model.PendingDecision
	categories []model.ExpenseCategory
	input      textinput.Model
	theme      Theme
	keys       KeyMap
	stats      cli.ReviewStats
	index      int
	cursor     int
	width      int
	height     int
	state      state
	busy       bool
}

// New creates a review model over cfg.Pending.
func New(ctx context.Context, cfg Config) Model {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Width == 0 {
		cfg.Width = 80
	}
	if cfg.Height == 0 {
		cfg.Height = 24
	}

	ti := textinput.New()
	ti.Placeholder = "450 or 1,250.50"
	ti.Prompt = "₹ "
	ti.CharLimit = 20

	m := Model{
		ctx:        ctx,
		resolver:   cfg.Resolver,
		logger:     cfg.Logger,
		formatter:  cli.NewFormatter(cfg.Categories),
		pending:    cfg.Pending,
		categories: cfg.Categories,
		input:      ti,
		theme:      DefaultTheme,
		keys:       DefaultKeyMap(),
		width:      cfg.Width,
		height:     cfg.Height,
		startTime:  time.Now(),
	}
	if len(m.pending) == 0 {
		m.state = stateDone
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.state == stateDone {
		return tea.Quit
	}
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case resolvedMsg:
		return m.handleResolved(msg)
	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch m.state {
		case stateReview:
			return m.updateReview(msg)
		case stateCategory:
			return m.updateCategory(msg)
		case stateAmount:
			return m.updateAmount(msg)
		case stateDone:
			return m, tea.Quit
		}
	}
	return m, nil
}

// Stats returns the session's counts so far.
func (m Model) Stats() cli.ReviewStats {
	stats := m.stats
	stats.Duration = time.Since(m.startTime)
	return stats
}

func (m Model) current() model.PendingDecision {
	return m.pending[m.index]
}

func (m Model) effectiveCategory() string {
	if m.category != nil {
		return *m.category
	}
	return m.current().Record.Category
}

func (m Model) effectiveAmount() float64 {
	if m.amount != nil {
		return *m.amount
	}
	return m.current().Record.Amount
}

func (m Model) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.state = stateDone
		return m, tea.Quit
	case key.Matches(msg, m.keys.Accept):
		m.busy = true
		m.setStatus("Saving...", false)
		return m, confirmCmd(m.ctx, m.resolver, confirm.Request{
			TransactionID:     m.current().TransactionID,
			ConfirmedCategory: m.category,
			ConfirmedAmount:   m.amount,
		})
	case key.Matches(msg, m.keys.Category):
		m.state = stateCategory
		m.cursor = m.categoryIndex(m.effectiveCategory())
		return m, nil
	case key.Matches(msg, m.keys.Amount):
		m.state = stateAmount
		m.input.SetValue("")
		cmd := m.input.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Discard):
		m.busy = true
		m.setStatus("Discarding...", false)
		return m, rejectCmd(m.ctx, m.resolver, m.current().TransactionID)
	case key.Matches(msg, m.keys.Skip):
		m.stats.Reviewed++
		m.stats.Skipped++
		return m.advance()
	}
	return m, nil
}

func (m Model) updateCategory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.state = stateReview
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.categories)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Select):
		if len(m.categories) > 0 {
			selected := m.categories[m.cursor].Key
			m.category = &selected
			m.setStatus("Category set to "+m.formatter.Label(selected), false)
		}
		m.state = stateReview
	}
	return m, nil
}

func (m Model) updateAmount(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input.Blur()
		m.state = stateReview
		return m, nil
	case tea.KeyEnter:
		amount, err := cli.ParseAmount(m.input.Value())
		if err != nil {
			m.setStatus("Enter a positive amount, e.g. 450 or 1,250.50.", true)
			return m, nil
		}
		m.amount = &amount
		m.input.Blur()
		m.state = stateReview
		m.setStatus("Amount set to "+cli.FormatAmount(amount), false)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResolved(msg resolvedMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		m.logger.Warn("Failed to resolve pending decision",
			"transaction_id", msg.transactionID,
			"error", msg.err)
		m.setStatus(common.UserMessage(msg.err), true)
		return m, nil
	}

	m.stats.Reviewed++
	if msg.discarded {
		m.stats.Discarded++
		m.setStatus("Discarded "+msg.transactionID, false)
	} else {
		m.stats.Confirmed++
		if m.category != nil || m.amount != nil {
			m.stats.Corrected++
		}
		m.setStatus("Saved "+m.formatter.Label(msg.entry.Category)+" at "+cli.FormatAmount(msg.entry.Amount), false)
	}
	return m.advance()
}

func (m Model) advance() (tea.Model, tea.Cmd) {
	m.category = nil
	m.amount = nil
	m.index++
	if m.index >= len(m.pending) {
		m.state = stateDone
		return m, tea.Quit
	}
	m.state = stateReview
	return m, nil
}

func (m Model) categoryIndex(key string) int {
	for i, c := range m.categories {
		if c.Key == key {
			return i
		}
	}
	return 0
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}
