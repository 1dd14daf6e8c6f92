package tui

import (
	"fmt"
	"strings"

	"github.com/Shlokpalrecha/Finguru/internal/cli"
	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.state == stateDone {
		return m.renderDone()
	}

	var b strings.Builder
	b.WriteString(m.theme.Title.Render(fmt.Sprintf("%s Pending Review  %d of %d", cli.LedgerIcon, m.index+1, len(m.pending))))
	b.WriteString("\n")
	b.WriteString(m.formatter.Pending(m.current()))
	b.WriteString("\n\n")

	switch m.state {
	case stateCategory:
		b.WriteString(m.renderCategories())
	case stateAmount:
		b.WriteString(m.theme.Bold.Render("Corrected amount"))
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(m.theme.Help.Render("enter save • esc cancel"))
	default:
		b.WriteString(m.renderDecision())
	}

	if m.status != "" {
		style := m.theme.StatusSuccess
		if m.statusErr {
			style = m.theme.StatusError
		}
		if m.busy {
			style = m.theme.StatusPending
		}
		b.WriteString("\n\n")
		b.WriteString(style.Render(m.status))
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
}

func (m Model) renderDecision() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s at %s\n\n",
		m.theme.Normal.Render("Accept as"),
		m.theme.Bold.Render(m.formatter.Label(m.effectiveCategory())),
		m.theme.Bold.Render(cli.FormatAmount(m.effectiveAmount())))

	help := make([]string, 0, len(m.keys.ShortHelp()))
	for _, k := range m.keys.ShortHelp() {
		h := k.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	b.WriteString(m.theme.Help.Render(strings.Join(help, " • ")))
	return b.String()
}

func (m Model) renderCategories() string {
	visible := m.height - 16
	if visible < 5 {
		visible = 5
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := start + visible
	if end > len(m.categories) {
		end = len(m.categories)
	}

	var b strings.Builder
	b.WriteString(m.theme.Bold.Render("Choose a category"))
	b.WriteString("\n")
	for i := start; i < end; i++ {
		c := m.categories[i]
		line := fmt.Sprintf("%-24s %s", c.DisplayName, fmt.Sprintf("%g%% GST", c.GSTRate))
		if i == m.cursor {
			b.WriteString(m.theme.Selected.Render("▸ " + line))
		} else {
			b.WriteString(m.theme.Normal.Render("  " + line))
		}
		b.WriteString("\n")
	}
	b.WriteString(m.theme.Help.Render("↑/↓ move • enter select • esc back"))
	return b.String()
}

func (m Model) renderDone() string {
	stats := m.Stats()
	summary := fmt.Sprintf("  • Reviewed: %d\n", stats.Reviewed) +
		fmt.Sprintf("  • Confirmed: %d (%d corrected)\n", stats.Confirmed, stats.Corrected) +
		fmt.Sprintf("  • Discarded: %d\n", stats.Discarded) +
		fmt.Sprintf("  • Skipped: %d", stats.Skipped)
	return cli.RenderBox("Review Complete", summary) + "\n"
}
