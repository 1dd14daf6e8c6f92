package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatAmount renders a rupee amount with digit grouping.
func FormatAmount(amount float64) string {
	return printer.Sprintf("₹%.2f", amount)
}

// FormatConfidence renders a 0-1 confidence as a percentage.
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%.0f%%", c*100)
}

// Formatter renders domain values, labeling categories with display names.
type Formatter struct {
	names map[string]string
}

// NewFormatter creates a Formatter for the given categories.
func NewFormatter(cats []model.ExpenseCategory) *Formatter {
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		if c.DisplayName != "" {
			names[c.Key] = c.DisplayName
		}
	}
	return &Formatter{names: names}
}

// Label returns the display name of a category key.
func (f *Formatter) Label(key string) string {
	if name, ok := f.names[key]; ok {
		return name
	}
	return key
}

func sourceIcon(s model.Source) string {
	if s == model.SourceVoice {
		return VoiceIcon
	}
	return ReceiptIcon
}

// Entry renders one committed entry as a box.
func (f *Formatter) Entry(e model.LedgerEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", sourceIcon(e.Source), BoldStyle.Render(f.Label(e.Category)))
	fmt.Fprintf(&b, "  Date:        %s\n", e.Date)
	fmt.Fprintf(&b, "  Amount:      %s\n", FormatAmount(e.Amount))
	fmt.Fprintf(&b, "  GST:         %s @ %g%%\n", FormatAmount(e.GSTAmount), e.GSTRate)
	fmt.Fprintf(&b, "  Confidence:  %s\n", FormatConfidence(e.Confidence))
	if e.VendorName != "" {
		fmt.Fprintf(&b, "  Vendor:      %s\n", e.VendorName)
	}
	if e.VendorGSTIN != "" {
		fmt.Fprintf(&b, "  GSTIN:       %s\n", e.VendorGSTIN)
	}
	fmt.Fprintf(&b, "  ID:          %s\n", SubtleStyle.Render(e.TransactionID))
	fmt.Fprintf(&b, "\n%s", e.Explanation)
	return RenderBox("Ledger Entry", b.String())
}

// Pending renders a decision awaiting confirmation as a box.
func (f *Formatter) Pending(d model.PendingDecision) string {
	r := d.Record
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", sourceIcon(d.Signal.Source), WarningStyle.Render(d.Reason))
	fmt.Fprintf(&b, "  Text:        %s\n", truncate(d.Signal.RawText, 60))
	fmt.Fprintf(&b, "  Category:    %s", f.Label(r.Category))
	if r.OracleCategory != "" && r.OracleCategory != r.Category {
		fmt.Fprintf(&b, " %s", SubtleStyle.Render("(suggested: "+r.OracleCategory+")"))
	}
	if r.MatchedCategory != "" && r.MatchedCategory != r.Category {
		fmt.Fprintf(&b, " %s", SubtleStyle.Render(fmt.Sprintf("(keyword %q: %s)", r.MatchedKeyword, r.MatchedCategory)))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Amount:      %s\n", FormatAmount(r.Amount))
	fmt.Fprintf(&b, "  GST:         %s @ %g%%\n", FormatAmount(r.GSTAmount), r.GSTRate)
	fmt.Fprintf(&b, "  Confidence:  %s\n", FormatConfidence(r.Confidence))
	fmt.Fprintf(&b, "  Expires:     %s\n", d.ExpiresAt.Local().Format("Jan 2 15:04"))
	fmt.Fprintf(&b, "  ID:          %s\n", SubtleStyle.Render(d.TransactionID))
	fmt.Fprintf(&b, "\n%s", r.Explanation)
	return RenderBox("Needs Confirmation", b.String())
}

// EntryTable renders entries as a table.
func (f *Formatter) EntryTable(entries []model.LedgerEntry) string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			e.Date,
			f.Label(e.Category),
			FormatAmount(e.Amount),
			FormatAmount(e.GSTAmount),
			string(e.Source),
			FormatConfidence(e.Confidence),
			e.TransactionID,
		}
	}
	return renderTable([]string{"Date", "Category", "Amount", "GST", "Source", "Conf", "ID"}, rows)
}

// PendingTable renders pending decisions as a table.
func (f *Formatter) PendingTable(list []model.PendingDecision, now time.Time) string {
	rows := make([][]string, len(list))
	for i, d := range list {
		rows[i] = []string{
			d.TransactionID,
			d.Reason,
			f.Label(d.Record.Category),
			FormatAmount(d.Record.Amount),
			FormatConfidence(d.Record.Confidence),
			d.ExpiresAt.Sub(now).Round(time.Minute).String(),
		}
	}
	return renderTable([]string{"ID", "Reason", "Category", "Amount", "Conf", "Expires in"}, rows)
}

// Summary renders a daily summary.
func (f *Formatter) Summary(s *model.Summary) string {
	var b strings.Builder
	b.WriteString(f.breakdown(s.ByCategory, s.GSTByCategory))
	fmt.Fprintf(&b, "\n%s %s  GST %s  (%d entries)",
		BoldStyle.Render("Total"), FormatAmount(s.TotalAmount), FormatAmount(s.TotalGST), s.EntryCount)
	return RenderBox(ChartIcon+" Summary for "+s.Date, b.String())
}

// RangeSummary renders a summary over a date range.
func (f *Formatter) RangeSummary(s *model.RangeSummary) string {
	var b strings.Builder
	b.WriteString(f.breakdown(s.ByCategory, s.GSTByCategory))
	if len(s.BySource) > 0 {
		b.WriteString("\n")
		for _, src := range []model.Source{model.SourceReceipt, model.SourceVoice} {
			if amount, ok := s.BySource[src]; ok {
				fmt.Fprintf(&b, "%s %-10s %s\n", sourceIcon(src), src, FormatAmount(amount))
			}
		}
	}
	fmt.Fprintf(&b, "\n%s %s  GST %s  (%d entries)",
		BoldStyle.Render("Total"), FormatAmount(s.TotalAmount), FormatAmount(s.TotalGST), s.EntryCount)
	return RenderBox(fmt.Sprintf("%s Summary %s to %s", ChartIcon, s.StartDate, s.EndDate), b.String())
}

func (f *Formatter) breakdown(amounts, gst map[string]float64) string {
	if len(amounts) == 0 {
		return SubtleStyle.Render("No entries.") + "\n"
	}
	keys := make([]string, 0, len(amounts))
	for k := range amounts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if amounts[keys[i]] != amounts[keys[j]] {
			return amounts[keys[i]] > amounts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{f.Label(k), FormatAmount(amounts[k]), FormatAmount(gst[k])}
	}
	return renderTable([]string{"Category", "Amount", "GST"}, rows)
}

// Insight renders an accountant-style digest.
func (f *Formatter) Insight(in *model.Insight) string {
	var b strings.Builder
	b.WriteString(in.Summary)
	b.WriteString("\n")
	if len(in.Tips) > 0 {
		b.WriteString("\n" + BoldStyle.Render("Tips") + "\n")
		for _, tip := range in.Tips {
			fmt.Fprintf(&b, "  • %s\n", tip)
		}
	}
	return RenderBox(ChartIcon+" Insights", strings.TrimRight(b.String(), "\n"))
}

// Categories renders the accounting specification.
func (f *Formatter) Categories(cats []model.ExpenseCategory, fallback string) string {
	rows := make([][]string, len(cats))
	for i, c := range cats {
		name := c.DisplayName
		if c.Key == fallback {
			name += " " + SubtleStyle.Render("(fallback)")
		}
		rows[i] = []string{c.Key, name, fmt.Sprintf("%g%%", c.GSTRate), truncate(strings.Join(c.Keywords, ", "), 50)}
	}
	return renderTable([]string{"Key", "Name", "GST", "Keywords"}, rows)
}

func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	renderRow := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = TableCellStyle.Width(widths[i] + 2).Render(c)
		}
		return style.Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	}

	lines := []string{renderRow(headers, TableHeaderStyle)}
	for _, row := range rows {
		lines = append(lines, renderRow(row, lipgloss.NewStyle()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
