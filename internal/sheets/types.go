package sheets

import (
	"sort"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/service"
	"github.com/shopspring/decimal"
)

// Tab names in the exported spreadsheet.
const (
	TabLedger   = "Ledger"
	TabSummary  = "Category Summary"
	TabGSTSlabs = "GST Slabs"
)

// Tabs lists the report tabs in display order.
var Tabs = []string{TabLedger, TabSummary, TabGSTSlabs}

// LedgerRow represents a single row in the Ledger tab.
type LedgerRow struct {
	Date          string
	TransactionID string
	Vendor        string
	VendorGSTIN   string
	Category      string
	Source        string
	Explanation   string
	Amount        decimal.Decimal
	GSTAmount     decimal.Decimal
	GSTRate       float64
	Confidence    float64
}

// CategorySummaryRow represents a single row in the Category Summary tab.
type CategorySummaryRow struct {
	Category    string
	DisplayName string
	TotalAmount decimal.Decimal
	TotalGST    decimal.Decimal
	GSTRate     float64
	EntryCount  int
}

// GSTSlabRow aggregates entries sharing one GST rate.
type GSTSlabRow struct {
	Taxable    decimal.Decimal
	Tax        decimal.Decimal
	Rate       float64
	EntryCount int
}

// Report holds all the data for one spreadsheet export.
type Report struct {
	DateRange   service.DateRange
	TotalAmount decimal.Decimal
	TotalGST    decimal.Decimal
	Entries     []LedgerRow
	Categories  []CategorySummaryRow
	Slabs       []GSTSlabRow
}

// BuildReport aggregates ledger entries into report tabs. Categories follow
// the specification's declaration order; entries are oldest first; slabs are
// ordered by rate.
func BuildReport(entries []model.LedgerEntry, categories []model.ExpenseCategory, dateRange service.DateRange) *Report {
	report := &Report{
		DateRange:   dateRange,
		TotalAmount: decimal.Zero,
		TotalGST:    decimal.Zero,
		Entries:     make([]LedgerRow, 0, len(entries)),
	}

	displayNames := make(map[string]string, len(categories))
	byCategory := make(map[string]*CategorySummaryRow, len(categories))
	order := make([]string, 0, len(categories))
	for _, cat := range categories {
		displayNames[cat.Key] = cat.DisplayName
		byCategory[cat.Key] = &CategorySummaryRow{
			Category:    cat.Key,
			DisplayName: cat.DisplayName,
			GSTRate:     cat.GSTRate,
			TotalAmount: decimal.Zero,
			TotalGST:    decimal.Zero,
		}
		order = append(order, cat.Key)
	}
	slabs := make(map[float64]*GSTSlabRow)

	sorted := make([]model.LedgerEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].CreatedAt < sorted[j].CreatedAt
	})

	for _, e := range sorted {
		amount := decimal.NewFromFloat(e.Amount)
		tax := decimal.NewFromFloat(e.GSTAmount)

		report.Entries = append(report.Entries, LedgerRow{
			Date:          e.Date,
			TransactionID: e.TransactionID,
			Vendor:        e.VendorName,
			VendorGSTIN:   e.VendorGSTIN,
			Category:      e.Category,
			Source:        string(e.Source),
			Explanation:   e.Explanation,
			Amount:        amount,
			GSTAmount:     tax,
			GSTRate:       e.GSTRate,
			Confidence:    e.Confidence,
		})
		report.TotalAmount = report.TotalAmount.Add(amount)
		report.TotalGST = report.TotalGST.Add(tax)

		row, ok := byCategory[e.Category]
		if !ok {
			// Entries may predate a specification change that removed their category.
			name := displayNames[e.Category]
			if name == "" {
				name = e.Category
			}
			row = &CategorySummaryRow{
				Category:    e.Category,
				DisplayName: name,
				GSTRate:     e.GSTRate,
				TotalAmount: decimal.Zero,
				TotalGST:    decimal.Zero,
			}
			byCategory[e.Category] = row
			order = append(order, e.Category)
		}
		row.TotalAmount = row.TotalAmount.Add(amount)
		row.TotalGST = row.TotalGST.Add(tax)
		row.EntryCount++

		slab, ok := slabs[e.GSTRate]
		if !ok {
			slab = &GSTSlabRow{Rate: e.GSTRate, Taxable: decimal.Zero, Tax: decimal.Zero}
			slabs[e.GSTRate] = slab
		}
		slab.Taxable = slab.Taxable.Add(amount)
		slab.Tax = slab.Tax.Add(tax)
		slab.EntryCount++
	}

	for _, key := range order {
		if row := byCategory[key]; row.EntryCount > 0 {
			report.Categories = append(report.Categories, *row)
		}
	}

	for _, slab := range slabs {
		report.Slabs = append(report.Slabs, *slab)
	}
	sort.Slice(report.Slabs, func(i, j int) bool {
		return report.Slabs[i].Rate < report.Slabs[j].Rate
	})

	return report
}

// Title returns the report heading for its date range.
func (r *Report) Title() string {
	return "GST Expense Ledger " + formatRange(r.DateRange)
}

func formatRange(dr service.DateRange) string {
	const layout = "2 Jan 2006"
	if dr.Start.IsZero() && dr.End.IsZero() {
		return "(all dates)"
	}
	if dr.Start.IsZero() {
		return "up to " + dr.End.Format(layout)
	}
	if dr.End.IsZero() {
		return "from " + dr.Start.Format(layout)
	}
	return dr.Start.Format(layout) + " - " + dr.End.Format(layout)
}

// formatDate renders a ledger date for a sheet cell; unparsable dates pass through.
func formatDate(date string) string {
	if d, err := time.Parse(model.DateLayout, date); err == nil {
		return d.Format(model.DateLayout)
	}
	return date
}
