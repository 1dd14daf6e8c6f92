package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/Shlokpalrecha/Finguru/internal/gst"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/service"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultInsightWindow is the number of recent entries Insights reads.
const DefaultInsightWindow = 100

const maxTips = 5

// Tip thresholds in rupees.
var (
	gstCreditThreshold   = decimal.NewFromInt(1000)
	rawMaterialThreshold = decimal.NewFromInt(5000)
	foodThreshold        = decimal.NewFromInt(2000)
)

var printer = message.NewPrinter(language.English)

// Insights digests the most recent entries into an accountant-style summary
// with deterministic tips.
func (w *Writer) Insights(ctx context.Context, limit int) (*model.Insight, error) {
	if limit <= 0 {
		limit = DefaultInsightWindow
	}
	entries, err := w.storage.ListEntries(ctx, service.EntryFilter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to load recent entries: %w", err)
	}

	if len(entries) == 0 {
		return &model.Insight{
			Summary:           "No expenses recorded yet. Start by submitting a receipt or a voice note.",
			TopCategory:       "None",
			CategoryBreakdown: map[string]float64{},
			GSTBreakdown:      map[string]float64{},
			Tips: []string{
				"Submit your first receipt to get started.",
				"Use voice notes for quick expense logging.",
			},
		}, nil
	}

	byCategory := map[string]decimal.Decimal{}
	gstByCategory := map[string]decimal.Decimal{}
	total, totalGST := decimal.Zero, decimal.Zero
	for _, e := range entries {
		a, g := decimal.NewFromFloat(e.Amount), decimal.NewFromFloat(e.GSTAmount)
		byCategory[e.Category] = byCategory[e.Category].Add(a)
		gstByCategory[e.Category] = gstByCategory[e.Category].Add(g)
		total = total.Add(a)
		totalGST = totalGST.Add(g)
	}

	keys := make([]string, 0, len(byCategory))
	for k := range byCategory {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	top := keys[0]
	for _, k := range keys[1:] {
		if byCategory[k].GreaterThan(byCategory[top]) {
			top = k
		}
	}

	insight := &model.Insight{
		CategoryBreakdown: make(map[string]float64, len(keys)),
		GSTBreakdown:      make(map[string]float64, len(keys)),
		TopCategory:       w.label(top),
		TotalExpenses:     toFloat(total),
		TotalGST:          toFloat(totalGST),
		TopCategoryAmount: toFloat(byCategory[top]),
		EntryCount:        len(entries),
	}
	for _, k := range keys {
		insight.CategoryBreakdown[w.label(k)] = toFloat(byCategory[k])
		insight.GSTBreakdown[w.label(k)] = toFloat(gstByCategory[k])
	}

	insight.Summary = w.summarize(insight, len(keys))
	insight.Tips = tips(total, totalGST, byCategory[top], byCategory)
	return insight, nil
}

func (w *Writer) label(key string) string {
	if name, ok := w.names[key]; ok {
		return name
	}
	return key
}

func (w *Writer) summarize(in *model.Insight, categories int) string {
	plural := "s"
	if in.EntryCount == 1 {
		plural = ""
	}
	s := printer.Sprintf("You have recorded %d expense%s totaling ₹%.2f. ", in.EntryCount, plural, in.TotalExpenses)
	s += printer.Sprintf("Your GST liability stands at ₹%.2f (%.1f%% of total). ", in.TotalGST, percent(in.TotalGST, in.TotalExpenses))
	s += printer.Sprintf("Your highest spending category is %s at ₹%.2f (%.1f%% of expenses).",
		in.TopCategory, in.TopCategoryAmount, percent(in.TopCategoryAmount, in.TotalExpenses))
	if categories > 1 {
		s += fmt.Sprintf(" Your expenses are spread across %d categories.", categories)
	}
	return s
}

func tips(total, totalGST, topAmount decimal.Decimal, byCategory map[string]decimal.Decimal) []string {
	var out []string

	if totalGST.GreaterThan(gstCreditThreshold) {
		out = append(out, printer.Sprintf("You have ₹%.2f in GST. If you are GST registered, you can claim Input Tax Credit on eligible business expenses.", toFloat(totalGST)))
	}
	if topAmount.GreaterThan(total.Div(decimal.NewFromInt(2))) && len(byCategory) > 0 {
		out = append(out, "Over 50% of your expenses are in one category. Consider reviewing whether all of them are necessary.")
	}
	if byCategory["raw_materials"].GreaterThan(rawMaterialThreshold) {
		out = append(out, "Significant raw material expenses detected. Collect GST invoices from registered vendors for ITC claims.")
	}
	if byCategory["food"].GreaterThan(foodThreshold) {
		out = append(out, "Food expenses are generally not eligible for Input Tax Credit unless incurred for business meetings or events.")
	}
	if _, ok := byCategory["transport"]; ok {
		out = append(out, "Keep fuel bills and transport receipts organized. They may be deductible as business expenses.")
	}
	out = append(out,
		"Keep submitting receipts regularly to maintain accurate records for tax filing.",
		"Review your expenses weekly to catch unusual spending patterns early.")

	if len(out) > maxTips {
		out = out[:maxTips]
	}
	return out
}

func percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

func toFloat(d decimal.Decimal) float64 {
	return gst.RoundAmount(d.InexactFloat64())
}
