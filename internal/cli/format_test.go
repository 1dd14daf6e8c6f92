package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		want   string
		amount float64
	}{
		{amount: 0, want: "₹0.00"},
		{amount: 6, want: "₹6.00"},
		{amount: 1234.5, want: "₹1,234.50"},
		{amount: 1234567.891, want: "₹1,234,567.89"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.amount))
	}
}

func TestFormatConfidence(t *testing.T) {
	assert.Equal(t, "91%", FormatConfidence(0.91))
	assert.Equal(t, "100%", FormatConfidence(1))
}

func TestFormatter_Label(t *testing.T) {
	f := NewFormatter(testutil.DefaultSpec(t).Categories())
	assert.Equal(t, "Office Supplies", f.Label("office_supplies"))
	assert.Equal(t, "unknown_key", f.Label("unknown_key"))
}

func TestFormatter_Entry(t *testing.T) {
	f := NewFormatter(testutil.DefaultSpec(t).Categories())
	e := testutil.Entry("txn-42", "2024-03-15", "office_supplies", 500)
	e.VendorName = "Gupta Stationers"
	e.VendorGSTIN = "27AAPFU0939F1ZV"

	out := f.Entry(e)
	for _, want := range []string{"Office Supplies", "₹500.00", "₹90.00 @ 18%", "90%", "Gupta Stationers", "27AAPFU0939F1ZV", "txn-42"} {
		assert.Contains(t, out, want)
	}
}

func TestFormatter_EntryTable(t *testing.T) {
	f := NewFormatter(testutil.DefaultSpec(t).Categories())
	out := f.EntryTable([]model.LedgerEntry{
		testutil.Entry("a", "2024-03-15", "food", 120),
		testutil.Entry("b", "2024-03-16", "rent", 10000),
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, out, "Category")
	assert.Contains(t, out, "Food & Beverages")
	assert.Contains(t, out, "₹10,000.00")
}

func TestFormatter_PendingTable(t *testing.T) {
	f := NewFormatter(testutil.DefaultSpec(t).Categories())
	d := pendingMisc()

	out := f.PendingTable([]model.PendingDecision{d}, d.CreatedAt.Add(time.Hour))
	assert.Contains(t, out, "txn-1")
	assert.Contains(t, out, "fallback category")
	assert.Contains(t, out, "23h0m0s")
}

func TestFormatter_Summary(t *testing.T) {
	f := NewFormatter(testutil.DefaultSpec(t).Categories())

	out := f.Summary(&model.Summary{
		Date:          "2024-03-15",
		ByCategory:    map[string]float64{"food": 120, "office_supplies": 500},
		GSTByCategory: map[string]float64{"food": 6, "office_supplies": 90},
		TotalAmount:   620,
		TotalGST:      96,
		EntryCount:    2,
	})
	assert.Contains(t, out, "2024-03-15")
	assert.Contains(t, out, "₹620.00")
	assert.Contains(t, out, "₹96.00")
	assert.Less(t, strings.Index(out, "Office Supplies"), strings.Index(out, "Food & Beverages"), "largest first")

	empty := f.Summary(&model.Summary{Date: "2024-03-15"})
	assert.Contains(t, empty, "No entries.")
}

func TestFormatter_RangeSummary(t *testing.T) {
	f := NewFormatter(nil)

	out := f.RangeSummary(&model.RangeSummary{
		StartDate:     "2024-03-01",
		EndDate:       "2024-03-31",
		ByCategory:    map[string]float64{"food": 200},
		GSTByCategory: map[string]float64{"food": 10},
		BySource:      map[model.Source]float64{model.SourceVoice: 80, model.SourceReceipt: 120},
		TotalAmount:   200,
		TotalGST:      10,
		EntryCount:    3,
	})
	assert.Contains(t, out, "2024-03-01 to 2024-03-31")
	assert.Contains(t, out, "voice")
	assert.Contains(t, out, "₹80.00")
}

func TestFormatter_Categories(t *testing.T) {
	snap := testutil.DefaultSpec(t)
	out := NewFormatter(snap.Categories()).Categories(snap.Categories(), snap.Fallback().Key)

	assert.Contains(t, out, "office_supplies")
	assert.Contains(t, out, "18%")
	assert.Contains(t, out, "(fallback)")
}

func TestFormatter_Insight(t *testing.T) {
	out := NewFormatter(nil).Insight(&model.Insight{
		Summary: "You have recorded 2 expenses.",
		Tips:    []string{"Keep receipts."},
	})
	assert.Contains(t, out, "You have recorded 2 expenses.")
	assert.Contains(t, out, "• Keep receipts.")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\n  b", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
