package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/sheets/v4"
)

// fakeSheetsAPI records calls instead of talking to Google.
type fakeSheetsAPI struct {
	getErr     error
	updateErrs []error
	tabs       map[string]int64
	updates    map[string][][]any
	cleared    []string
	requests   []*sheets.Request
	created    []string
	added      []string
	mu         sync.Mutex
}

func newFakeSheetsAPI(tabs ...string) *fakeSheetsAPI {
	f := &fakeSheetsAPI{tabs: make(map[string]int64), updates: make(map[string][][]any)}
	for i, tab := range tabs {
		f.tabs[tab] = int64(i)
	}
	return f
}

func (f *fakeSheetsAPI) sheetIDs(_ context.Context, _ string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make(map[string]int64, len(f.tabs))
	for k, v := range f.tabs {
		out[k] = v
	}
	return out, nil
}

func (f *fakeSheetsAPI) create(_ context.Context, title, _ string, tabs []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, title)
	for _, tab := range tabs {
		f.tabs[tab] = int64(len(f.tabs))
	}
	return "sheet-123", nil
}

func (f *fakeSheetsAPI) addTabs(_ context.Context, _ string, tabs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tab := range tabs {
		f.added = append(f.added, tab)
		f.tabs[tab] = int64(100 + len(f.added))
	}
	return nil
}

func (f *fakeSheetsAPI) clear(_ context.Context, _ string, rng string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, rng)
	return nil
}

func (f *fakeSheetsAPI) update(_ context.Context, _ string, rng string, values [][]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updateErrs) > 0 {
		err := f.updateErrs[0]
		f.updateErrs = f.updateErrs[1:]
		if err != nil {
			return err
		}
	}
	f.updates[rng] = values
	return nil
}

func (f *fakeSheetsAPI) batchUpdate(_ context.Context, _ string, requests []*sheets.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, requests...)
	return nil
}

func testEntries() []model.LedgerEntry {
	return []model.LedgerEntry{
		{
			TransactionID: "t2", Date: "2024-03-02", Category: "office_supplies", Source: model.SourceReceipt,
			Amount: 1250, GSTRate: 18, GSTAmount: 225, Confidence: 0.92, VendorName: "Sharma Stationers",
			VendorGSTIN: "27AAPFU0939F1ZV", CreatedAt: "2024-03-02T10:00:00Z", Explanation: "Printer paper",
		},
		{
			TransactionID: "t1", Date: "2024-03-01", Category: "food", Source: model.SourceVoice,
			Amount: 120, GSTRate: 5, GSTAmount: 6, Confidence: 0.9, CreatedAt: "2024-03-01T09:00:00Z",
			Explanation: "Chai",
		},
		{
			TransactionID: "t3", Date: "2024-03-02", Category: "food", Source: model.SourceReceipt,
			Amount: 80.5, GSTRate: 5, GSTAmount: 4.03, Confidence: 1, CreatedAt: "2024-03-02T11:00:00Z",
			Explanation: "Samosa",
		},
	}
}

func testCategories() []model.ExpenseCategory {
	return []model.ExpenseCategory{
		{Key: "food", DisplayName: "Food & Beverages", GSTRate: 5},
		{Key: "transport", DisplayName: "Transportation", GSTRate: 5},
		{Key: "office_supplies", DisplayName: "Office Supplies", GSTRate: 18},
	}
}

func testRange() service.DateRange {
	return service.DateRange{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuildReport(t *testing.T) {
	report := BuildReport(testEntries(), testCategories(), testRange())

	require.Len(t, report.Entries, 3)
	assert.Equal(t, []string{"t1", "t2", "t3"}, []string{
		report.Entries[0].TransactionID, report.Entries[1].TransactionID, report.Entries[2].TransactionID,
	}, "entries are oldest first")

	assert.Equal(t, "1450.5", report.TotalAmount.String())
	assert.Equal(t, "235.03", report.TotalGST.String())

	require.Len(t, report.Categories, 2, "categories without entries are omitted")
	assert.Equal(t, "food", report.Categories[0].Category, "declaration order")
	assert.Equal(t, 2, report.Categories[0].EntryCount)
	assert.Equal(t, "200.5", report.Categories[0].TotalAmount.String())
	assert.Equal(t, "office_supplies", report.Categories[1].Category)

	require.Len(t, report.Slabs, 2)
	assert.InDelta(t, 5.0, report.Slabs[0].Rate, 1e-9)
	assert.Equal(t, "10.03", report.Slabs[0].Tax.String())
	assert.InDelta(t, 18.0, report.Slabs[1].Rate, 1e-9)

	assert.Contains(t, report.Title(), "1 Mar 2024 - 31 Mar 2024")
}

func TestBuildReport_UnknownCategoryKept(t *testing.T) {
	entries := []model.LedgerEntry{{TransactionID: "x", Date: "2024-01-01", Category: "legacy", Amount: 10, GSTRate: 12, GSTAmount: 1.2}}
	report := BuildReport(entries, testCategories(), service.DateRange{})

	require.Len(t, report.Categories, 1)
	assert.Equal(t, "legacy", report.Categories[0].DisplayName)
	assert.Equal(t, "GST Expense Ledger (all dates)", report.Title())
}

func TestWriter_WriteCreatesSpreadsheet(t *testing.T) {
	api := newFakeSheetsAPI()
	cfg := DefaultConfig()
	cfg.RetryDelay = 0
	w := newWriter(api, cfg, nil)

	report := BuildReport(testEntries(), testCategories(), testRange())
	require.NoError(t, w.Write(context.Background(), report))

	assert.Equal(t, []string{DefaultSpreadsheetName}, api.created)
	assert.Empty(t, api.added)
	assert.Len(t, api.cleared, 3)

	ledger := api.updates["'Ledger'!A1"]
	require.NotEmpty(t, ledger)
	assert.Equal(t, report.Title(), ledger[0][0])
	assert.Equal(t, "Date", ledger[1][0])
	assert.Equal(t, "2024-03-01", ledger[2][0])
	assert.Equal(t, "t1", ledger[2][1])
	assert.InDelta(t, 120.0, ledger[2][6], 1e-9)
	assert.InDelta(t, 6.0, ledger[2][8], 1e-9)
	last := ledger[len(ledger)-1]
	assert.Equal(t, "Total", last[0])
	assert.InDelta(t, 235.03, last[8], 1e-9)

	summary := api.updates["'Category Summary'!A1"]
	require.Len(t, summary, 6)
	assert.Equal(t, "food", summary[2][0])

	slabs := api.updates["'GST Slabs'!A1"]
	require.Len(t, slabs, 4)

	assert.NotEmpty(t, api.requests, "formatting requests are sent")
}

func TestWriter_WriteAddsMissingTabs(t *testing.T) {
	api := newFakeSheetsAPI(TabLedger)
	cfg := DefaultConfig()
	cfg.SpreadsheetID = "existing"
	cfg.EnableFormatting = false
	w := newWriter(api, cfg, nil)

	require.NoError(t, w.Write(context.Background(), BuildReport(nil, testCategories(), testRange())))
	assert.Empty(t, api.created)
	assert.Equal(t, []string{TabSummary, TabGSTSlabs}, api.added)
	assert.Empty(t, api.requests)
}

func TestWriter_WriteBatchesAndRetries(t *testing.T) {
	api := newFakeSheetsAPI(Tabs...)
	api.updateErrs = []error{errors.New("quota exceeded")}

	cfg := DefaultConfig()
	cfg.SpreadsheetID = "existing"
	cfg.BatchSize = 2
	cfg.RetryDelay = 0
	cfg.EnableFormatting = false
	w := newWriter(api, cfg, nil)

	require.NoError(t, w.Write(context.Background(), BuildReport(testEntries(), testCategories(), testRange())))

	// 3 entries + title + header + blank + total = 7 rows in batches of 2.
	for _, row := range []int{1, 3, 5, 7} {
		assert.Contains(t, api.updates, fmt.Sprintf("'Ledger'!A%d", row))
	}
}

func TestWriter_WriteInaccessibleSpreadsheet(t *testing.T) {
	api := newFakeSheetsAPI()
	api.getErr = errors.New("403 forbidden")

	cfg := DefaultConfig()
	cfg.SpreadsheetID = "nope"
	w := newWriter(api, cfg, nil)

	err := w.Write(context.Background(), BuildReport(nil, nil, testRange()))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unable to access spreadsheet nope"))
}

type stubSource struct {
	err        error
	start, end string
	entries    []model.LedgerEntry
}

func (s *stubSource) ListEntriesBetween(_ context.Context, start, end string) ([]model.LedgerEntry, error) {
	s.start, s.end = start, end
	return s.entries, s.err
}

func TestExporter_Export(t *testing.T) {
	src := &stubSource{entries: testEntries()}
	mock := NewMockWriter()
	exp := NewExporter(src, mock, testCategories(), nil)

	dr := testRange()
	report, err := exp.Export(context.Background(), dr.Start, dr.End)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01", src.start)
	assert.Equal(t, "2024-03-31", src.end)
	assert.Equal(t, 1, mock.WriteCallCount)
	assert.Same(t, report, mock.LastReport)
	assert.Len(t, mock.GetWriteCalls(), 1)
}

func TestExporter_ExportErrors(t *testing.T) {
	dr := testRange()

	t.Run("inverted range", func(t *testing.T) {
		exp := NewExporter(&stubSource{}, NewMockWriter(), nil, nil)
		_, err := exp.Export(context.Background(), dr.End, dr.Start)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})

	t.Run("writer failure", func(t *testing.T) {
		mock := NewMockWriter()
		mock.SetWriteError(errors.New("sheets down"))
		exp := NewExporter(&stubSource{}, mock, nil, nil)
		_, err := exp.Export(context.Background(), time.Time{}, time.Time{})
		assert.EqualError(t, err, "sheets down")
	})

	t.Run("source failure", func(t *testing.T) {
		exp := NewExporter(&stubSource{err: errors.New("db locked")}, NewMockWriter(), nil, nil)
		_, err := exp.Export(context.Background(), time.Time{}, time.Time{})
		assert.ErrorContains(t, err, "db locked")
	})
}
