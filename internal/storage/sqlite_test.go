package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStorage opens a migrated database in a temp dir.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testEntry(id, date, category string, amount, gstAmount float64, createdAt time.Time) model.LedgerEntry {
	return model.LedgerEntry{
		TransactionID: id,
		Date:          date,
		Amount:        amount,
		Category:      category,
		GSTRate:       18,
		GSTAmount:     gstAmount,
		Source:        model.SourceReceipt,
		Confidence:    0.9,
		Explanation:   "test entry",
		CreatedAt:     createdAt.UTC().Format(time.RFC3339),
	}
}

func TestMigrate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	v, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, v)

	// Idempotent on an up-to-date database.
	require.NoError(t, store.Migrate(ctx))
}

func TestMigrate_InMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Migrate(context.Background()))
	_, err = store.InsertEntry(context.Background(), testEntry("a", "2024-03-15", "food", 100, 5, time.Now()))
	require.NoError(t, err)
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage(" ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestInsertEntry_Idempotent(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	entry := testEntry("txn-1", "2024-03-15", "office_supplies", 500, 90, time.Now())
	entry.VendorName = "Gupta Stationers"
	entry.VendorGSTIN = "27AAPFU0939F1ZV"
	entry.RawText = "A4 paper"

	created, err := store.InsertEntry(ctx, entry)
	require.NoError(t, err)
	assert.True(t, created)

	changed := entry
	changed.Amount = 999
	created, err = store.InsertEntry(ctx, changed)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.GetEntry(ctx, "txn-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry, *got, "the first write wins")
}

func TestInsertEntry_Concurrent(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	entry := testEntry("txn-race", "2024-03-15", "food", 120, 6, time.Now())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.InsertEntry(ctx, entry)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	entries, err := store.ListEntries(ctx, service.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestInsertEntry_Validation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	base := testEntry("txn", "2024-03-15", "food", 100, 5, time.Now())

	tests := []struct {
		name   string
		mutate func(*model.LedgerEntry)
	}{
		{name: "missing id", mutate: func(e *model.LedgerEntry) { e.TransactionID = "" }},
		{name: "missing category", mutate: func(e *model.LedgerEntry) { e.Category = " " }},
		{name: "bad source", mutate: func(e *model.LedgerEntry) { e.Source = "email" }},
		{name: "zero amount", mutate: func(e *model.LedgerEntry) { e.Amount = 0 }},
		{name: "rate over 100", mutate: func(e *model.LedgerEntry) { e.GSTRate = 101 }},
		{name: "confidence over 1", mutate: func(e *model.LedgerEntry) { e.Confidence = 1.5 }},
		{name: "empty explanation", mutate: func(e *model.LedgerEntry) { e.Explanation = "" }},
		{name: "bad date", mutate: func(e *model.LedgerEntry) { e.Date = "15/03/2024" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base
			tt.mutate(&e)
			created, err := store.InsertEntry(ctx, e)
			require.Error(t, err)
			assert.False(t, created)
			assert.ErrorIs(t, err, ErrInvalidEntry)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestGetEntry_Missing(t *testing.T) {
	store := createTestStorage(t)

	got, err := store.GetEntry(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteEntry(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.InsertEntry(ctx, testEntry("txn-1", "2024-03-15", "food", 100, 5, time.Now()))
	require.NoError(t, err)

	require.NoError(t, store.DeleteEntry(ctx, "txn-1"))
	assert.ErrorIs(t, store.DeleteEntry(ctx, "txn-1"), common.ErrNotFound)

	got, err := store.GetEntry(ctx, "txn-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListEntries(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 30; i++ {
		date := "2024-03-15"
		if i%3 == 0 {
			date = "2024-03-16"
		}
		e := testEntry(fmt.Sprintf("txn-%02d", i), date, "food", float64(i+1), 1, base.Add(time.Duration(i)*time.Minute))
		if i%2 == 0 {
			e.Source = model.SourceVoice
		}
		_, err := store.InsertEntry(ctx, e)
		require.NoError(t, err)
	}

	t.Run("default limit newest first", func(t *testing.T) {
		entries, err := store.ListEntries(ctx, service.EntryFilter{})
		require.NoError(t, err)
		require.Len(t, entries, DefaultListLimit)
		assert.Equal(t, "txn-29", entries[0].TransactionID)
		assert.Equal(t, "txn-10", entries[len(entries)-1].TransactionID)
	})

	t.Run("date filter", func(t *testing.T) {
		entries, err := store.ListEntries(ctx, service.EntryFilter{Date: "2024-03-16", Limit: 100})
		require.NoError(t, err)
		assert.Len(t, entries, 10)
		for _, e := range entries {
			assert.Equal(t, "2024-03-16", e.Date)
		}
	})

	t.Run("source filter", func(t *testing.T) {
		entries, err := store.ListEntries(ctx, service.EntryFilter{Source: model.SourceVoice, Limit: 100})
		require.NoError(t, err)
		assert.Len(t, entries, 15)
	})

	t.Run("limit clamped", func(t *testing.T) {
		entries, err := store.ListEntries(ctx, service.EntryFilter{Limit: 5})
		require.NoError(t, err)
		assert.Len(t, entries, 5)

		entries, err = store.ListEntries(ctx, service.EntryFilter{Limit: 1000})
		require.NoError(t, err)
		assert.Len(t, entries, 30)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := store.ListEntries(ctx, service.EntryFilter{Date: "yesterday"})
		assert.ErrorIs(t, err, ErrInvalidDate)
	})
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, ClampLimit(0))
	assert.Equal(t, DefaultListLimit, ClampLimit(-4))
	assert.Equal(t, 1, ClampLimit(1))
	assert.Equal(t, 55, ClampLimit(55))
	assert.Equal(t, MaxListLimit, ClampLimit(101))
}

func TestListEntriesBetween(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	for i, date := range []string{"2024-03-01", "2024-03-10", "2024-03-31", "2024-04-01"} {
		_, err := store.InsertEntry(ctx, testEntry(fmt.Sprintf("txn-%d", i), date, "food", 100, 5, now))
		require.NoError(t, err)
	}

	entries, err := store.ListEntriesBetween(ctx, "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "2024-03-01", entries[0].Date)
	assert.Equal(t, "2024-03-31", entries[2].Date)

	_, err = store.ListEntriesBetween(ctx, "2024-04-01", "2024-03-01")
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestSummarizeDay(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	entries := []model.LedgerEntry{
		testEntry("a", "2024-03-15", "food", 120, 6, now),
		testEntry("b", "2024-03-15", "food", 0.2, 0.01, now),
		testEntry("c", "2024-03-15", "office_supplies", 500, 90, now),
		testEntry("d", "2024-03-16", "food", 999, 49.95, now),
	}
	for _, e := range entries {
		_, err := store.InsertEntry(ctx, e)
		require.NoError(t, err)
	}

	s, err := store.SummarizeDay(ctx, "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", s.Date)
	assert.Equal(t, 3, s.EntryCount)
	assert.Equal(t, 120.2, s.ByCategory["food"])
	assert.Equal(t, 6.01, s.GSTByCategory["food"])
	assert.Equal(t, 500.0, s.ByCategory["office_supplies"])
	assert.Equal(t, 620.2, s.TotalAmount)
	assert.Equal(t, 96.01, s.TotalGST)

	empty, err := store.SummarizeDay(ctx, "2023-01-01")
	require.NoError(t, err)
	assert.Zero(t, empty.EntryCount)
	assert.Empty(t, empty.ByCategory)
	assert.NotNil(t, empty.ByCategory)
}

func TestSummarizeRange(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	voice := testEntry("v", "2024-03-02", "food", 80, 4, now)
	voice.Source = model.SourceVoice
	for _, e := range []model.LedgerEntry{
		testEntry("r1", "2024-03-01", "food", 120, 6, now),
		testEntry("r2", "2024-03-05", "rent", 10000, 1800, now),
		voice,
		testEntry("out", "2024-04-01", "food", 1, 0.05, now),
	} {
		_, err := store.InsertEntry(ctx, e)
		require.NoError(t, err)
	}

	s, err := store.SummarizeRange(ctx, "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	assert.Equal(t, 3, s.EntryCount)
	assert.Equal(t, 200.0, s.ByCategory["food"])
	assert.Equal(t, 10.0, s.GSTByCategory["food"])
	assert.Equal(t, 10000.0, s.ByCategory["rent"])
	assert.Equal(t, 10120.0, s.BySource[model.SourceReceipt])
	assert.Equal(t, 80.0, s.BySource[model.SourceVoice])
	assert.Equal(t, 10200.0, s.TotalAmount)
	assert.Equal(t, 1810.0, s.TotalGST)
}
