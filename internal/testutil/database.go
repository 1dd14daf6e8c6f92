// Package testutil provides shared fixtures for FinGuru tests: migrated
// databases, accounting specifications, and ledger entries.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/storage"
)

// TestDB is a migrated in-memory database closed at test cleanup.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       testing.TB
}

// SetupTestDB creates a new in-memory database and runs migrations.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.SeedEntries(testutil.Entry("txn-1", "2024-03-15", "food", 120))
func SetupTestDB(t testing.TB) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// SeedEntries inserts entries, failing the test on error or duplicate.
func (db *TestDB) SeedEntries(entries ...model.LedgerEntry) {
	db.t.Helper()

	ctx := context.Background()
	for _, e := range entries {
		created, err := db.Storage.InsertEntry(ctx, e)
		if err != nil {
			db.t.Fatalf("failed to seed entry %s: %v", e.TransactionID, err)
		}
		if !created {
			db.t.Fatalf("entry %s already exists", e.TransactionID)
		}
	}
}

// Entry builds a receipt ledger entry at 18% GST. Amount and GST are
// consistent with additive computation.
func Entry(id, date, category string, amount float64) model.LedgerEntry {
	gst := float64(int64(amount*18+0.5)) / 100
	return model.LedgerEntry{
		TransactionID: id,
		Date:          date,
		Amount:        amount,
		Category:      category,
		GSTRate:       18,
		GSTAmount:     gst,
		Source:        model.SourceReceipt,
		Confidence:    0.9,
		Explanation:   fmt.Sprintf("%s expense", category),
		CreatedAt:     time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC).Format(time.RFC3339),
	}
}
