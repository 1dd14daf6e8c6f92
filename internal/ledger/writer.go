// Package ledger is the only component that writes committed GST entries.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/gst"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/service"
)

// Open date bounds used when a range side is unspecified.
const (
	minDate = "0001-01-01"
	maxDate = "9999-12-31"
)

// Writer commits ledger entries and answers queries over them.
type Writer struct {
	storage service.LedgerStorage
	logger  *slog.Logger
	now     func() time.Time
	names   map[string]string
	mode    gst.Mode
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// WithCategories labels insight breakdowns with display names.
func WithCategories(cats []model.ExpenseCategory) Option {
	return func(w *Writer) {
		for _, c := range cats {
			if c.DisplayName != "" {
				w.names[c.Key] = c.DisplayName
			}
		}
	}
}

// New creates a Writer over storage.
func New(storage service.LedgerStorage, mode gst.Mode, logger *slog.Logger, opts ...Option) *Writer {
	w := &Writer{
		storage: storage,
		mode:    mode,
		logger:  common.OrDefault(logger),
		now:     time.Now,
		names:   map[string]string{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Commit stores entry once per transaction id. The GST amount is recomputed
// from the amount and rate before writing. Committing an id that already
// exists returns the stored entry with created=false.
func (w *Writer) Commit(ctx context.Context, entry model.LedgerEntry) (model.LedgerEntry, bool, error) {
	entry.Amount = gst.RoundAmount(entry.Amount)
	entry.GSTAmount = gst.Compute(entry.Amount, entry.GSTRate, w.mode)
	if entry.CreatedAt == "" {
		entry.CreatedAt = w.now().UTC().Format(time.RFC3339)
	}

	created := true
	if err := w.insert(ctx, entry); err != nil {
		if !errors.Is(err, common.ErrDuplicateTransaction) {
			return model.LedgerEntry{}, false, err
		}
		created = false
	}

	stored, err := w.storage.GetEntry(ctx, entry.TransactionID)
	if err != nil {
		return model.LedgerEntry{}, false, fmt.Errorf("failed to read back entry %s: %w", entry.TransactionID, err)
	}
	if stored == nil {
		return model.LedgerEntry{}, false, fmt.Errorf("%w: entry %s missing after commit", common.ErrNotFound, entry.TransactionID)
	}

	if created {
		w.logger.Info("Ledger entry committed",
			"transaction_id", stored.TransactionID,
			"category", stored.Category,
			"amount", stored.Amount,
			"gst_amount", stored.GSTAmount,
			"confidence", stored.Confidence)
	} else {
		w.logger.Info("Duplicate commit returned existing entry", "transaction_id", stored.TransactionID)
	}
	return *stored, created, nil
}

func (w *Writer) insert(ctx context.Context, entry model.LedgerEntry) error {
	created, err := w.storage.InsertEntry(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to commit entry %s: %w", entry.TransactionID, err)
	}
	if !created {
		return fmt.Errorf("%w: %s", common.ErrDuplicateTransaction, entry.TransactionID)
	}
	return nil
}

// Get returns the entry for transactionID, or nil when there is none.
func (w *Writer) Get(ctx context.Context, transactionID string) (*model.LedgerEntry, error) {
	return w.storage.GetEntry(ctx, transactionID)
}

// Delete removes an entry, wrapping common.ErrNotFound when it is absent.
func (w *Writer) Delete(ctx context.Context, transactionID string) error {
	if err := w.storage.DeleteEntry(ctx, transactionID); err != nil {
		return err
	}
	w.logger.Info("Ledger entry deleted", "transaction_id", transactionID)
	return nil
}

// Query lists entries newest first, optionally restricted to one date.
func (w *Writer) Query(ctx context.Context, date string, limit int) ([]model.LedgerEntry, error) {
	return w.storage.ListEntries(ctx, service.EntryFilter{Date: date, Limit: limit})
}

// ListEntriesBetween lists entries dated within [start, end], oldest first.
// An empty bound leaves that side open.
func (w *Writer) ListEntriesBetween(ctx context.Context, start, end string) ([]model.LedgerEntry, error) {
	if start == "" {
		start = minDate
	}
	if end == "" {
		end = maxDate
	}
	return w.storage.ListEntriesBetween(ctx, start, end)
}

// Summary aggregates one day. An empty date means today, local time.
func (w *Writer) Summary(ctx context.Context, date string) (*model.Summary, error) {
	if date == "" {
		date = w.now().Format(model.DateLayout)
	}
	return w.storage.SummarizeDay(ctx, date)
}

// SummaryRange aggregates entries dated within [start, end].
func (w *Writer) SummaryRange(ctx context.Context, start, end string) (*model.RangeSummary, error) {
	return w.storage.SummarizeRange(ctx, start, end)
}
