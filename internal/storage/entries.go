package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/service"
	"github.com/shopspring/decimal"
)

// Query limits.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

const entryColumns = `transaction_id, date, amount, category, gst_rate, gst_amount, source,
	confidence, explanation, vendor_name, vendor_gstin, raw_text, created_at`

// ClampLimit applies the default and bounds of list queries.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (model.LedgerEntry, error) {
	var (
		e      model.LedgerEntry
		source string
	)
	err := row.Scan(&e.TransactionID, &e.Date, &e.Amount, &e.Category, &e.GSTRate, &e.GSTAmount,
		&source, &e.Confidence, &e.Explanation, &e.VendorName, &e.VendorGSTIN, &e.RawText, &e.CreatedAt)
	e.Source = model.Source(source)
	return e, err
}

// InsertEntry writes entry unless its transaction id exists. It reports whether
// a row was written; an existing row is left untouched.
func (s *SQLiteStorage) InsertEntry(ctx context.Context, entry model.LedgerEntry) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateEntry(entry); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO NOTHING`,
		entry.TransactionID, entry.Date, entry.Amount, entry.Category, entry.GSTRate, entry.GSTAmount,
		string(entry.Source), entry.Confidence, entry.Explanation, entry.VendorName, entry.VendorGSTIN,
		entry.RawText, entry.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n == 1, nil
}

// GetEntry returns the entry for transactionID, or nil when there is none.
func (s *SQLiteStorage) GetEntry(ctx context.Context, transactionID string) (*model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE transaction_id = ?`, transactionID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return &e, nil
}

// DeleteEntry removes an entry. A missing entry yields common.ErrNotFound.
func (s *SQLiteStorage) DeleteEntry(ctx context.Context, transactionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM ledger_entries WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: ledger entry %s", common.ErrNotFound, transactionID)
	}
	return nil
}

// ListEntries returns entries newest first.
func (s *SQLiteStorage) ListEntries(ctx context.Context, filter service.EntryFilter) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.Date != "" {
		if err := validateDate(filter.Date, "date"); err != nil {
			return nil, err
		}
		where = append(where, "date = ?")
		args = append(args, filter.Date)
	}
	if filter.Source != "" {
		where = append(where, "source = ?")
		args = append(args, string(filter.Source))
	}

	query := `SELECT ` + entryColumns + ` FROM ledger_entries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, ClampLimit(filter.Limit))

	return s.queryEntries(ctx, query, args...)
}

// ListEntriesBetween returns entries dated within [start, end], oldest first.
func (s *SQLiteStorage) ListEntriesBetween(ctx context.Context, start, end string) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}

	return s.queryEntries(ctx, `
		SELECT `+entryColumns+` FROM ledger_entries
		WHERE date >= ? AND date <= ?
		ORDER BY date, created_at, rowid`, start, end)
}

func (s *SQLiteStorage) queryEntries(ctx context.Context, query string, args ...any) ([]model.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []model.LedgerEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}

// SummarizeDay aggregates one day's entries by category in a single statement.
func (s *SQLiteStorage) SummarizeDay(ctx context.Context, date string) (*model.Summary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDate(date, "date"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, SUM(amount), SUM(gst_amount), COUNT(*)
		FROM ledger_entries
		WHERE date = ?
		GROUP BY category
		ORDER BY category`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize ledger: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summary := &model.Summary{
		Date:          date,
		ByCategory:    map[string]float64{},
		GSTByCategory: map[string]float64{},
	}
	total, totalGST := decimal.Zero, decimal.Zero

	for rows.Next() {
		var (
			category    string
			amount, tax float64
			count       int
		)
		if err := rows.Scan(&category, &amount, &tax, &count); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		a, g := decimal.NewFromFloat(amount).Round(2), decimal.NewFromFloat(tax).Round(2)
		summary.ByCategory[category], _ = a.Float64()
		summary.GSTByCategory[category], _ = g.Float64()
		total = total.Add(a)
		totalGST = totalGST.Add(g)
		summary.EntryCount += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate summary rows: %w", err)
	}

	summary.TotalAmount, _ = total.Float64()
	summary.TotalGST, _ = totalGST.Float64()
	return summary, nil
}

// SummarizeRange aggregates entries dated within [start, end] by category and
// source in a single statement.
func (s *SQLiteStorage) SummarizeRange(ctx context.Context, start, end string) (*model.RangeSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, source, SUM(amount), SUM(gst_amount), COUNT(*)
		FROM ledger_entries
		WHERE date >= ? AND date <= ?
		GROUP BY category, source
		ORDER BY category, source`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize ledger range: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byCategory := map[string]decimal.Decimal{}
	gstByCategory := map[string]decimal.Decimal{}
	bySource := map[model.Source]decimal.Decimal{}
	total, totalGST := decimal.Zero, decimal.Zero
	count := 0

	for rows.Next() {
		var (
			category, source string
			amount, tax      float64
			n                int
		)
		if err := rows.Scan(&category, &source, &amount, &tax, &n); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		a, g := decimal.NewFromFloat(amount).Round(2), decimal.NewFromFloat(tax).Round(2)
		byCategory[category] = byCategory[category].Add(a)
		gstByCategory[category] = gstByCategory[category].Add(g)
		bySource[model.Source(source)] = bySource[model.Source(source)].Add(a)
		total = total.Add(a)
		totalGST = totalGST.Add(g)
		count += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate summary rows: %w", err)
	}

	summary := &model.RangeSummary{
		StartDate:     start,
		EndDate:       end,
		ByCategory:    make(map[string]float64, len(byCategory)),
		GSTByCategory: make(map[string]float64, len(gstByCategory)),
		BySource:      make(map[model.Source]float64, len(bySource)),
		EntryCount:    count,
	}
	for k, v := range byCategory {
		summary.ByCategory[k], _ = v.Float64()
	}
	for k, v := range gstByCategory {
		summary.GSTByCategory[k], _ = v.Float64()
	}
	for k, v := range bySource {
		summary.BySource[k], _ = v.Float64()
	}
	summary.TotalAmount, _ = total.Float64()
	summary.TotalGST, _ = totalGST.Float64()
	return summary, nil
}
