package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/pending"
)

var _ pending.Store = (*SQLitePendingStore)(nil)

// SQLitePendingStore keeps pending decisions in the shared database so a
// confirmation can be handled by a different process than the one that parked
// the decision. Expired rows are never returned.
type SQLitePendingStore struct {
	storage *SQLiteStorage
	now     func() time.Time
}

// PendingStore returns the pending decision table of s.
func (s *SQLiteStorage) PendingStore() *SQLitePendingStore {
	return &SQLitePendingStore{storage: s, now: time.Now}
}

// WithClock replaces time.Now, for tests.
func (p *SQLitePendingStore) WithClock(now func() time.Time) *SQLitePendingStore {
	return &SQLitePendingStore{storage: p.storage, now: now}
}

// Put stores or replaces d.
func (p *SQLitePendingStore) Put(ctx context.Context, d model.PendingDecision) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePending(d); err != nil {
		return err
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode pending decision: %w", err)
	}

	_, err = p.storage.db.ExecContext(ctx, `
		INSERT INTO pending_decisions (transaction_id, reason, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO UPDATE SET
			reason = excluded.reason,
			payload = excluded.payload,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		d.TransactionID, d.Reason, string(payload), d.CreatedAt.UnixMilli(), d.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save pending decision: %w", err)
	}
	return nil
}

// Get returns the unexpired decision for transactionID.
func (p *SQLitePendingStore) Get(ctx context.Context, transactionID string) (*model.PendingDecision, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	var payload string
	err := p.storage.db.QueryRowContext(ctx, `
		SELECT payload FROM pending_decisions
		WHERE transaction_id = ? AND expires_at > ?`,
		transactionID, p.now().UnixMilli()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", common.ErrPendingNotFound, transactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending decision: %w", err)
	}

	d, err := decodePending(payload)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Delete removes the unexpired decision for transactionID.
func (p *SQLitePendingStore) Delete(ctx context.Context, transactionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}

	res, err := p.storage.db.ExecContext(ctx, `
		DELETE FROM pending_decisions
		WHERE transaction_id = ? AND expires_at > ?`,
		transactionID, p.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to delete pending decision: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", common.ErrPendingNotFound, transactionID)
	}
	return nil
}

// List returns unexpired decisions, oldest first.
func (p *SQLitePendingStore) List(ctx context.Context) ([]model.PendingDecision, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := p.storage.db.QueryContext(ctx, `
		SELECT payload FROM pending_decisions
		WHERE expires_at > ?
		ORDER BY created_at, transaction_id`, p.now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to list pending decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.PendingDecision{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan pending decision: %w", err)
		}
		d, err := decodePending(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending decisions: %w", err)
	}
	return out, nil
}

// Purge deletes expired rows.
func (p *SQLitePendingStore) Purge(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := p.storage.db.ExecContext(ctx, `DELETE FROM pending_decisions WHERE expires_at <= ?`, p.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge pending decisions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge result: %w", err)
	}
	if n > 0 {
		p.storage.logger.Debug("Expired pending decisions purged", "count", n)
	}
	return int(n), nil
}

func decodePending(payload string) (model.PendingDecision, error) {
	var d model.PendingDecision
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return model.PendingDecision{}, fmt.Errorf("failed to decode pending decision: %w", err)
	}
	return d, nil
}
