// Package confirm finalizes pending decisions with a human's corrections.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/gst"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/pending"
	"github.com/Shlokpalrecha/Finguru/internal/spec"
)

// Request carries a confirmation. Nil fields keep the validator's values.
type Request struct {
	ConfirmedAmount   *float64 `json:"confirmed_amount,omitempty"`
	ConfirmedCategory *string  `json:"confirmed_category,omitempty"`
	TransactionID     string   `json:"transaction_id"`
}

// Committer persists a ledger entry idempotently.
type Committer interface {
	Commit(ctx context.Context, entry model.LedgerEntry) (model.LedgerEntry, bool, error)
}

// Resolver turns pending decisions into committed entries.
type Resolver struct {
	specs     *spec.Store
	pending   pending.Store
	committer Committer
	logger    *slog.Logger
	now       func() time.Time
	mode      gst.Mode
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a Resolver.
func New(specs *spec.Store, store pending.Store, committer Committer, mode gst.Mode, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		specs:     specs,
		pending:   store,
		committer: committer,
		mode:      mode,
		logger:    common.OrDefault(logger),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Confirm commits the pending decision for req.TransactionID. The GST rate and
// amount are re-derived from the current specification and the confidence is
// set to 1. A missing or expired decision wraps common.ErrPendingNotFound. An
// invalid correction wraps common.ErrInvalidInput and leaves the decision in
// place.
func (r *Resolver) Confirm(ctx context.Context, req Request) (*model.LedgerEntry, error) {
	d, err := r.pending.Get(ctx, req.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("confirm %s: %w", req.TransactionID, err)
	}

	snap := r.specs.Current()
	rec := d.Record

	amountChanged := false
	if req.ConfirmedAmount != nil {
		amount := *req.ConfirmedAmount
		if math.IsNaN(amount) || math.IsInf(amount, 0) || gst.RoundAmount(amount) <= 0 {
			return nil, fmt.Errorf("%w: confirmed amount must be a positive number", common.ErrInvalidInput)
		}
		amount = gst.RoundAmount(amount)
		amountChanged = amount != rec.Amount
		rec.Amount = amount
	}

	categoryChanged := false
	if req.ConfirmedCategory != nil {
		key := spec.NormalizeKey(*req.ConfirmedCategory)
		if !snap.Has(key) {
			return nil, fmt.Errorf("%w: unknown category %q", common.ErrInvalidInput, *req.ConfirmedCategory)
		}
		categoryChanged = key != rec.Category
		rec.Category = key
	}

	cat, err := snap.LookupCategory(rec.Category)
	if err != nil {
		// The specification was reloaded without this category.
		return nil, fmt.Errorf("%w: category %q is no longer in the specification; confirm with a category",
			common.ErrInvalidInput, rec.Category)
	}

	rec.GSTRate = cat.GSTRate
	rec.GSTAmount = gst.Compute(rec.Amount, rec.GSTRate, r.mode)
	rec.Confidence = 1
	rec.Explanation = appendSentence(rec.Explanation, provenance(cat, rec.Amount, categoryChanged, amountChanged))

	entry, created, err := r.committer.Commit(ctx, model.NewLedgerEntry(d.Signal, rec, r.now()))
	if err != nil {
		return nil, fmt.Errorf("confirm %s: %w", req.TransactionID, err)
	}

	if err := r.pending.Delete(ctx, req.TransactionID); err != nil && !errors.Is(err, common.ErrPendingNotFound) {
		common.LogError(r.logger, err, "Failed to clear confirmed decision", common.Fields{"transaction_id": req.TransactionID})
	}

	r.logger.Info("Entry confirmed",
		"transaction_id", entry.TransactionID,
		"category", entry.Category,
		"amount", entry.Amount,
		"category_changed", categoryChanged,
		"amount_changed", amountChanged,
		"created", created)

	return &entry, nil
}

// Reject discards a pending decision without writing to the ledger.
func (r *Resolver) Reject(ctx context.Context, transactionID string) error {
	if err := r.pending.Delete(ctx, transactionID); err != nil {
		return fmt.Errorf("reject %s: %w", transactionID, err)
	}
	r.logger.Info("Pending decision discarded", "transaction_id", transactionID)
	return nil
}

func provenance(cat model.ExpenseCategory, amount float64, categoryChanged, amountChanged bool) string {
	name := cat.DisplayName
	if name == "" {
		name = cat.Key
	}
	switch {
	case categoryChanged && amountChanged:
		return fmt.Sprintf("User-confirmed as %s with corrected amount %.2f.", name, amount)
	case categoryChanged:
		return fmt.Sprintf("User-confirmed as %s.", name)
	case amountChanged:
		return fmt.Sprintf("User-confirmed with corrected amount %.2f.", amount)
	default:
		return "User-confirmed."
	}
}

func appendSentence(text, sentence string) string {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return sentence
	case strings.HasSuffix(text, "."):
		return text + " " + sentence
	default:
		return text + ". " + sentence
	}
}
