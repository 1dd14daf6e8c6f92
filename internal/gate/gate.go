// Package gate decides whether a validated record is committed right away or
// parked for human confirmation.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/pending"
)

// DefaultThreshold is the confidence below which confirmation is required.
const DefaultThreshold = 0.85

// Confirmation reasons, highest priority first.
const (
	ReasonFallback      = "fallback category"
	ReasonOverride      = "category override"
	ReasonDisagreement  = "category disagreement"
	ReasonLowConfidence = "low confidence"
)

// Signals are the inputs of the decision rule.
type Signals struct {
	Confidence   float64
	Disagreement bool
	Overridden   bool
	Fallback     bool
}

// SignalsFor extracts the decision inputs from rec.
func SignalsFor(rec model.ValidatedRecord) Signals {
	return Signals{
		Confidence:   rec.Confidence,
		Disagreement: rec.Disagreement,
		Overridden:   rec.Overridden,
		Fallback:     rec.Fallback,
	}
}

// Decision is the gate's verdict.
type Decision struct {
	Reason            string `json:"reason,omitempty"`
	NeedsConfirmation bool   `json:"needs_confirmation"`
}

// Decide applies the rule: confirmation is needed when the confidence is
// below threshold or any categorical flag is set. Decide is pure.
func Decide(s Signals, threshold float64) Decision {
	var reason string
	switch {
	case s.Fallback:
		reason = ReasonFallback
	case s.Overridden:
		reason = ReasonOverride
	case s.Disagreement:
		reason = ReasonDisagreement
	case s.Confidence < threshold:
		reason = ReasonLowConfidence
	default:
		return Decision{}
	}
	return Decision{NeedsConfirmation: true, Reason: reason}
}

// Committer persists a ledger entry idempotently.
type Committer interface {
	Commit(ctx context.Context, entry model.LedgerEntry) (model.LedgerEntry, bool, error)
}

// Validated is everything the gate needs about one processed signal.
type Validated struct {
	Signal    model.Signal
	Candidate model.CandidateRecord
	Record    model.ValidatedRecord
}

// Outcome is the result of Apply. Exactly one of Entry and Pending is set.
type Outcome struct {
	Entry    *model.LedgerEntry     `json:"entry,omitempty"`
	Pending  *model.PendingDecision `json:"pending,omitempty"`
	Decision Decision               `json:"decision"`
	Created  bool                   `json:"created"`
}

// Gate applies Decide and performs the matching side effect.
type Gate struct {
	committer Committer
	pending   pending.Store
	logger    *slog.Logger
	now       func() time.Time
	threshold float64
	ttl       time.Duration
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// WithTTL sets how long pending decisions remain confirmable.
func WithTTL(ttl time.Duration) Option {
	return func(g *Gate) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// New creates a Gate.
func New(committer Committer, store pending.Store, threshold float64, logger *slog.Logger, opts ...Option) *Gate {
	g := &Gate{
		committer: committer,
		pending:   store,
		logger:    common.OrDefault(logger),
		now:       time.Now,
		threshold: threshold,
		ttl:       pending.DefaultTTL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Threshold returns the configured confidence threshold.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Apply commits v or stores it as a pending decision.
func (g *Gate) Apply(ctx context.Context, v Validated) (*Outcome, error) {
	decision := Decide(SignalsFor(v.Record), g.threshold)
	now := g.now()

	if !decision.NeedsConfirmation {
		entry, created, err := g.committer.Commit(ctx, model.NewLedgerEntry(v.Signal, v.Record, now))
		if err != nil {
			return nil, fmt.Errorf("auto-commit %s: %w", v.Record.TransactionID, err)
		}
		g.logger.Info("Entry auto-committed",
			"transaction_id", entry.TransactionID,
			"category", entry.Category,
			"confidence", entry.Confidence,
			"created", created)
		return &Outcome{Decision: decision, Entry: &entry, Created: created}, nil
	}

	d := model.PendingDecision{
		TransactionID: v.Record.TransactionID,
		Reason:        decision.Reason,
		Signal:        v.Signal,
		Candidate:     v.Candidate,
		Record:        v.Record,
		CreatedAt:     now.UTC(),
		ExpiresAt:     now.UTC().Add(g.ttl),
	}
	if err := g.pending.Put(ctx, d); err != nil {
		return nil, fmt.Errorf("store pending %s: %w", d.TransactionID, err)
	}

	g.logger.Info("Entry needs confirmation",
		"transaction_id", d.TransactionID,
		"category", d.Record.Category,
		"confidence", d.Record.Confidence,
		"reason", d.Reason)

	return &Outcome{Decision: decision, Pending: &d}, nil
}
