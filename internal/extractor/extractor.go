// Package extractor turns a raw expense signal into a candidate record by
// asking the oracle, checking its answer against the output contract, and
// re-prompting once in strict mode when the answer is unusable.
package extractor

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
	"github.com/Shlokpalrecha/Finguru/internal/llm"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/service"
	"github.com/Shlokpalrecha/Finguru/internal/spec"
	"github.com/google/uuid"
)

const (
	// MaxAttempts is the first call plus one strict retry.
	MaxAttempts = 2

	// DefaultRetryDelay is the pause before the strict retry.
	DefaultRetryDelay = 500 * time.Millisecond
)

// Extraction is a structurally valid candidate with its new transaction id.
type Extraction struct {
	TransactionID string
	Candidate     model.CandidateRecord
	Attempts      int
}

// Extractor calls the oracle for one signal at a time. It is safe for
// concurrent use.
type Extractor struct {
	oracle     llm.Oracle
	logger     *slog.Logger
	newID      func() string
	retryDelay time.Duration
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRetryDelay sets the pause before the strict retry.
func WithRetryDelay(d time.Duration) Option {
	return func(e *Extractor) {
		if d >= 0 {
			e.retryDelay = d
		}
	}
}

// WithIDGenerator replaces uuid generation, for tests.
func WithIDGenerator(fn func() string) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// New creates an Extractor over oracle.
func New(oracle llm.Oracle, logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		oracle:     oracle,
		logger:     common.OrDefault(logger),
		newID:      uuid.NewString,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract asks the oracle for a candidate. A category outside snap counts as a
// contract violation on the first attempt; if the strict retry names an
// unknown key again, the candidate is returned with UnknownCategory set so the
// validator can recover. Every other failure after the retry is terminal.
func (e *Extractor) Extract(ctx context.Context, snap *spec.Snapshot, sig model.Signal) (*Extraction, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: nil context", common.ErrInvalidInput)
	}
	if strings.TrimSpace(sig.RawText) == "" {
		return nil, fmt.Errorf("%w: raw text is empty", common.ErrInvalidInput)
	}
	if !sig.Source.Valid() {
		return nil, fmt.Errorf("%w: source %q", common.ErrInvalidInput, sig.Source)
	}

	base := llm.Request{
		Text:       sig.RawText,
		Source:     sig.Source,
		Categories: llm.CategoryOptions(snap.Categories()),
		Hints: llm.Hints{
			Vendor: sig.VendorName,
			Date:   sig.Date,
			Amount: sig.AmountHint,
		},
	}

	var (
		candidate model.CandidateRecord
		violation string
		attempts  int
	)

	err := common.WithRetry(ctx, func(attempt int) error {
		attempts = attempt
		req := base
		if attempt > 1 {
			req.Strict = true
			req.Violation = violation
		}

		proposal, err := e.oracle.Propose(ctx, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return common.Permanent(ctxErr)
			}
			switch {
			case errors.Is(err, common.ErrOracleContractViolation):
				violation = err.Error()
			case !errors.Is(err, common.ErrOracleUnavailable):
				err = fmt.Errorf("%w: %v", common.ErrOracleUnavailable, err)
			}
			e.logger.Warn("Oracle call failed",
				"attempt", attempt,
				"strict", req.Strict,
				"error", err)
			return err
		}

		c, err := checkProposal(proposal)
		if err != nil {
			violation = err.Error()
			e.logger.Warn("Oracle broke output contract",
				"attempt", attempt,
				"violation", violation)
			return err
		}

		if !snap.Has(c.Category) {
			if attempt < MaxAttempts {
				violation = fmt.Sprintf("unknown category %q", c.Category)
				e.logger.Warn("Oracle named unknown category",
					"attempt", attempt,
					"category", c.Category)
				return fmt.Errorf("%w: %s", common.ErrOracleContractViolation, violation)
			}
			c.UnknownCategory = true
		}

		candidate = c
		return nil
	}, service.RetryOptions{
		MaxAttempts:  MaxAttempts,
		InitialDelay: e.retryDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	ext := &Extraction{
		TransactionID: e.newID(),
		Candidate:     candidate,
		Attempts:      attempts,
	}

	e.logger.Debug("Candidate extracted",
		"transaction_id", ext.TransactionID,
		"category", candidate.Category,
		"confidence", candidate.Confidence,
		"unknown_category", candidate.UnknownCategory,
		"attempts", attempts)

	return ext, nil
}

// checkProposal applies the value ranges of the output contract.
func checkProposal(p llm.Proposal) (model.CandidateRecord, error) {
	var problems []string

	amount := gst.RoundAmount(p.Amount)
	if math.IsNaN(p.Amount) || math.IsInf(p.Amount, 0) || amount <= 0 {
		problems = append(problems, fmt.Sprintf("amount %v is not a positive number", p.Amount))
	}
	if math.IsNaN(p.Confidence) || p.Confidence < 0 || p.Confidence > 1 {
		problems = append(problems, fmt.Sprintf("confidence %v outside [0,1]", p.Confidence))
	}
	explanation := strings.TrimSpace(p.Explanation)
	if explanation == "" {
		problems = append(problems, "explanation is empty")
	}

	if len(problems) > 0 {
		return model.CandidateRecord{}, fmt.Errorf("%w: %s", common.ErrOracleContractViolation, strings.Join(problems, "; "))
	}

	return model.CandidateRecord{
		Amount:      amount,
		Category:    spec.NormalizeKey(p.Category),
		GSTRate:     p.GSTRate,
		Confidence:  p.Confidence,
		Explanation: explanation,
		RuleApplied: strings.TrimSpace(p.RuleApplied),
	}, nil
}
