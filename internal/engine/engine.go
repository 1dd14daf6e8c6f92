// Package engine runs signals through extraction, reconciliation and the
// confidence gate.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/extractor"
	"github.com/Shlokpalrecha/Finguru/internal/gate"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/spec"
	"github.com/Shlokpalrecha/Finguru/internal/validator"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds ProcessBatch concurrency.
const DefaultWorkers = 4

// Engine is safe for concurrent use. Each call reads the current
// specification once, so a reload never splits a signal across two versions.
type Engine struct {
	specs     *spec.Store
	extractor *extractor.Extractor
	validator *validator.Validator
	gate      *gate.Gate
	logger    *slog.Logger
	workers   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the ProcessBatch concurrency limit.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// New wires the pipeline stages together.
func New(specs *spec.Store, ext *extractor.Extractor, val *validator.Validator, g *gate.Gate, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		specs:     specs,
		extractor: ext,
		validator: val,
		gate:      g,
		logger:    common.OrDefault(logger),
		workers:   DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process turns one signal into a committed entry or a pending decision.
// Oracle failures leave neither behind.
func (e *Engine) Process(ctx context.Context, sig model.Signal) (*gate.Outcome, error) {
	snap := e.specs.Current()

	ext, err := e.extractor.Extract(ctx, snap, sig)
	if err != nil {
		return nil, err
	}

	rec := e.validator.Validate(snap, ext.TransactionID, sig, ext.Candidate)

	outcome, err := e.gate.Apply(ctx, gate.Validated{Signal: sig, Candidate: ext.Candidate, Record: rec})
	if err != nil {
		return nil, fmt.Errorf("failed to record %s: %w", ext.TransactionID, err)
	}
	return outcome, nil
}

// BatchResult is the outcome of one signal in a batch.
type BatchResult struct {
	Outcome *gate.Outcome
	Err     error
	Index   int
}

// ProcessBatch processes signals concurrently. A failed signal does not stop
// the others. Results are returned in input order; done, if non-nil, is
// called as each signal finishes.
func (e *Engine) ProcessBatch(ctx context.Context, signals []model.Signal, done func(BatchResult)) []BatchResult {
	results := make([]BatchResult, len(signals))

	var g errgroup.Group
	g.SetLimit(e.workers)

	for i, sig := range signals {
		i, sig := i, sig
		g.Go(func() error {
			outcome, err := e.Process(ctx, sig)
			if err != nil {
				common.LogError(e.logger, err, "Signal failed", common.Fields{"index": i, "source": sig.Source})
			}
			results[i] = BatchResult{Index: i, Outcome: outcome, Err: err}
			if done != nil {
				done(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	e.logger.Info("Batch processed", "signals", len(signals))
	return results
}
