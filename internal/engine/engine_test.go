package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/confirm"
	"github.com/Shlokpalrecha/Finguru/internal/extractor"
	"github.com/Shlokpalrecha/Finguru/internal/gate"
	"github.com/Shlokpalrecha/Finguru/internal/gst"
	"github.com/Shlokpalrecha/Finguru/internal/ledger"
	"github.com/Shlokpalrecha/Finguru/internal/llm"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/pending"
	"github.com/Shlokpalrecha/Finguru/internal/spec"
	"github.com/Shlokpalrecha/Finguru/internal/testutil"
	"github.com/Shlokpalrecha/Finguru/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipeline struct {
	engine   *Engine
	ledger   *ledger.Writer
	pending  *pending.MemoryStore
	resolver *confirm.Resolver
	specs    *spec.Store
}

func newPipeline(t *testing.T, oracle llm.Oracle) *pipeline {
	t.Helper()

	db := testutil.SetupTestDB(t)
	specs := testutil.DefaultStore(t)
	store := pending.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })

	w := ledger.New(db.Storage, gst.Additive, nil)
	g := gate.New(w, store, gate.DefaultThreshold, nil)
	ext := extractor.New(oracle, nil, extractor.WithRetryDelay(0))
	val := validator.New(validator.DefaultConfig(), nil)

	return &pipeline{
		engine:   New(specs, ext, val, g, nil, WithWorkers(3)),
		ledger:   w,
		pending:  store,
		resolver: confirm.New(specs, store, w, gst.Additive, nil),
		specs:    specs,
	}
}

func voice(text string) model.Signal {
	return model.Signal{Source: model.SourceVoice, RawText: text}
}

func (p *pipeline) ledgerCount(t *testing.T) int {
	t.Helper()
	entries, err := p.ledger.Query(context.Background(), "", 100)
	require.NoError(t, err)
	return len(entries)
}

func (p *pipeline) pendingCount(t *testing.T) int {
	t.Helper()
	list, err := p.pending.List(context.Background())
	require.NoError(t, err)
	return len(list)
}

func TestScenarioA_AutoCommit(t *testing.T) {
	oracle := llm.NewMockOracle(llm.MockResponse{Proposal: llm.Proposal{
		Amount:      120,
		Category:    "food",
		Confidence:  0.91,
		GSTRate:     5,
		Explanation: "Tea purchase",
		RuleApplied: "beverages",
	}})
	p := newPipeline(t, oracle)

	out, err := p.engine.Process(context.Background(), voice("Aaj chai ke 120 rupaye kharch hue"))
	require.NoError(t, err)

	require.NotNil(t, out.Entry)
	assert.Nil(t, out.Pending)
	assert.False(t, out.Decision.NeedsConfirmation)
	assert.True(t, out.Created)

	e := out.Entry
	assert.Equal(t, "food", e.Category)
	assert.Equal(t, 120.0, e.Amount)
	assert.Equal(t, 5.0, e.GSTRate)
	assert.Equal(t, 6.0, e.GSTAmount)
	assert.Equal(t, 0.91, e.Confidence)
	assert.Equal(t, model.SourceVoice, e.Source)
	assert.Contains(t, e.Explanation, `"chai"`)
	assert.Equal(t, 1, oracle.CallCount())
	assert.Equal(t, 1, p.ledgerCount(t))
}

func TestScenarioB_DisagreementNeedsConfirmation(t *testing.T) {
	for _, confidence := range []float64{0.99, 1.0} {
		t.Run(fmt.Sprintf("confidence %.2f", confidence), func(t *testing.T) {
			p := newPipeline(t, llm.NewMockOracle(llm.MockResponse{Proposal: llm.Proposal{
				Amount:      120,
				Category:    "transport",
				Confidence:  confidence,
				Explanation: "Travel",
			}}))

			out, err := p.engine.Process(context.Background(), voice("Aaj chai ke 120 rupaye kharch hue"))
			require.NoError(t, err)

			assert.Nil(t, out.Entry)
			require.NotNil(t, out.Pending)
			assert.True(t, out.Decision.NeedsConfirmation)
			assert.Equal(t, gate.ReasonDisagreement, out.Decision.Reason)
			assert.True(t, out.Pending.Record.Disagreement)
			assert.Equal(t, "transport", out.Pending.Record.Category)
			assert.Equal(t, "food", out.Pending.Record.MatchedCategory)
			assert.Zero(t, p.ledgerCount(t))
		})
	}
}

func TestScenarioC_UnknownCategoryFallsBack(t *testing.T) {
	oracle := llm.NewMockOracle(llm.MockResponse{Proposal: llm.Proposal{
		Amount:      500,
		Category:    "entertainment",
		Confidence:  0.95,
		Explanation: "Movie tickets",
	}})
	p := newPipeline(t, oracle)

	out, err := p.engine.Process(context.Background(), model.Signal{Source: model.SourceReceipt, RawText: "PVR movie tickets 500"})
	require.NoError(t, err)

	require.NotNil(t, out.Pending)
	assert.Equal(t, gate.ReasonFallback, out.Decision.Reason)
	rec := out.Pending.Record
	assert.Equal(t, "miscellaneous", rec.Category)
	assert.True(t, rec.Fallback)
	assert.Equal(t, validator.DefaultFallbackPenalty, rec.Penalty)
	assert.InDelta(t, 0.8, rec.Confidence, 1e-9)
	assert.Contains(t, rec.Explanation, "fell back to miscellaneous")
	assert.Equal(t, 18.0, rec.GSTRate)
	assert.Equal(t, 90.0, rec.GSTAmount)

	// The unknown key is re-prompted once under the strict contract.
	require.Equal(t, 2, oracle.CallCount())
	assert.True(t, oracle.Calls()[1].Strict)
	assert.Zero(t, p.ledgerCount(t))
}

func TestScenarioD_ConfirmCorrectedCategory(t *testing.T) {
	p := newPipeline(t, llm.NewMockOracle(llm.MockResponse{Proposal: llm.Proposal{
		Amount:      500,
		Category:    "entertainment",
		Confidence:  0.95,
		Explanation: "Unclear purchase",
	}}))
	ctx := context.Background()

	out, err := p.engine.Process(ctx, model.Signal{Source: model.SourceReceipt, RawText: "PVR movie tickets 500"})
	require.NoError(t, err)
	require.NotNil(t, out.Pending)
	require.Equal(t, "miscellaneous", out.Pending.Record.Category)

	category := "office_supplies"
	entry, err := p.resolver.Confirm(ctx, confirm.Request{
		TransactionID:     out.Pending.TransactionID,
		ConfirmedCategory: &category,
	})
	require.NoError(t, err)

	assert.Equal(t, out.Pending.TransactionID, entry.TransactionID, "id is stable across confirmation")
	assert.Equal(t, "office_supplies", entry.Category)
	assert.Equal(t, 18.0, entry.GSTRate)
	assert.Equal(t, 90.0, entry.GSTAmount)
	assert.Equal(t, 1.0, entry.Confidence)
	assert.Contains(t, entry.Explanation, "User-confirmed")
	assert.Equal(t, 1, p.ledgerCount(t))
	assert.Zero(t, p.pendingCount(t))
}

func TestScenarioE_OracleTimesOutTwice(t *testing.T) {
	oracle := llm.NewMockOracle(llm.MockResponse{
		Err: fmt.Errorf("%w: %w", common.ErrOracleUnavailable, context.DeadlineExceeded),
	})
	p := newPipeline(t, oracle)

	out, err := p.engine.Process(context.Background(), voice("Aaj chai ke 120 rupaye kharch hue"))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, common.ErrOracleUnavailable)
	assert.Equal(t, 2, oracle.CallCount())
	assert.Zero(t, p.ledgerCount(t))
	assert.Zero(t, p.pendingCount(t))
}

func TestProcess_LowConfidence(t *testing.T) {
	p := newPipeline(t, llm.NewMockOracle(llm.MockResponse{Proposal: llm.Proposal{
		Amount: 250, Category: "transport", Confidence: 0.6, Explanation: "Uber ride",
	}}))

	out, err := p.engine.Process(context.Background(), voice("uber ride to office 250"))
	require.NoError(t, err)
	require.NotNil(t, out.Pending)
	assert.Equal(t, gate.ReasonLowConfidence, out.Decision.Reason)
}

func TestProcess_SourceConfidenceCaps(t *testing.T) {
	p := newPipeline(t, llm.NewMockOracle(llm.MockResponse{Proposal: llm.Proposal{
		Amount: 500, Category: "office_supplies", Confidence: 0.97, Explanation: "Copier paper",
	}}))

	sig := model.Signal{Source: model.SourceReceipt, RawText: "A4 paper ream 500", SourceConfidence: 0.7}
	out, err := p.engine.Process(context.Background(), sig)
	require.NoError(t, err)
	require.NotNil(t, out.Pending)
	assert.Equal(t, 0.7, out.Pending.Record.Confidence)
}

func TestProcess_InvalidSignal(t *testing.T) {
	oracle := llm.NewMockOracle()
	p := newPipeline(t, oracle)

	_, err := p.engine.Process(context.Background(), voice("   "))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Zero(t, oracle.CallCount())
}

func TestProcess_UsesReloadedSpec(t *testing.T) {
	p := newPipeline(t, llm.NewMockOracle(llm.MockResponse{Proposal: llm.Proposal{
		Amount: 100, Category: "snacks", Confidence: 0.95, Explanation: "Samosa",
	}}))

	p.specs.Swap(testutil.NewSpecBuilder(t).
		WithCategory("snacks", 5, "samosa").
		WithCategory("other", 18, "other").
		Build())

	out, err := p.engine.Process(context.Background(), voice("two samosa 100"))
	require.NoError(t, err)
	require.NotNil(t, out.Entry)
	assert.Equal(t, "snacks", out.Entry.Category)
}

func TestProcessBatch(t *testing.T) {
	oracle := &llm.MockOracle{
		ProposeFunc: func(_ context.Context, req llm.Request) (llm.Proposal, error) {
			switch {
			case strings.Contains(req.Text, "fail"):
				return llm.Proposal{}, fmt.Errorf("%w: connection refused", common.ErrOracleUnavailable)
			case strings.Contains(req.Text, "chai"):
				return llm.Proposal{Amount: 20, Category: "food", Confidence: 0.95, Explanation: "chai"}, nil
			default:
				return llm.Proposal{Amount: 300, Category: "office_supplies", Confidence: 0.6, Explanation: "paper"}, nil
			}
		},
	}
	p := newPipeline(t, oracle)

	signals := []model.Signal{
		voice("chai 20"),
		voice("fail please"),
		voice("printer paper 300"),
		voice("chai again 20"),
		voice("fail again"),
		voice("more paper 300"),
	}

	var (
		mu   sync.Mutex
		seen []int
	)
	results := p.engine.ProcessBatch(context.Background(), signals, func(r BatchResult) {
		mu.Lock()
		seen = append(seen, r.Index)
		mu.Unlock()
	})

	require.Len(t, results, len(signals))
	assert.Len(t, seen, len(signals))

	for i, r := range results {
		assert.Equal(t, i, r.Index)
		switch {
		case strings.Contains(signals[i].RawText, "fail"):
			assert.ErrorIs(t, r.Err, common.ErrOracleUnavailable)
			assert.Nil(t, r.Outcome)
		case strings.Contains(signals[i].RawText, "chai"):
			require.NoError(t, r.Err)
			assert.NotNil(t, r.Outcome.Entry)
		default:
			require.NoError(t, r.Err)
			assert.NotNil(t, r.Outcome.Pending)
		}
	}
	assert.Equal(t, 2, p.ledgerCount(t))
	assert.Equal(t, 2, p.pendingCount(t))
}

func TestProcessBatch_Canceled(t *testing.T) {
	p := newPipeline(t, llm.NewMockOracle(llm.MockResponse{Proposal: llm.Proposal{
		Amount: 20, Category: "food", Confidence: 0.95, Explanation: "chai",
	}}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := p.engine.ProcessBatch(ctx, []model.Signal{voice("chai 20"), voice("chai 30")}, nil)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Zero(t, p.ledgerCount(t))
}

func TestProcess_IDsAreUnique(t *testing.T) {
	p := newPipeline(t, llm.NewMockOracle(llm.MockResponse{Proposal: llm.Proposal{
		Amount: 20, Category: "food", Confidence: 0.95, Explanation: "chai",
	}}))

	signals := make([]model.Signal, 10)
	for i := range signals {
		signals[i] = voice(fmt.Sprintf("chai %d", i+1))
	}
	results := p.engine.ProcessBatch(context.Background(), signals, nil)

	ids := map[string]bool{}
	for _, r := range results {
		require.NoError(t, r.Err)
		ids[r.Outcome.Entry.TransactionID] = true
	}
	assert.Len(t, ids, 10)
	assert.Equal(t, 10, p.ledgerCount(t))
}
