package confirm

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/gst"
	"github.com/Shlokpalrecha/Finguru/internal/ledger"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/pending"
	"github.com/Shlokpalrecha/Finguru/internal/spec"
	"github.com/Shlokpalrecha/Finguru/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	resolver *Resolver
	pending  *pending.MemoryStore
	ledger   *ledger.Writer
	specs    *spec.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	specs := testutil.DefaultStore(t)
	store := pending.NewMemoryStore(0, pending.WithClock(func() time.Time { return testNow }))
	t.Cleanup(func() { _ = store.Close() })
	w := ledger.New(db.Storage, gst.Additive, nil)

	return &fixture{
		resolver: New(specs, store, w, gst.Additive, nil, WithClock(func() time.Time { return testNow })),
		pending:  store,
		ledger:   w,
		specs:    specs,
	}
}

// movieTickets is a fallback decision: the oracle said "entertainment" and no
// keyword matched.
func movieTickets(id string) model.PendingDecision {
	return model.PendingDecision{
		TransactionID: id,
		Reason:        "fallback category",
		CreatedAt:     testNow,
		ExpiresAt:     testNow.Add(time.Hour),
		Signal: model.Signal{
			Source:  model.SourceReceipt,
			RawText: "PVR movie tickets 500",
			Date:    "2024-03-14",
		},
		Candidate: model.CandidateRecord{Category: "entertainment", Amount: 500, Confidence: 0.95, Explanation: "Movie tickets"},
		Record: model.ValidatedRecord{
			TransactionID:    id,
			Category:         "miscellaneous",
			OracleCategory:   "entertainment",
			Explanation:      "Movie tickets. Category \"entertainment\" is not in the specification and no keyword matched; fell back to miscellaneous.",
			Amount:           500,
			GSTRate:          18,
			GSTAmount:        90,
			OracleConfidence: 0.95,
			Penalty:          0.15,
			Confidence:       0.8,
			Fallback:         true,
		},
	}
}

func ptr[T any](v T) *T { return &v }

func TestConfirm_NoOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pending.Put(ctx, movieTickets("txn-1")))

	entry, err := f.resolver.Confirm(ctx, Request{TransactionID: "txn-1"})
	require.NoError(t, err)

	assert.Equal(t, "miscellaneous", entry.Category)
	assert.Equal(t, 500.0, entry.Amount)
	assert.Equal(t, 18.0, entry.GSTRate)
	assert.Equal(t, 90.0, entry.GSTAmount)
	assert.Equal(t, 1.0, entry.Confidence)
	assert.Equal(t, "2024-03-14", entry.Date)
	assert.Contains(t, entry.Explanation, "User-confirmed.")

	_, err = f.pending.Get(ctx, "txn-1")
	assert.ErrorIs(t, err, common.ErrPendingNotFound)

	stored, err := f.ledger.Get(ctx, "txn-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, *entry, *stored)
}

// Scenario D: a fallback entry confirmed with a corrected category and amount.
func TestConfirm_Overrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pending.Put(ctx, movieTickets("txn-1")))

	entry, err := f.resolver.Confirm(ctx, Request{
		TransactionID:     "txn-1",
		ConfirmedCategory: ptr("Food"),
		ConfirmedAmount:   ptr(450.0),
	})
	require.NoError(t, err)

	assert.Equal(t, "food", entry.Category)
	assert.Equal(t, 450.0, entry.Amount)
	assert.Equal(t, 5.0, entry.GSTRate, "rate comes from the confirmed category")
	assert.Equal(t, 22.5, entry.GSTAmount)
	assert.Equal(t, 1.0, entry.Confidence)
	assert.Contains(t, entry.Explanation, "User-confirmed as Food & Beverages with corrected amount 450.00.")
}

func TestConfirm_CategoryOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pending.Put(ctx, movieTickets("txn-1")))

	entry, err := f.resolver.Confirm(ctx, Request{TransactionID: "txn-1", ConfirmedCategory: ptr("raw_materials")})
	require.NoError(t, err)
	assert.Equal(t, 12.0, entry.GSTRate)
	assert.Equal(t, 60.0, entry.GSTAmount)
	assert.Contains(t, entry.Explanation, "User-confirmed as Raw Materials.")
}

func TestConfirm_AmountOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pending.Put(ctx, movieTickets("txn-1")))

	entry, err := f.resolver.Confirm(ctx, Request{TransactionID: "txn-1", ConfirmedAmount: ptr(99.999)})
	require.NoError(t, err)
	assert.Equal(t, 100.0, entry.Amount)
	assert.Equal(t, 18.0, entry.GSTAmount)
	assert.Contains(t, entry.Explanation, "corrected amount 100.00")
}

func TestConfirm_InvalidOverridesKeepPending(t *testing.T) {
	tests := []struct {
		req  Request
		name string
	}{
		{name: "zero amount", req: Request{ConfirmedAmount: ptr(0.0)}},
		{name: "negative amount", req: Request{ConfirmedAmount: ptr(-10.0)}},
		{name: "rounds to zero", req: Request{ConfirmedAmount: ptr(0.004)}},
		{name: "nan amount", req: Request{ConfirmedAmount: ptr(math.NaN())}},
		{name: "infinite amount", req: Request{ConfirmedAmount: ptr(math.Inf(1))}},
		{name: "unknown category", req: Request{ConfirmedCategory: ptr("entertainment")}},
		{name: "empty category", req: Request{ConfirmedCategory: ptr("  ")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, f.pending.Put(ctx, movieTickets("txn-1")))

			tt.req.TransactionID = "txn-1"
			_, err := f.resolver.Confirm(ctx, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidInput)

			_, err = f.pending.Get(ctx, "txn-1")
			assert.NoError(t, err, "pending decision is kept")

			stored, err := f.ledger.Get(ctx, "txn-1")
			require.NoError(t, err)
			assert.Nil(t, stored)
		})
	}
}

func TestConfirm_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.resolver.Confirm(ctx, Request{TransactionID: "never"})
	assert.ErrorIs(t, err, common.ErrPendingNotFound)
	assert.False(t, common.IsRetryable(err))
}

func TestConfirm_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pending.Put(ctx, movieTickets("txn-1")))

	_, err := f.resolver.Confirm(ctx, Request{TransactionID: "txn-1"})
	require.NoError(t, err)

	_, err = f.resolver.Confirm(ctx, Request{TransactionID: "txn-1"})
	assert.ErrorIs(t, err, common.ErrPendingNotFound)
}

func TestConfirm_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := movieTickets("txn-1")
	d.CreatedAt = testNow.Add(-25 * time.Hour)
	d.ExpiresAt = testNow.Add(-time.Hour)
	require.NoError(t, f.pending.Put(ctx, d))

	_, err := f.resolver.Confirm(ctx, Request{TransactionID: "txn-1"})
	assert.ErrorIs(t, err, common.ErrPendingNotFound)
}

func TestConfirm_CategoryRemovedOnReload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pending.Put(ctx, movieTickets("txn-1")))

	f.specs.Swap(testutil.NewSpecBuilder(t).
		WithCategory("food", 5, "chai").
		WithCategory("other", 18, "other").
		Build())

	_, err := f.resolver.Confirm(ctx, Request{TransactionID: "txn-1"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	entry, err := f.resolver.Confirm(ctx, Request{TransactionID: "txn-1", ConfirmedCategory: ptr("other")})
	require.NoError(t, err)
	assert.Equal(t, "other", entry.Category)
}

func TestConfirm_MixedCaseSpecKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pending.Put(ctx, movieTickets("txn-1")))

	f.specs.Swap(testutil.NewSpecBuilder(t).
		WithCategory("Food", 5, "chai").
		WithCategory("Misc", 18, "misc").
		Build())

	entry, err := f.resolver.Confirm(ctx, Request{TransactionID: "txn-1", ConfirmedCategory: ptr("Food")})
	require.NoError(t, err)
	assert.Equal(t, "food", entry.Category)
	assert.Equal(t, 5.0, entry.GSTRate)
}

type failingCommitter struct{}

func (failingCommitter) Commit(context.Context, model.LedgerEntry) (model.LedgerEntry, bool, error) {
	return model.LedgerEntry{}, false, errors.New("disk full")
}

func TestConfirm_CommitFailureKeepsPending(t *testing.T) {
	store := pending.NewMemoryStore(0, pending.WithClock(func() time.Time { return testNow }))
	defer func() { _ = store.Close() }()
	r := New(testutil.DefaultStore(t), store, failingCommitter{}, gst.Additive, nil)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, movieTickets("txn-1")))

	_, err := r.Confirm(ctx, Request{TransactionID: "txn-1"})
	require.Error(t, err)

	_, err = store.Get(ctx, "txn-1")
	assert.NoError(t, err)
}

// Finalization holds for every category: confidence 1 and GST from the
// confirmed category.
func TestConfirm_FinalizationProperty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, cat := range f.specs.Current().Categories() {
		id := "txn-" + cat.Key
		d := movieTickets(id)
		d.Record.TransactionID = id
		require.NoError(t, f.pending.Put(ctx, d))

		entry, err := f.resolver.Confirm(ctx, Request{TransactionID: id, ConfirmedCategory: ptr(cat.Key)})
		require.NoError(t, err)
		assert.Equal(t, 1.0, entry.Confidence)
		assert.Equal(t, cat.GSTRate, entry.GSTRate)
		assert.Equal(t, gst.Compute(500, cat.GSTRate, gst.Additive), entry.GSTAmount)
	}
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pending.Put(ctx, movieTickets("txn-1")))

	require.NoError(t, f.resolver.Reject(ctx, "txn-1"))
	assert.ErrorIs(t, f.resolver.Reject(ctx, "txn-1"), common.ErrPendingNotFound)

	stored, err := f.ledger.Get(ctx, "txn-1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}
