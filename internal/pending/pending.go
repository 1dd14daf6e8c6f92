// Package pending holds decisions awaiting human confirmation.
package pending

import (
	"context"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/model"
)

// DefaultTTL is how long a decision stays confirmable.
const DefaultTTL = 24 * time.Hour

// Store keeps pending decisions keyed by transaction id. Expired decisions
// behave as absent. Get and Delete return an error wrapping
// common.ErrPendingNotFound for unknown or expired ids.
type Store interface {
	Put(ctx context.Context, d model.PendingDecision) error
	Get(ctx context.Context, transactionID string) (*model.PendingDecision, error)
	Delete(ctx context.Context, transactionID string) error
	// List returns unexpired decisions, oldest first.
	List(ctx context.Context) ([]model.PendingDecision, error)
	// Purge removes expired decisions and reports how many were dropped.
	Purge(ctx context.Context) (int, error)
}
