package pending

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/model"
)

// MemoryStore is a process-local Store with a background sweeper. Use it only
// when a single process serves both processing and confirmation.
type MemoryStore struct {
	items    map[string]model.PendingDecision
	logger   *slog.Logger
	now      func() time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.RWMutex
	stopOnce sync.Once
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger used by the sweeper.
func WithLogger(logger *slog.Logger) MemoryOption {
	return func(m *MemoryStore) {
		m.logger = common.OrDefault(logger)
	}
}

// NewMemoryStore creates a store whose sweeper runs every sweepInterval.
// A non-positive interval disables the sweeper; expired entries are still
// invisible to readers.
func NewMemoryStore(sweepInterval time.Duration, opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		items:  make(map[string]model.PendingDecision),
		logger: slog.Default(),
		now:    time.Now,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if sweepInterval > 0 {
		go m.sweep(sweepInterval)
	} else {
		close(m.doneCh)
	}

	return m
}

// Put stores or replaces d.
func (m *MemoryStore) Put(ctx context.Context, d model.PendingDecision) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.TransactionID == "" {
		return fmt.Errorf("%w: pending decision has no transaction id", common.ErrInvalidInput)
	}

	m.mu.Lock()
	m.items[d.TransactionID] = d
	m.mu.Unlock()
	return nil
}

// Get returns the unexpired decision for transactionID.
func (m *MemoryStore) Get(ctx context.Context, transactionID string) (*model.PendingDecision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	d, ok := m.items[transactionID]
	m.mu.RUnlock()

	if !ok || d.Expired(m.now()) {
		return nil, fmt.Errorf("%w: %s", common.ErrPendingNotFound, transactionID)
	}
	return &d, nil
}

// Delete removes the decision for transactionID.
func (m *MemoryStore) Delete(ctx context.Context, transactionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.items[transactionID]
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrPendingNotFound, transactionID)
	}
	delete(m.items, transactionID)
	if d.Expired(m.now()) {
		return fmt.Errorf("%w: %s", common.ErrPendingNotFound, transactionID)
	}
	return nil
}

// List returns unexpired decisions, oldest first.
func (m *MemoryStore) List(ctx context.Context) ([]model.PendingDecision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := m.now()
	m.mu.RLock()
	out := make([]model.PendingDecision, 0, len(m.items))
	for _, d := range m.items {
		if !d.Expired(now) {
			out = append(out, d)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TransactionID < out[j].TransactionID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Purge drops expired decisions.
func (m *MemoryStore) Purge(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return m.purge(), nil
}

func (m *MemoryStore) purge() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, d := range m.items {
		if d.Expired(now) {
			delete(m.items, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored decisions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryStore) sweep(interval time.Duration) {
	defer close(m.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			if n := m.purge(); n > 0 {
				m.logger.Debug("Expired pending decisions purged", "count", n)
			}
		}
	}
}

// Close stops the sweeper and waits for it to exit.
func (m *MemoryStore) Close() error {
	m.stopOnce.Do(func() { close(m.stopCh) })
	<-m.doneCh
	return nil
}
