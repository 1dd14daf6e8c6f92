package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/Shlokpalrecha/Finguru/internal/common"
)

// MockResponse is one scripted oracle answer.
type MockResponse struct {
	Err      error
	Proposal Proposal
}

// MockOracle replays scripted responses in order and records every request.
// Once the script is exhausted the last response repeats.
type MockOracle struct {
	ProposeFunc func(ctx context.Context, req Request) (Proposal, error)
	responses   []MockResponse
	calls       []Request
	mu          sync.Mutex
}

// NewMockOracle creates a mock that answers with responses in order.
func NewMockOracle(responses ...MockResponse) *MockOracle {
	return &MockOracle{responses: responses}
}

// Propose implements Oracle.
func (m *MockOracle) Propose(ctx context.Context, req Request) (Proposal, error) {
	m.mu.Lock()
	idx := len(m.calls)
	m.calls = append(m.calls, req)
	fn := m.ProposeFunc
	var resp MockResponse
	scripted := len(m.responses) > 0
	if scripted {
		if idx >= len(m.responses) {
			idx = len(m.responses) - 1
		}
		resp = m.responses[idx]
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Proposal{}, err
	}
	if fn != nil {
		return fn(ctx, req)
	}
	if !scripted {
		return Proposal{}, fmt.Errorf("%w: mock oracle has no scripted response", common.ErrOracleUnavailable)
	}
	return resp.Proposal, resp.Err
}

// Calls returns a copy of the recorded requests.
func (m *MockOracle) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times Propose was called.
func (m *MockOracle) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
