package llm

import (
	"context"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/model"
)

// Oracle proposes a structured expense record for raw text.
//
// Implementations wrap transport, timeout and non-success HTTP failures in
// common.ErrOracleUnavailable, and malformed or incomplete output in
// common.ErrOracleContractViolation.
type Oracle interface {
	Propose(ctx context.Context, req Request) (Proposal, error)
}

// Hints carries values an upstream OCR/STT step already extracted.
type Hints struct {
	Vendor string
	Date   string
	Amount float64
}

// CategoryOption describes one allowed category to the oracle.
type CategoryOption struct {
	Key         string
	DisplayName string
	Keywords    []string
	GSTRate     float64
}

// Request is one oracle invocation.
type Request struct {
	Hints      Hints
	Text       string
	Source     model.Source
	Categories []CategoryOption
	// Strict asks for the tightened re-prompt used after a contract violation.
	Strict bool
	// Violation describes what was wrong with the previous answer, if any.
	Violation string
}

// CategoryKeys returns the enumerated keys in request order.
func (r Request) CategoryKeys() []string {
	keys := make([]string, len(r.Categories))
	for i, c := range r.Categories {
		keys[i] = c.Key
	}
	return keys
}

// Proposal is the oracle's structured answer. Fields are reported as given;
// range checks belong to the caller.
type Proposal struct {
	Category     string  `json:"category"`
	RuleApplied  string  `json:"rule_applied"`
	GSTReasoning string  `json:"gst_reasoning"`
	Explanation  string  `json:"explanation"`
	Amount       float64 `json:"amount"`
	GSTRate      float64 `json:"gst_rate"`
	Confidence   float64 `json:"confidence"`
}

// Config describes how to reach a provider.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	RateLimit   int // requests per minute; 0 disables limiting
	Temperature float64
	MaxTokens   int
}

// CategoryOptions converts specification categories for a Request.
func CategoryOptions(cats []model.ExpenseCategory) []CategoryOption {
	out := make([]CategoryOption, len(cats))
	for i, c := range cats {
		out[i] = CategoryOption{
			Key:         c.Key,
			DisplayName: c.DisplayName,
			Keywords:    c.Keywords,
			GSTRate:     c.GSTRate,
		}
	}
	return out
}
