// Package llm provides the generative oracle that proposes a structured
// expense record from raw receipt or voice text. It supports OpenAI-compatible
// endpoints (OpenAI, OpenRouter) and Anthropic, with rate limiting and a
// scriptable mock for tests.
//
// The oracle is untrusted: every Proposal is checked by the caller against the
// accounting specification before it reaches the ledger.
package llm
