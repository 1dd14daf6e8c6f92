// Package validator reconciles an oracle candidate with the accounting
// specification. The category is re-derived from keywords, the GST rate always
// comes from the specification, and disagreement costs confidence.
package validator

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/gst"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/spec"
	"golang.org/x/text/cases"
)

// Default penalties subtracted from confidence.
const (
	DefaultDisagreementPenalty = 0.15
	DefaultFallbackPenalty     = 0.15
)

// Config holds reconciliation settings.
type Config struct {
	GSTMode             gst.Mode
	DisagreementPenalty float64
	FallbackPenalty     float64
}

// DefaultConfig returns the standard penalties in additive GST mode.
func DefaultConfig() Config {
	return Config{
		GSTMode:             gst.Additive,
		DisagreementPenalty: DefaultDisagreementPenalty,
		FallbackPenalty:     DefaultFallbackPenalty,
	}
}

// Validator is stateless apart from its configuration and safe for concurrent use.
type Validator struct {
	logger *slog.Logger
	cfg    Config
}

// New creates a Validator.
func New(cfg Config, logger *slog.Logger) *Validator {
	return &Validator{cfg: cfg, logger: common.OrDefault(logger)}
}

// Validate reconciles cand for the signal it was extracted from. Rules apply in
// priority order: an unknown category is replaced by the first keyword match
// or the fallback; a known category that disagrees with the first keyword
// match is kept but flagged; otherwise the oracle's category stands.
func (v *Validator) Validate(snap *spec.Snapshot, transactionID string, sig model.Signal, cand model.CandidateRecord) model.ValidatedRecord {
	match, hasMatch := snap.BestMatch(sig.RawText)

	rec := model.ValidatedRecord{
		TransactionID:    transactionID,
		OracleCategory:   cand.Category,
		Amount:           gst.RoundAmount(cand.Amount),
		OracleConfidence: cand.Confidence,
	}
	if hasMatch {
		rec.MatchedCategory = match.Category
		rec.MatchedKeyword = match.Keyword
	}

	var provenance string
	known := !cand.UnknownCategory && snap.Has(cand.Category)

	switch {
	case !known && hasMatch:
		rec.Category = match.Category
		rec.Overridden = true
		rec.Penalty = v.cfg.FallbackPenalty
		provenance = fmt.Sprintf("Category %q is not in the specification; overridden to %s by keyword %q.",
			cand.Category, match.Category, match.Keyword)

	case !known:
		rec.Category = snap.Fallback().Key
		rec.Penalty = v.cfg.FallbackPenalty
		provenance = fmt.Sprintf("Category %q is not in the specification and no keyword matched; fell back to %s.",
			cand.Category, rec.Category)

	case hasMatch && match.Category != cand.Category:
		rec.Category = cand.Category
		rec.Disagreement = true
		rec.Penalty = v.cfg.DisagreementPenalty
		provenance = fmt.Sprintf("Keyword %q suggests %s; kept %s and flagged the disagreement.",
			match.Keyword, match.Category, cand.Category)

	case hasMatch:
		rec.Category = cand.Category
		if !mentions(cand.Explanation, match.Keyword) {
			provenance = fmt.Sprintf("Categorized as %s by keyword %q.", rec.Category, match.Keyword)
		}

	default:
		rec.Category = cand.Category
		rule := cand.RuleApplied
		if rule == "" {
			rule = "oracle judgement"
		}
		if !mentions(cand.Explanation, rule) {
			provenance = fmt.Sprintf("Categorized as %s by rule: %s.", rec.Category, rule)
		}
	}

	rec.Fallback = snap.IsFallback(rec.Category)
	rec.Explanation = appendSentence(cand.Explanation, provenance)

	cat, err := snap.LookupCategory(rec.Category)
	if err != nil {
		// Unreachable for a validated snapshot: every branch resolves to a declared key.
		cat = snap.Fallback()
		rec.Category = cat.Key
		rec.Fallback = true
	}
	rec.GSTRate = cat.GSTRate
	rec.GSTAmount = gst.Compute(rec.Amount, rec.GSTRate, v.cfg.GSTMode)

	base := cand.Confidence
	if sig.SourceConfidence > 0 && sig.SourceConfidence < base {
		base = sig.SourceConfidence
	}
	rec.Confidence = clampConfidence(base - rec.Penalty)

	v.logger.Info("Candidate reconciled",
		"transaction_id", transactionID,
		"category", rec.Category,
		"oracle_category", rec.OracleCategory,
		"matched_keyword", rec.MatchedKeyword,
		"disagreement", rec.Disagreement,
		"overridden", rec.Overridden,
		"fallback", rec.Fallback,
		"confidence", rec.Confidence)

	return rec
}

func mentions(text, token string) bool {
	if token == "" {
		return true
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(text), fold.String(token))
}

func appendSentence(text, sentence string) string {
	text = strings.TrimSpace(text)
	switch {
	case sentence == "":
		return text
	case text == "":
		return sentence
	case strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?"):
		return text + " " + sentence
	default:
		return text + ". " + sentence
	}
}

func clampConfidence(c float64) float64 {
	c = math.Round(c*10000) / 10000
	switch {
	case math.IsNaN(c) || c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
