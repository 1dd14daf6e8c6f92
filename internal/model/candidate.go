package model

// CandidateRecord is the oracle's unvalidated proposal for one signal.
type CandidateRecord struct {
	Category    string  `json:"category"`
	Explanation string  `json:"explanation"`
	RuleApplied string  `json:"rule_applied"`
	Amount      float64 `json:"amount"`
	GSTRate     float64 `json:"gst_rate"` // informational only
	Confidence  float64 `json:"confidence"`
	// UnknownCategory is set when the oracle kept naming a key outside the
	// specification after the strict re-prompt.
	UnknownCategory bool `json:"unknown_category,omitempty"`
}

// ValidatedRecord is a candidate after reconciliation against the specification.
type ValidatedRecord struct {
	TransactionID    string  `json:"transaction_id"`
	Category         string  `json:"category"`
	OracleCategory   string  `json:"oracle_category"`
	MatchedCategory  string  `json:"matched_category,omitempty"`
	MatchedKeyword   string  `json:"matched_keyword,omitempty"`
	Explanation      string  `json:"explanation"`
	Amount           float64 `json:"amount"`
	GSTRate          float64 `json:"gst_rate"`
	GSTAmount        float64 `json:"gst_amount"`
	OracleConfidence float64 `json:"oracle_confidence"`
	Penalty          float64 `json:"penalty"`
	Confidence       float64 `json:"confidence"`
	Disagreement     bool    `json:"disagreement"`
	Overridden       bool    `json:"overridden"`
	Fallback         bool    `json:"fallback"`
}
