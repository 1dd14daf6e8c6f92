package model

import "time"

// PendingDecision holds a candidate awaiting human confirmation.
type PendingDecision struct {
	CreatedAt     time.Time       `json:"created_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
	TransactionID string          `json:"transaction_id"`
	Reason        string          `json:"reason"`
	Signal        Signal          `json:"signal"`
	Candidate     CandidateRecord `json:"candidate"`
	Record        ValidatedRecord `json:"record"`
}

// Expired reports whether the decision's confirmation window has closed.
func (p PendingDecision) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}
