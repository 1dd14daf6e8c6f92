package model

import "time"

// LedgerEntry is the persisted unit. Its JSON shape is consumed by the API and
// UI layers and must not change.
type LedgerEntry struct {
	TransactionID string  `json:"transaction_id"`
	Date          string  `json:"date"`
	Category      string  `json:"category"`
	Source        Source  `json:"source"`
	Explanation   string  `json:"explanation"`
	VendorName    string  `json:"vendor_name,omitempty"`
	VendorGSTIN   string  `json:"vendor_gstin,omitempty"`
	RawText       string  `json:"raw_text,omitempty"`
	CreatedAt     string  `json:"created_at"`
	Amount        float64 `json:"amount"`
	GSTRate       float64 `json:"gst_rate"`
	GSTAmount     float64 `json:"gst_amount"`
	Confidence    float64 `json:"confidence"`
}

// NewLedgerEntry assembles the entry for a validated record and its signal.
func NewLedgerEntry(sig Signal, rec ValidatedRecord, now time.Time) LedgerEntry {
	return LedgerEntry{
		TransactionID: rec.TransactionID,
		Date:          sig.EntryDate(now),
		Amount:        rec.Amount,
		Category:      rec.Category,
		GSTRate:       rec.GSTRate,
		GSTAmount:     rec.GSTAmount,
		Source:        sig.Source,
		Confidence:    rec.Confidence,
		Explanation:   rec.Explanation,
		VendorName:    sig.VendorName,
		VendorGSTIN:   sig.VendorGSTIN,
		RawText:       sig.RawText,
		CreatedAt:     now.UTC().Format(time.RFC3339),
	}
}
