package model

import "time"

// DateLayout is the ledger's calendar date format.
const DateLayout = "2006-01-02"

// Signal is one loosely structured expense input: OCR text from a receipt or a
// speech transcript, plus whatever the upstream extractor could pick out.
type Signal struct {
	Source           Source
	RawText          string
	VendorName       string
	VendorGSTIN      string
	Date             string  // YYYY-MM-DD; empty means the processing day
	AmountHint       float64 // pre-extracted total, 0 when unknown
	SourceConfidence float64 // OCR/STT confidence, 0 when unknown
}

// EntryDate returns the ledger date for the signal.
func (s Signal) EntryDate(now time.Time) string {
	if s.Date != "" {
		if d, err := time.Parse(DateLayout, s.Date); err == nil {
			return d.Format(DateLayout)
		}
	}
	return now.Format(DateLayout)
}
