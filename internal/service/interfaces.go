// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"io"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/model"
)

// EntryFilter defines filtering options for ledger queries.
type EntryFilter struct {
	Date   string // YYYY-MM-DD, empty for all dates
	Source model.Source
	Limit  int
}

// LedgerStorage defines the contract for ledger persistence.
type LedgerStorage interface {
	// InsertEntry stores entry unless its transaction id already exists.
	// It reports whether a new row was written.
	InsertEntry(ctx context.Context, entry model.LedgerEntry) (bool, error)
	// GetEntry returns nil without error when the id is unknown.
	GetEntry(ctx context.Context, transactionID string) (*model.LedgerEntry, error)
	DeleteEntry(ctx context.Context, transactionID string) error
	ListEntries(ctx context.Context, filter EntryFilter) ([]model.LedgerEntry, error)
	ListEntriesBetween(ctx context.Context, start, end string) ([]model.LedgerEntry, error)
	SummarizeDay(ctx context.Context, date string) (*model.Summary, error)
	SummarizeRange(ctx context.Context, start, end string) (*model.RangeSummary, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// ReceiptExtraction is what an OCR service reads off a receipt image.
type ReceiptExtraction struct {
	RawText     string
	VendorName  string
	VendorGSTIN string
	Date        string
	Total       float64
	Confidence  float64
}

// Signal converts the extraction into a pipeline input.
func (r ReceiptExtraction) Signal() model.Signal {
	return model.Signal{
		Source:           model.SourceReceipt,
		RawText:          r.RawText,
		VendorName:       r.VendorName,
		VendorGSTIN:      r.VendorGSTIN,
		Date:             r.Date,
		AmountHint:       r.Total,
		SourceConfidence: r.Confidence,
	}
}

// Transcription is what a speech-to-text service hears in a voice note.
type Transcription struct {
	Text       string
	Language   string
	Confidence float64
}

// Signal converts the transcription into a pipeline input.
func (t Transcription) Signal() model.Signal {
	return model.Signal{
		Source:           model.SourceVoice,
		RawText:          t.Text,
		SourceConfidence: t.Confidence,
	}
}

// ReceiptScanner reads text from a receipt image.
type ReceiptScanner interface {
	Scan(ctx context.Context, image io.Reader) (ReceiptExtraction, error)
}

// Transcriber converts a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (Transcription, error)
}

// DateRange represents a time period with start and end dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
