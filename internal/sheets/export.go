package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"github.com/Shlokpalrecha/Finguru/internal/service"
)

// EntrySource lists committed ledger entries for a date range. Empty bounds
// are open.
type EntrySource interface {
	ListEntriesBetween(ctx context.Context, start, end string) ([]model.LedgerEntry, error)
}

// Exporter builds a report from the ledger and hands it to a ReportWriter.
type Exporter struct {
	source     EntrySource
	writer     ReportWriter
	logger     *slog.Logger
	categories []model.ExpenseCategory
}

// NewExporter creates an exporter over source, labeling categories from cats.
func NewExporter(source EntrySource, writer ReportWriter, cats []model.ExpenseCategory, logger *slog.Logger) *Exporter {
	return &Exporter{
		source:     source,
		writer:     writer,
		categories: cats,
		logger:     common.OrDefault(logger),
	}
}

// Export writes every entry dated within [start, end]. Zero times leave that
// side of the range open.
func (e *Exporter) Export(ctx context.Context, start, end time.Time) (*Report, error) {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return nil, fmt.Errorf("%w: end date %s is before start date %s",
			common.ErrInvalidInput, end.Format(model.DateLayout), start.Format(model.DateLayout))
	}

	var from, to string
	if !start.IsZero() {
		from = start.Format(model.DateLayout)
	}
	if !end.IsZero() {
		to = end.Format(model.DateLayout)
	}

	entries, err := e.source.ListEntriesBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries: %w", err)
	}

	report := BuildReport(entries, e.categories, service.DateRange{Start: start, End: end})
	if err := e.writer.Write(ctx, report); err != nil {
		return nil, err
	}

	e.logger.Info("Exported ledger", "entries", len(report.Entries), "range", formatRange(report.DateRange))
	return report, nil
}
