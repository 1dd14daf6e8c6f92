package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ReportWriter publishes a GST report somewhere an accountant can read it.
type ReportWriter interface {
	Write(ctx context.Context, report *Report) error
}

// spreadsheetAPI is the slice of the Sheets API the writer needs.
type spreadsheetAPI interface {
	sheetIDs(ctx context.Context, spreadsheetID string) (map[string]int64, error)
	create(ctx context.Context, title, timeZone string, tabs []string) (string, error)
	addTabs(ctx context.Context, spreadsheetID string, tabs []string) error
	clear(ctx context.Context, spreadsheetID, rng string) error
	update(ctx context.Context, spreadsheetID, rng string, values [][]any) error
	batchUpdate(ctx context.Context, spreadsheetID string, requests []*sheets.Request) error
}

// Writer implements the ReportWriter interface for Google Sheets.
type Writer struct {
	api    spreadsheetAPI
	logger *slog.Logger
	config Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return newWriter(&googleAPI{srv: srv}, config, logger), nil
}

func newWriter(api spreadsheetAPI, config Config, logger *slog.Logger) *Writer {
	return &Writer{
		api:    api,
		config: config,
		logger: common.OrDefault(logger),
	}
}

// Write implements the ReportWriter interface.
func (w *Writer) Write(ctx context.Context, report *Report) error {
	w.logger.Info("starting report generation",
		"entries", len(report.Entries),
		"date_range", formatRange(report.DateRange))

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	ids, err := w.ensureTabs(ctx, spreadsheetID)
	if err != nil {
		return fmt.Errorf("failed to prepare tabs: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	tabs := []struct {
		name   string
		values [][]any
	}{
		{TabLedger, w.ledgerValues(report)},
		{TabSummary, w.summaryValues(report)},
		{TabGSTSlabs, w.slabValues(report)},
	}

	rows := 0
	for _, tab := range tabs {
		if clearErr := w.api.clear(ctx, spreadsheetID, quoteTab(tab.name)+"!A:Z"); clearErr != nil {
			return fmt.Errorf("failed to clear %s: %w", tab.name, clearErr)
		}

		values := tab.values
		name := tab.name
		err = common.WithRetry(ctx, func(_ int) error {
			return w.writeData(ctx, spreadsheetID, name, values)
		}, retryOpts)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		rows += len(values)
	}

	if w.config.EnableFormatting {
		requests := w.formatRequests(ids, report)
		err = common.WithRetry(ctx, func(_ int) error {
			return w.api.batchUpdate(ctx, spreadsheetID, requests)
		}, retryOpts)
		if err != nil {
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("report generation completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", rows)

	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := oauthConfig(config.ClientID, config.ClientSecret, "")
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		tokenSource = client.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet gets an existing spreadsheet or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		if _, err := w.api.sheetIDs(ctx, w.config.SpreadsheetID); err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	name := w.config.SpreadsheetName
	if name == "" {
		name = DefaultSpreadsheetName
	}

	id, err := w.api.create(ctx, name, w.config.TimeZone, Tabs)
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet", "id", id, "name", name)
	w.config.SpreadsheetID = id
	return id, nil
}

// ensureTabs adds any report tab the spreadsheet lacks and returns tab sheet ids.
func (w *Writer) ensureTabs(ctx context.Context, spreadsheetID string) (map[string]int64, error) {
	ids, err := w.api.sheetIDs(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, tab := range Tabs {
		if _, ok := ids[tab]; !ok {
			missing = append(missing, tab)
		}
	}
	if len(missing) == 0 {
		return ids, nil
	}

	if err := w.api.addTabs(ctx, spreadsheetID, missing); err != nil {
		return nil, err
	}
	return w.api.sheetIDs(ctx, spreadsheetID)
}

func (w *Writer) ledgerValues(report *Report) [][]any {
	values := make([][]any, 0, len(report.Entries)+4)
	values = append(values,
		[]any{report.Title()},
		[]any{
			"Date", "Transaction ID", "Vendor", "GSTIN", "Category", "Source",
			"Amount", "GST Rate %", "GST Amount", "Confidence", "Explanation",
		},
	)

	for _, e := range report.Entries {
		amount, _ := e.Amount.Float64()
		tax, _ := e.GSTAmount.Float64()
		values = append(values, []any{
			formatDate(e.Date),
			e.TransactionID,
			e.Vendor,
			e.VendorGSTIN,
			e.Category,
			e.Source,
			amount,
			e.GSTRate,
			tax,
			fmt.Sprintf("%.2f", e.Confidence),
			e.Explanation,
		})
	}

	total, _ := report.TotalAmount.Float64()
	totalGST, _ := report.TotalGST.Float64()
	values = append(values,
		[]any{},
		[]any{"Total", "", "", "", "", "", total, "", totalGST},
	)
	return values
}

func (w *Writer) summaryValues(report *Report) [][]any {
	values := make([][]any, 0, len(report.Categories)+4)
	values = append(values,
		[]any{"Category Summary", formatRange(report.DateRange)},
		[]any{"Category", "Name", "GST Rate %", "Entries", "Amount", "GST"},
	)

	for _, c := range report.Categories {
		amount, _ := c.TotalAmount.Float64()
		tax, _ := c.TotalGST.Float64()
		values = append(values, []any{c.Category, c.DisplayName, c.GSTRate, c.EntryCount, amount, tax})
	}

	total, _ := report.TotalAmount.Float64()
	totalGST, _ := report.TotalGST.Float64()
	values = append(values,
		[]any{},
		[]any{"Total", "", "", len(report.Entries), total, totalGST},
	)
	return values
}

func (w *Writer) slabValues(report *Report) [][]any {
	values := make([][]any, 0, len(report.Slabs)+2)
	values = append(values,
		[]any{"GST by Rate Slab", formatRange(report.DateRange)},
		[]any{"GST Rate %", "Entries", "Taxable Value", "GST"},
	)
	for _, s := range report.Slabs {
		taxable, _ := s.Taxable.Float64()
		tax, _ := s.Tax.Float64()
		values = append(values, []any{s.Rate, s.EntryCount, taxable, tax})
	}
	return values
}

// writeData writes the data to one tab in batches.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, tab string, values [][]any) error {
	batchSize := w.config.BatchSize
	if batchSize <= 0 {
		batchSize = len(values)
	}

	for i := 0; i < len(values); i += batchSize {
		end := i + batchSize
		if end > len(values) {
			end = len(values)
		}

		batch := values[i:end]
		rangeStr := fmt.Sprintf("%s!A%d", quoteTab(tab), i+1)
		if err := w.api.update(ctx, spreadsheetID, rangeStr, batch); err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "tab", tab, "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// formatRequests builds header, currency and freeze formatting for every tab.
func (w *Writer) formatRequests(ids map[string]int64, report *Report) []*sheets.Request {
	pattern := w.config.CurrencyPattern
	if pattern == "" {
		pattern = DefaultConfig().CurrencyPattern
	}

	type layout struct {
		currencyCols [][2]int64
		width        int64
	}
	layouts := map[string]layout{
		TabLedger:   {currencyCols: [][2]int64{{6, 7}, {8, 9}}, width: 11},
		TabSummary:  {currencyCols: [][2]int64{{4, 6}}, width: 6},
		TabGSTSlabs: {currencyCols: [][2]int64{{2, 4}}, width: 4},
	}

	var requests []*sheets.Request
	for _, tab := range Tabs {
		sheetID, ok := ids[tab]
		if !ok {
			continue
		}
		l := layouts[tab]

		requests = append(requests,
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat: &sheets.TextFormat{Bold: true, FontSize: 14},
						},
					},
					Fields: "userEnteredFormat.textFormat",
				},
			},
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 1, EndRowIndex: 2},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat: &sheets.TextFormat{Bold: true},
							BackgroundColor: &sheets.Color{
								Red:   0.9,
								Green: 0.9,
								Blue:  0.9,
								Alpha: 1.0,
							},
						},
					},
					Fields: "userEnteredFormat.textFormat,userEnteredFormat.backgroundColor",
				},
			},
		)

		for _, cols := range l.currencyCols {
			requests = append(requests, &sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:          sheetID,
						StartRowIndex:    2,
						EndRowIndex:      int64(len(report.Entries) + 4),
						StartColumnIndex: cols[0],
						EndColumnIndex:   cols[1],
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							NumberFormat: &sheets.NumberFormat{Type: "CURRENCY", Pattern: pattern},
						},
					},
					Fields: "userEnteredFormat.numberFormat",
				},
			})
		}

		requests = append(requests,
			&sheets.Request{
				AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
					Dimensions: &sheets.DimensionRange{
						SheetId:    sheetID,
						Dimension:  "COLUMNS",
						StartIndex: 0,
						EndIndex:   l.width,
					},
				},
			},
			&sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId:        sheetID,
						GridProperties: &sheets.GridProperties{FrozenRowCount: 2},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
		)
	}

	return requests
}

func quoteTab(name string) string {
	return "'" + name + "'"
}

// googleAPI adapts *sheets.Service to spreadsheetAPI.
type googleAPI struct {
	srv *sheets.Service
}

func (g *googleAPI) sheetIDs(ctx context.Context, spreadsheetID string) (map[string]int64, error) {
	ss, err := g.srv.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	ids := make(map[string]int64, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			ids[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	return ids, nil
}

func (g *googleAPI) create(ctx context.Context, title, timeZone string, tabs []string) (string, error) {
	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    title,
			TimeZone: timeZone,
		},
	}
	for _, tab := range tabs {
		spreadsheet.Sheets = append(spreadsheet.Sheets, &sheets.Sheet{
			Properties: &sheets.SheetProperties{Title: tab},
		})
	}

	created, err := g.srv.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.SpreadsheetId, nil
}

func (g *googleAPI) addTabs(ctx context.Context, spreadsheetID string, tabs []string) error {
	requests := make([]*sheets.Request, 0, len(tabs))
	for _, tab := range tabs {
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: tab}},
		})
	}
	return g.batchUpdate(ctx, spreadsheetID, requests)
}

func (g *googleAPI) clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := g.srv.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (g *googleAPI) update(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	_, err := g.srv.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}

func (g *googleAPI) batchUpdate(ctx context.Context, spreadsheetID string, requests []*sheets.Request) error {
	if len(requests) == 0 {
		return nil
	}
	_, err := g.srv.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}
