package model

// Summary aggregates committed entries for one day.
type Summary struct {
	ByCategory    map[string]float64 `json:"by_category"`
	GSTByCategory map[string]float64 `json:"gst_by_category"`
	Date          string             `json:"date"`
	TotalAmount   float64            `json:"total_amount"`
	TotalGST      float64            `json:"total_gst"`
	EntryCount    int                `json:"entry_count"`
}

// RangeSummary aggregates committed entries between two dates, inclusive.
type RangeSummary struct {
	ByCategory    map[string]float64 `json:"by_category"`
	GSTByCategory map[string]float64 `json:"gst_by_category"`
	BySource      map[Source]float64 `json:"by_source"`
	StartDate     string             `json:"start_date"`
	EndDate       string             `json:"end_date"`
	TotalAmount   float64            `json:"total_amount"`
	TotalGST      float64            `json:"total_gst"`
	EntryCount    int                `json:"entry_count"`
}

// Insight is an accountant-style digest of recent spending.
type Insight struct {
	CategoryBreakdown map[string]float64 `json:"category_breakdown"`
	GSTBreakdown      map[string]float64 `json:"gst_breakdown"`
	Summary           string             `json:"summary"`
	TopCategory       string             `json:"top_category"`
	Tips              []string           `json:"tips"`
	TotalExpenses     float64            `json:"total_expenses"`
	TotalGST          float64            `json:"total_gst"`
	TopCategoryAmount float64            `json:"top_category_amount"`
	EntryCount        int                `json:"entry_count"`
}
