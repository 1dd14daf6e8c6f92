package spec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const overlapSpec = `
fallback_category: misc
categories:
  stationery:
    display_name: Stationery
    gst_rate: 12
    keywords: [paper, notebook]
  office:
    display_name: Office
    gst_rate: 18
    keywords: [notebook, printer paper]
  misc:
    gst_rate: 18
    keywords: [misc]
`

func TestDefaultSpecLoads(t *testing.T) {
	snap, err := Default()
	require.NoError(t, err)

	assert.Equal(t, EmbeddedSource, snap.Source())
	assert.Equal(t, "miscellaneous", snap.Fallback().Key)
	assert.Equal(t, []string{
		"food", "transport", "office_supplies", "utilities", "rent",
		"professional_services", "raw_materials", "maintenance", "miscellaneous",
	}, snap.Keys())

	food, err := snap.LookupCategory("food")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, food.GSTRate, 0.0001)

	office, err := snap.LookupCategory("office_supplies")
	require.NoError(t, err)
	assert.InDelta(t, 18.0, office.GSTRate, 0.0001)
}

func TestLookupCategory_Unknown(t *testing.T) {
	snap, err := Default()
	require.NoError(t, err)

	_, err = snap.LookupCategory("groceries")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.False(t, snap.Has("groceries"))
}

func TestParse_PreservesDeclarationOrder(t *testing.T) {
	snap, err := Parse([]byte(overlapSpec))
	require.NoError(t, err)

	assert.Equal(t, []string{"stationery", "office", "misc"}, snap.Keys())
	assert.Equal(t, "misc", snap.Fallback().DisplayName, "display name defaults to the key")

	cats := snap.Categories()
	for i, c := range cats {
		assert.Equal(t, i, c.Order)
	}
}

func TestParse_MixedCaseKeys(t *testing.T) {
	snap, err := Parse([]byte(`
fallback_category: Misc
categories:
  Food:
    display_name: Food & Beverages
    gst_rate: 5
    keywords: [chai]
  Misc:
    gst_rate: 18
    keywords: [misc]
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"food", "misc"}, snap.Keys())
	assert.True(t, snap.Has("Food"))
	assert.True(t, snap.Has("food"))
	assert.True(t, snap.IsFallback("MISC"))
	assert.Equal(t, "misc", snap.Fallback().Key)

	food, err := snap.LookupCategory("FOOD")
	require.NoError(t, err)
	assert.Equal(t, "food", food.Key)
	assert.Equal(t, 5.0, food.GSTRate)

	m, ok := snap.BestMatch("Chai 120")
	require.True(t, ok)
	assert.Equal(t, "food", m.Category)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg []string
	}{
		{
			name:    "not a mapping",
			doc:     "- a\n- b\n",
			wantMsg: []string{"must be a mapping"},
		},
		{
			name:    "no categories",
			doc:     "fallback_category: misc\n",
			wantMsg: []string{"no categories"},
		},
		{
			name: "duplicate key",
			doc: `fallback_category: a
categories:
  a: {gst_rate: 5, keywords: [x]}
  a: {gst_rate: 12, keywords: [y]}
`,
			wantMsg: []string{"duplicate category key \"a\""},
		},
		{
			name: "keys colliding after case folding",
			doc: `fallback_category: food
categories:
  Food: {gst_rate: 5, keywords: [chai]}
  food: {gst_rate: 12, keywords: [lunch]}
`,
			wantMsg: []string{"duplicate category key \"food\""},
		},
		{
			name: "rate out of range and empty keywords reported together",
			doc: `fallback_category: a
categories:
  a: {gst_rate: 5, keywords: [x]}
  b: {gst_rate: 140, keywords: [y]}
  c: {gst_rate: 12, keywords: []}
`,
			wantMsg: []string{"outside [0,100]", "keyword list is empty"},
		},
		{
			name: "missing gst rate",
			doc: `fallback_category: a
categories:
  a: {keywords: [x]}
`,
			wantMsg: []string{"gst_rate is required"},
		},
		{
			name: "blank keyword",
			doc: `fallback_category: a
categories:
  a: {gst_rate: 5, keywords: ["  "]}
`,
			wantMsg: []string{"blank keyword"},
		},
		{
			name: "missing fallback",
			doc: `categories:
  a: {gst_rate: 5, keywords: [x]}
`,
			wantMsg: []string{"fallback_category is required"},
		},
		{
			name: "unknown fallback",
			doc: `fallback_category: other
categories:
  a: {gst_rate: 5, keywords: [x]}
`,
			wantMsg: []string{"not a declared category"},
		},
		{
			name:    "malformed yaml",
			doc:     "categories: [unterminated",
			wantMsg: []string{"inline"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Nil(t, snap)
			assert.ErrorIs(t, err, common.ErrSpecLoad)
			for _, msg := range tt.wantMsg {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSpecLoad)
}

func TestMatchKeywords(t *testing.T) {
	snap, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name       string
		text       string
		wantFirst  string
		wantKW     string
		wantCount  int
		wantNoHits bool
	}{
		{
			name:      "hinglish voice note",
			text:      "Aaj chai ke 120 rupaye kharch hue",
			wantFirst: "food",
			wantKW:    "chai",
			wantCount: 1,
		},
		{
			name:      "case insensitive",
			text:      "AUTO RICKSHAW to market",
			wantFirst: "transport",
			wantCount: 1,
		},
		{
			name:       "no keyword",
			text:       "Spent 300",
			wantNoHits: true,
		},
		{
			name:       "empty text",
			text:       "   ",
			wantNoHits: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := snap.MatchKeywords(tt.text)
			if tt.wantNoHits {
				assert.Empty(t, matches)
				_, ok := snap.BestMatch(tt.text)
				assert.False(t, ok)
				return
			}
			require.Len(t, matches, tt.wantCount)
			assert.Equal(t, tt.wantFirst, matches[0].Category)
			if tt.wantKW != "" {
				assert.Equal(t, tt.wantKW, matches[0].Keyword)
			}
		})
	}
}

func TestMatchKeywords_TieBreakByDeclarationOrder(t *testing.T) {
	snap, err := Parse([]byte(overlapSpec))
	require.NoError(t, err)

	text := "Bought a NOTEBOOK and printer paper"
	for i := 0; i < 50; i++ {
		matches := snap.MatchKeywords(text)
		require.Len(t, matches, 2)
		assert.Equal(t, Match{Category: "stationery", Keyword: "paper"}, matches[0])
		assert.Equal(t, Match{Category: "office", Keyword: "notebook"}, matches[1])
	}

	best, ok := snap.BestMatch(text)
	require.True(t, ok)
	assert.Equal(t, "stationery", best.Category)
}

func TestMatchKeywords_UnicodeFolding(t *testing.T) {
	doc := `fallback_category: misc
categories:
  cafe:
    gst_rate: 5
    keywords: ["straße café"]
  misc:
    gst_rate: 18
    keywords: [misc]
`
	snap, err := Parse([]byte(doc))
	require.NoError(t, err)

	best, ok := snap.BestMatch("Receipt: STRASSE CAFÉ 2 items")
	require.True(t, ok)
	assert.Equal(t, "cafe", best.Category)
}

func TestStore_Reload(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte(overlapSpec), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte("fallback_category: nope\ncategories:\n  a: {gst_rate: 5, keywords: [x]}\n"), 0o600))

	store, err := Open("", nil)
	require.NoError(t, err)
	original := store.Current()
	assert.Equal(t, EmbeddedSource, original.Source())

	err = store.Reload(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSpecLoad)
	assert.Same(t, original, store.Current(), "failed reload keeps the old snapshot")

	require.NoError(t, store.Reload(good))
	assert.Equal(t, good, store.Current().Source())
	assert.Equal(t, []string{"stationery", "office", "misc"}, store.Current().Keys())

	// A snapshot taken before the reload keeps answering with the old taxonomy.
	assert.True(t, original.Has("food"))
	assert.False(t, store.Current().Has("food"))

	prev := store.Swap(original)
	assert.Equal(t, good, prev.Source())
	assert.Same(t, original, store.Current())
}
