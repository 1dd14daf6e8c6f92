// Package spec loads the declarative accounting specification: the category
// taxonomy, GST rates and keyword rules every other component treats as the
// source of truth.
package spec

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/model"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed accounting.yaml
var defaultSpec []byte

// EmbeddedSource is reported by Snapshot.Source for the built-in specification.
const EmbeddedSource = "embedded"

// Match is a keyword hit for one category.
type Match struct {
	Category string
	Keyword  string
}

// Snapshot is one immutable, validated specification. It is safe for
// concurrent reads.
type Snapshot struct {
	byKey      map[string]int
	source     string
	fallback   string
	categories []model.ExpenseCategory
	folded     [][]string
}

type rawCategory struct {
	GSTRate     *float64 `yaml:"gst_rate"`
	DisplayName string   `yaml:"display_name"`
	Keywords    []string `yaml:"keywords"`
}

// Default returns the specification embedded in the binary.
func Default() (*Snapshot, error) {
	return parse(defaultSpec, EmbeddedSource)
}

// Load reads and validates a specification file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSpecLoad, err)
	}
	return parse(data, path)
}

// Parse validates a specification document held in memory.
func Parse(data []byte) (*Snapshot, error) {
	return parse(data, "inline")
}

func parse(data []byte, source string) (*Snapshot, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrSpecLoad, source, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: document must be a mapping", common.ErrSpecLoad, source)
	}

	snap := &Snapshot{
		byKey:  make(map[string]int),
		source: source,
	}

	var problems []error
	var categoriesNode *yaml.Node

	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "fallback_category":
			snap.fallback = NormalizeKey(value.Value)
		case "categories":
			categoriesNode = value
		}
	}

	if categoriesNode == nil || categoriesNode.Kind != yaml.MappingNode || len(categoriesNode.Content) == 0 {
		return nil, fmt.Errorf("%w: %s: no categories declared", common.ErrSpecLoad, source)
	}

	for i := 0; i+1 < len(categoriesNode.Content); i += 2 {
		keyNode, valueNode := categoriesNode.Content[i], categoriesNode.Content[i+1]
		key := NormalizeKey(keyNode.Value)

		if key == "" {
			problems = append(problems, fmt.Errorf("line %d: empty category key", keyNode.Line))
			continue
		}
		if _, dup := snap.byKey[key]; dup {
			problems = append(problems, fmt.Errorf("line %d: duplicate category key %q", keyNode.Line, key))
			continue
		}

		var raw rawCategory
		if err := valueNode.Decode(&raw); err != nil {
			problems = append(problems, fmt.Errorf("category %q: %v", key, err))
			continue
		}

		cat, folded, catProblems := buildCategory(key, raw, len(snap.categories))
		if len(catProblems) > 0 {
			problems = append(problems, catProblems...)
			continue
		}

		snap.byKey[key] = len(snap.categories)
		snap.categories = append(snap.categories, cat)
		snap.folded = append(snap.folded, folded)
	}

	switch {
	case snap.fallback == "":
		problems = append(problems, errors.New("fallback_category is required"))
	case len(problems) == 0 && !snap.Has(snap.fallback):
		problems = append(problems, fmt.Errorf("fallback_category %q is not a declared category", snap.fallback))
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrSpecLoad, source, errors.Join(problems...))
	}

	return snap, nil
}

func buildCategory(key string, raw rawCategory, order int) (model.ExpenseCategory, []string, []error) {
	var problems []error

	if raw.GSTRate == nil {
		problems = append(problems, fmt.Errorf("category %q: gst_rate is required", key))
	} else if math.IsNaN(*raw.GSTRate) || *raw.GSTRate < 0 || *raw.GSTRate > 100 {
		problems = append(problems, fmt.Errorf("category %q: gst_rate %v outside [0,100]", key, *raw.GSTRate))
	}

	if len(raw.Keywords) == 0 {
		problems = append(problems, fmt.Errorf("category %q: keyword list is empty", key))
	}

	keywords := make([]string, 0, len(raw.Keywords))
	folded := make([]string, 0, len(raw.Keywords))
	fold := cases.Fold()
	for _, kw := range raw.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			problems = append(problems, fmt.Errorf("category %q: blank keyword", key))
			continue
		}
		keywords = append(keywords, kw)
		folded = append(folded, fold.String(kw))
	}

	if len(problems) > 0 {
		return model.ExpenseCategory{}, nil, problems
	}

	displayName := strings.TrimSpace(raw.DisplayName)
	if displayName == "" {
		displayName = key
	}

	return model.ExpenseCategory{
		Key:         key,
		DisplayName: displayName,
		GSTRate:     *raw.GSTRate,
		Keywords:    keywords,
		Order:       order,
	}, folded, nil
}

// NormalizeKey returns the canonical form of a category key. Keys are
// compared case-insensitively everywhere.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Source returns where the snapshot was loaded from.
func (s *Snapshot) Source() string {
	return s.source
}

// Has reports whether key names a declared category.
func (s *Snapshot) Has(key string) bool {
	_, ok := s.byKey[NormalizeKey(key)]
	return ok
}

// LookupCategory returns the category for key, or an error wrapping
// common.ErrNotFound.
func (s *Snapshot) LookupCategory(key string) (model.ExpenseCategory, error) {
	idx, ok := s.byKey[NormalizeKey(key)]
	if !ok {
		return model.ExpenseCategory{}, fmt.Errorf("%w: category %q", common.ErrNotFound, key)
	}
	return s.categories[idx], nil
}

// Fallback returns the designated catch-all category.
func (s *Snapshot) Fallback() model.ExpenseCategory {
	return s.categories[s.byKey[s.fallback]]
}

// IsFallback reports whether key is the catch-all category.
func (s *Snapshot) IsFallback(key string) bool {
	return NormalizeKey(key) == s.fallback
}

// Keys returns category keys in declaration order.
func (s *Snapshot) Keys() []string {
	keys := make([]string, len(s.categories))
	for i, c := range s.categories {
		keys[i] = c.Key
	}
	return keys
}

// Categories returns a copy of the categories in declaration order.
func (s *Snapshot) Categories() []model.ExpenseCategory {
	out := make([]model.ExpenseCategory, len(s.categories))
	copy(out, s.categories)
	return out
}

// MatchKeywords finds categories whose keywords occur in text. At most one
// match is returned per category (its first matching keyword), and matches are
// ordered by category declaration order, so the first element is the winning
// category when several match.
func (s *Snapshot) MatchKeywords(text string) []Match {
	haystack := cases.Fold().String(text)
	if strings.TrimSpace(haystack) == "" {
		return nil
	}

	var matches []Match
	for i, cat := range s.categories {
		for j, kw := range s.folded[i] {
			if strings.Contains(haystack, kw) {
				matches = append(matches, Match{Category: cat.Key, Keyword: cat.Keywords[j]})
				break
			}
		}
	}
	return matches
}

// BestMatch returns the first keyword match, if any.
func (s *Snapshot) BestMatch(text string) (Match, bool) {
	matches := s.MatchKeywords(text)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}
