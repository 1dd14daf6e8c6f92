package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Shlokpalrecha/Finguru/internal/spec"
)

// DefaultSpec returns the embedded accounting specification or fails the test.
func DefaultSpec(t testing.TB) *spec.Snapshot {
	t.Helper()
	snap, err := spec.Default()
	if err != nil {
		t.Fatalf("failed to load default spec: %v", err)
	}
	return snap
}

// DefaultStore wraps DefaultSpec in a swappable store.
func DefaultStore(t testing.TB) *spec.Store {
	t.Helper()
	return spec.NewStore(DefaultSpec(t), nil)
}

// SpecCategory is one category in a SpecBuilder.
type SpecCategory struct {
	Key         string
	DisplayName string
	Keywords    []string
	GSTRate     float64
}

// SpecBuilder assembles a specification document for tests. Categories are
// emitted in the order they are added.
//
// Example:
//
//	snap := testutil.NewSpecBuilder(t).
//		WithCategory("food", 5, "chai", "lunch").
//		WithCategory("misc", 18, "misc").
//		WithFallback("misc").
//		Build()
type SpecBuilder struct {
	t          testing.TB
	fallback   string
	categories []SpecCategory
}

// NewSpecBuilder starts an empty specification.
func NewSpecBuilder(t testing.TB) *SpecBuilder {
	t.Helper()
	return &SpecBuilder{t: t}
}

// WithCategory adds a category with the given GST rate and keywords.
func (b *SpecBuilder) WithCategory(key string, rate float64, keywords ...string) *SpecBuilder {
	b.categories = append(b.categories, SpecCategory{Key: key, GSTRate: rate, Keywords: keywords})
	return b
}

// WithFallback names the catch-all category. It defaults to the last category added.
func (b *SpecBuilder) WithFallback(key string) *SpecBuilder {
	b.fallback = key
	return b
}

// YAML renders the specification document.
func (b *SpecBuilder) YAML() string {
	fallback := b.fallback
	if fallback == "" && len(b.categories) > 0 {
		fallback = b.categories[len(b.categories)-1].Key
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "fallback_category: %s\ncategories:\n", fallback)
	for _, c := range b.categories {
		name := c.DisplayName
		if name == "" {
			name = c.Key
		}
		fmt.Fprintf(&sb, "  %s:\n    display_name: %q\n    gst_rate: %g\n    keywords:\n", c.Key, name, c.GSTRate)
		for _, kw := range c.Keywords {
			fmt.Fprintf(&sb, "      - %q\n", kw)
		}
	}
	return sb.String()
}

// Build parses the document or fails the test.
func (b *SpecBuilder) Build() *spec.Snapshot {
	b.t.Helper()
	snap, err := spec.Parse([]byte(b.YAML()))
	if err != nil {
		b.t.Fatalf("failed to build spec: %v\n%s", err, b.YAML())
	}
	return snap
}
