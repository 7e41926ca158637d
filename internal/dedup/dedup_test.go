package dedup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaminer/internal/dedup"
	"ideaminer/internal/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "Hello World", "hello world"},
		{"strips punctuation", "hello, world!", "hello world"},
		{"collapses whitespace", "hello   \t world\n", "hello world"},
		{"keeps digits", "Top 10 Ideas", "top 10 ideas"},
		{"empty", "", ""},
		{"only punctuation", "?!...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, dedup.Normalize(tt.input))
		})
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := dedup.Fingerprint("Smart Recipe App", "Plans meals for you")
	b := dedup.Fingerprint("smart recipe app!", "  Plans   meals, for you.")

	require.NotEmpty(t, a)
	assert.Equal(t, a, b, "normalize-equivalent inputs must collide")
}

func TestFingerprint_DiffersForDifferentContent(t *testing.T) {
	a := dedup.Fingerprint("Smart Recipe App", "Plans meals for you")
	b := dedup.Fingerprint("Smart Recipe App", "Tracks your groceries")

	assert.NotEqual(t, a, b)
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collapse to the same hash.
	a := dedup.Fingerprint("ab", "c")
	b := dedup.Fingerprint("a", "bc")

	assert.NotEqual(t, a, b)
}

func TestSimilarity_Bounds(t *testing.T) {
	pairs := [][2]string{
		{"the quick brown fox", "the quick brown fox"},
		{"the quick brown fox", "a slow green turtle"},
		{"", "something"},
		{"alpha beta gamma", "beta gamma delta"},
	}

	for _, p := range pairs {
		s := dedup.Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestSimilarity_Identity(t *testing.T) {
	assert.InDelta(t, 1.0, dedup.Similarity("hello world", "hello world"), 1e-9)
}

func TestSimilarity_BothEmpty(t *testing.T) {
	assert.InDelta(t, 1.0, dedup.Similarity("", ""), 1e-9)
}

func TestSimilarity_EmptyVersusNonEmpty(t *testing.T) {
	assert.InDelta(t, 0.0, dedup.Similarity("", "hello"), 1e-9)
}

func TestSimilarity_PartialOverlap(t *testing.T) {
	// intersection {b,c} = 2, union {a,b,c,d} = 4
	assert.InDelta(t, 0.5, dedup.Similarity("a b c", "b c d"), 1e-9)
}

func TestDetector_ExactHashMatch(t *testing.T) {
	d := dedup.NewDetector(0.85)
	hash := dedup.Fingerprint("title", "body")
	known := map[string]struct{}{hash: {}}

	assert.True(t, d.IsDuplicate(hash, "title body", known, nil))
	assert.False(t, d.IsDuplicate(dedup.Fingerprint("other"), "other", known, nil))
}

func TestDetector_SimilarityMatch(t *testing.T) {
	d := dedup.NewDetector(0.85)
	recent := []string{"smart recipe planner that builds weekly meal plans"}

	assert.True(t, d.IsDuplicate("", "smart recipe planner that builds weekly meal plans!", nil, recent))
	assert.False(t, d.IsDuplicate("", "distributed log aggregation service", nil, recent))
}

func TestDetector_DefaultThreshold(t *testing.T) {
	d := dedup.NewDetector(0)
	assert.InDelta(t, dedup.DefaultThreshold, d.Threshold(), 1e-9)
}

func TestFilterBatch_RemovesWithinBatchDuplicates(t *testing.T) {
	listings := []domain.RawListing{
		{Title: "Foo", Description: "Bar", SourceURL: "http://s/1"},
		{Title: "foo!", Description: "  bar ", SourceURL: "http://s/2"},
		{Title: "Baz", Description: "Qux", SourceURL: "http://s/3"},
	}

	unique, removed := dedup.FilterBatch(listings)

	require.Len(t, unique, 2)
	assert.Equal(t, 1, removed)
	assert.Equal(t, "http://s/1", unique[0].SourceURL, "first occurrence wins")
	assert.NotEmpty(t, unique[0].ContentHash)
}

func TestFilterBatch_Empty(t *testing.T) {
	unique, removed := dedup.FilterBatch(nil)
	assert.Empty(t, unique)
	assert.Zero(t, removed)
}
