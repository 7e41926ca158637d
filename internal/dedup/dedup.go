// Package dedup provides content fingerprinting and similarity scoring for
// duplicate detection across the pipeline. All functions are pure.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// DefaultThreshold is the Jaccard score above which two texts are
// considered near-duplicates.
const DefaultThreshold = 0.85

// Normalize lowercases text, strips punctuation and collapses whitespace so
// trivially reformatted duplicates compare equal.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		default:
			// punctuation dropped
		}
	}

	return strings.TrimRight(b.String(), " ")
}

// Fingerprint returns the hex-encoded SHA-256 of the normalized fields
// joined with a separator. Deterministic for normalize-equivalent inputs.
func Fingerprint(fields ...string) string {
	normalized := make([]string, len(fields))
	for i, f := range fields {
		normalized[i] = Normalize(f)
	}

	h := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(h[:])
}

// Similarity returns the Jaccard similarity of the normalized word sets of
// a and b, in [0.0, 1.0]. Two empty inputs are defined as identical (1.0).
func Similarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1.0
	}

	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(Normalize(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Detector checks candidates against known fingerprints and recent texts.
type Detector struct {
	threshold float64
}

// NewDetector creates a detector with the given similarity threshold.
// A non-positive threshold falls back to the default.
func NewDetector(threshold float64) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{threshold: threshold}
}

// Threshold returns the configured similarity threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// IsDuplicate reports whether text (with the given fingerprint) collides
// with a known fingerprint or scores at or above the threshold against any
// of the recent texts.
func (d *Detector) IsDuplicate(fingerprint, text string, knownHashes map[string]struct{}, recentTexts []string) bool {
	if fingerprint != "" {
		if _, ok := knownHashes[fingerprint]; ok {
			return true
		}
	}

	for _, existing := range recentTexts {
		if Similarity(text, existing) >= d.threshold {
			return true
		}
	}

	return false
}
