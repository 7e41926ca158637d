package transform

import (
	"errors"
	"strings"

	"ideaminer/internal/domain"
)

// ErrInvalidCandidate marks a candidate rejected by validation.
var ErrInvalidCandidate = errors.New("invalid transformed candidate")

// Validate rejects candidates missing required narrative fields, with a
// rating out of range, or exceeding the technology/category caps.
func Validate(c *domain.TransformedCandidate) bool {
	if c == nil {
		return false
	}

	if isBlank(c.ProjectName) || isBlank(c.ShortDescription) || isBlank(c.Solution) {
		return false
	}

	if c.Rating < domain.MinRating || c.Rating > domain.MaxRating {
		return false
	}

	if len(c.Technologies) > domain.MaxTechnologies {
		return false
	}
	if len(c.Categories) > domain.MaxCategories {
		return false
	}

	return true
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
