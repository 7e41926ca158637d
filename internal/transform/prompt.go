package transform

import (
	"strings"

	"ideaminer/internal/domain"
)

// BuildPrompt assembles the rewrite instruction for one listing. The prompt
// asks for a fresh variation, not a paraphrase, and restates the schema
// bounds so the model and the response schema agree.
func BuildPrompt(listing *domain.RawListing) string {
	var b strings.Builder

	b.WriteString("Transform the following project idea into a fresh, unique variation while preserving its core purpose and value.\n\n")
	b.WriteString("Original Idea:\n")
	b.WriteString("Title: " + listing.Title + "\n")
	b.WriteString("Description: " + listing.Description + "\n")

	if strings.TrimSpace(listing.Content) != "" {
		b.WriteString("Content: " + listing.Content + "\n")
	}
	if len(listing.Technologies) > 0 {
		b.WriteString("Technologies: " + strings.Join(listing.Technologies, ", ") + "\n")
	}
	if len(listing.Categories) > 0 {
		b.WriteString("Categories: " + strings.Join(listing.Categories, ", ") + "\n")
	}

	b.WriteString("\nInstructions:\n")
	b.WriteString("1. Extract the core essence and purpose of this idea\n")
	b.WriteString("2. Generate a fresh variation that solves the same problem but with a different approach\n")
	b.WriteString("3. Ensure the variation is unique and not a direct copy\n")
	b.WriteString("4. Rate the quality and innovation of your variation on a scale of 1-10\n")
	b.WriteString("5. Limit technologies to maximum 7 items\n")
	b.WriteString("6. Limit categories to maximum 5 items\n")
	b.WriteString("7. Provide a confidence score (0.0-1.0) for your transformation\n\n")
	b.WriteString("Generate a creative, implementable project idea that developers would find interesting and valuable.")

	return b.String()
}
