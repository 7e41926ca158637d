package transform

import (
	"errors"
	"fmt"

	"ideaminer/internal/domain"
)

// ErrMalformedResponse marks a response the strict decoder rejected.
// Malformed responses are terminal, never retried.
var ErrMalformedResponse = errors.New("malformed rewrite response")

// generateRequest is the wire format of the generative service request.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64        `json:"temperature"`
	MaxOutputTokens  int            `json:"maxOutputTokens"`
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
}

// generateResponse is the wire format of the service response.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// firstText extracts the first text part, failing closed when the response
// carries no content.
func (r *generateResponse) firstText() (string, error) {
	if len(r.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}
	parts := r.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == "" {
		return "", fmt.Errorf("%w: no content parts", ErrMalformedResponse)
	}
	return parts[0].Text, nil
}

// rewriteResult is the constrained machine-readable payload the service is
// asked to produce.
type rewriteResult struct {
	ProjectName        string   `json:"project_name"`
	ShortDescription   string   `json:"short_description"`
	ProblemDescription string   `json:"problem_description"`
	Solution           string   `json:"solution"`
	TechnicalDetails   string   `json:"technical_details"`
	Technologies       []string `json:"technologies"`
	Categories         []string `json:"categories"`
	Rating             int      `json:"rating"`
	Confidence         float64  `json:"transformation_confidence"`
}

// buildRequest assembles the request with the response schema that bounds
// every field the pipeline relies on.
func buildRequest(prompt string, temperature float64, maxTokens int) generateRequest {
	return generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      temperature,
			MaxOutputTokens:  maxTokens,
			ResponseMimeType: "application/json",
			ResponseSchema:   responseSchema(),
		},
	}
}

// responseSchema declares the structured output contract.
func responseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"project_name":        map[string]any{"type": "string"},
			"short_description":   map[string]any{"type": "string"},
			"problem_description": map[string]any{"type": "string"},
			"solution":            map[string]any{"type": "string"},
			"technical_details":   map[string]any{"type": "string"},
			"technologies": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"maxItems": domain.MaxTechnologies,
			},
			"categories": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"maxItems": domain.MaxCategories,
			},
			"rating": map[string]any{
				"type":    "integer",
				"minimum": domain.MinRating,
				"maximum": domain.MaxRating,
			},
			"transformation_confidence": map[string]any{
				"type":    "number",
				"minimum": 0.0,
				"maximum": 1.0,
			},
		},
		"required": []string{"project_name", "short_description", "solution", "rating"},
	}
}
