package domain

import "time"

// TransformedCandidate is the output of the AI rewrite for one raw listing.
// Never mutated after creation; the content hash is computed from the
// rewritten text, not the original.
type TransformedCandidate struct {
	OriginalURL        string    `json:"original_url"`
	SourceName         string    `json:"source_name"`
	ScrapedAt          time.Time `json:"scraped_at"`
	TransformedAt      time.Time `json:"transformed_at"`
	ProjectName        string    `json:"project_name"`
	ShortDescription   string    `json:"short_description"`
	ProblemDescription string    `json:"problem_description"`
	Solution           string    `json:"solution"`
	TechnicalDetails   string    `json:"technical_details"`
	CreatedBy          string    `json:"created_by"`
	Likes              int       `json:"likes"`
	Rating             int       `json:"rating"`
	Technologies       []string  `json:"technologies,omitempty"`
	Categories         []string  `json:"categories,omitempty"`
	ContentHash        string    `json:"content_hash"`
	Model              string    `json:"model,omitempty"`
	Confidence         float64   `json:"confidence"`
}
