package domain

import "time"

// RawListing is a fetched, unprocessed candidate from a source site.
// Immutable once produced by a fetcher.
type RawListing struct {
	SourceName   string    `json:"source_name"`
	SourceURL    string    `json:"source_url"`
	ScrapedAt    time.Time `json:"scraped_at"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Content      string    `json:"content,omitempty"`
	Author       string    `json:"author,omitempty"`
	Technologies []string  `json:"technologies,omitempty"`
	Categories   []string  `json:"categories,omitempty"`
	Popularity   int       `json:"popularity"`
	ContentHash  string    `json:"content_hash"`
}

// Valid reports whether the listing carries the minimum structure the
// pipeline needs downstream.
func (l *RawListing) Valid() bool {
	return l.Title != "" && l.Description != "" && l.SourceURL != ""
}
