package domain

import "time"

// Source describes one configured listing source. The fetch mechanics live
// behind the fetch.Fetcher interface; this carries scheduling and politeness
// settings only.
type Source struct {
	Name        string        `mapstructure:"name"         yaml:"name"`
	BaseURL     string        `mapstructure:"base_url"     yaml:"base_url"`
	Enabled     bool          `mapstructure:"enabled"      yaml:"enabled"`
	Schedule    string        `mapstructure:"schedule"     yaml:"schedule"`
	RateLimitMs int           `mapstructure:"rate_limit_ms" yaml:"rate_limit_ms"`
	MaxPages    int           `mapstructure:"max_pages"    yaml:"max_pages"`
	Fetcher     string        `mapstructure:"fetcher"      yaml:"fetcher"`
	Options     map[string]any `mapstructure:"options"     yaml:"options,omitempty"`
}

// RateLimit returns the inter-request delay for this source.
func (s *Source) RateLimit() time.Duration {
	if s.RateLimitMs <= 0 {
		return time.Second
	}
	return time.Duration(s.RateLimitMs) * time.Millisecond
}
