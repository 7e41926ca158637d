// Package transform calls the external generative rewrite service to turn
// raw listings into original transformed candidates. Concurrency toward the
// service is capped by a semaphore independent of the fetch worker pool.
package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"ideaminer/internal/config"
	"ideaminer/internal/dedup"
	"ideaminer/internal/domain"
	"ideaminer/internal/logger"
	"ideaminer/internal/retry"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models/"

	// createdBy is stamped on every transformed candidate.
	createdBy = "AI-Generated"

	maxErrorBodyBytes = 1024
)

// Client talks to the generative rewrite service.
type Client struct {
	cfg        config.AIConfig
	baseURL    string
	httpClient *http.Client
	sem        chan struct{}
	retryCfg   retry.Config
	log        logger.Interface
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. Used in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) { c.retryCfg = cfg }
}

// New creates a transformation client from configuration.
func New(cfg config.AIConfig, log logger.Interface, opts ...Option) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	c := &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(baseURL, "/") + "/",
		httpClient: &http.Client{Timeout: timeout},
		sem:        make(chan struct{}, concurrency),
		retryCfg:   retry.DefaultConfig(),
		log:        log,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Transform rewrites a single listing into a transformed candidate.
// Transient service failures are retried with backoff; terminal failures
// return an error the batch layer degrades to an omission.
func (c *Client) Transform(ctx context.Context, listing *domain.RawListing) (*domain.TransformedCandidate, error) {
	var result rewriteResult

	err := retry.Do(ctx, c.retryCfg, func() error {
		return c.callService(ctx, listing, &result)
	})
	if err != nil {
		return nil, fmt.Errorf("transform %q: %w", listing.Title, err)
	}

	candidate := c.mapCandidate(listing, &result)
	if !Validate(candidate) {
		return nil, fmt.Errorf("transform %q: %w", listing.Title, ErrInvalidCandidate)
	}

	return candidate, nil
}

// BatchTransform fans out one transform per listing under the concurrency
// cap. Failures degrade to omission and never halt the batch; the returned
// slice may be shorter than the input, and callers must treat a partial
// batch as a valid outcome.
func (c *Client) BatchTransform(ctx context.Context, listings []domain.RawListing) []domain.TransformedCandidate {
	results := make([]*domain.TransformedCandidate, len(listings))

	var wg sync.WaitGroup
	for i := range listings {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			select {
			case c.sem <- struct{}{}:
				defer func() { <-c.sem }()
			case <-ctx.Done():
				return
			}

			candidate, err := c.Transform(ctx, &listings[idx])
			if err != nil {
				c.log.Warn("transformation failed, omitting item",
					"title", listings[idx].Title, "error", err)
				return
			}
			results[idx] = candidate
		}(i)
	}
	wg.Wait()

	// Compact in submission order.
	candidates := make([]domain.TransformedCandidate, 0, len(listings))
	for _, r := range results {
		if r != nil {
			candidates = append(candidates, *r)
		}
	}

	c.log.Info("batch transformation completed",
		"submitted", len(listings), "transformed", len(candidates))

	return candidates
}

// callService performs one HTTP round trip and decodes the structured
// response. Malformed responses fail closed as terminal errors.
func (c *Client) callService(ctx context.Context, listing *domain.RawListing, out *rewriteResult) error {
	body, err := json.Marshal(buildRequest(BuildPrompt(listing), c.cfg.Temperature, c.cfg.MaxTokens))
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + c.cfg.Model + ":generateContent?key=" + c.cfg.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call rewrite service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &retry.StatusError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(payload)),
		}
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	text, err := decoded.firstText()
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return nil
}

// mapCandidate builds the immutable candidate from the rewrite result. The
// content hash is computed from the rewritten text, not the original.
func (c *Client) mapCandidate(listing *domain.RawListing, result *rewriteResult) *domain.TransformedCandidate {
	return &domain.TransformedCandidate{
		OriginalURL:        listing.SourceURL,
		SourceName:         listing.SourceName,
		ScrapedAt:          listing.ScrapedAt,
		TransformedAt:      c.now(),
		ProjectName:        result.ProjectName,
		ShortDescription:   result.ShortDescription,
		ProblemDescription: result.ProblemDescription,
		Solution:           result.Solution,
		TechnicalDetails:   result.TechnicalDetails,
		CreatedBy:          createdBy,
		Likes:              0,
		Rating:             result.Rating,
		Technologies:       limitList(result.Technologies, domain.MaxTechnologies),
		Categories:         limitList(result.Categories, domain.MaxCategories),
		ContentHash:        dedup.Fingerprint(result.ProjectName, result.ShortDescription, result.Solution),
		Model:              c.cfg.Model,
		Confidence:         result.Confidence,
	}
}

func limitList(list []string, maxLen int) []string {
	if len(list) <= maxLen {
		return list
	}
	return list[:maxLen]
}
