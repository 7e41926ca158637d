package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ideaminer/internal/domain"
	"ideaminer/internal/logger"
)

const defaultFeedTimeout = 30 * time.Second

// feedEntry is the wire format of one listing in a JSON feed.
type feedEntry struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Content      string   `json:"content"`
	URL          string   `json:"url"`
	Author       string   `json:"author"`
	Technologies []string `json:"technologies"`
	Categories   []string `json:"categories"`
	Popularity   int      `json:"popularity"`
}

// JSONFeedFetcher pulls listings from paginated JSON feed endpoints. Pages
// are requested as base_url?page=N until an empty page or the source's
// MaxPages cap.
type JSONFeedFetcher struct {
	httpClient *http.Client
	log        logger.Interface
	now        func() time.Time
}

// NewJSONFeedFetcher creates a feed fetcher.
func NewJSONFeedFetcher(log logger.Interface) *JSONFeedFetcher {
	return &JSONFeedFetcher{
		httpClient: &http.Client{Timeout: defaultFeedTimeout},
		log:        log,
		now:        time.Now,
	}
}

// Fetch walks the feed pages, honoring the source rate limit between
// requests.
func (f *JSONFeedFetcher) Fetch(ctx context.Context, source domain.Source) ([]domain.RawListing, error) {
	maxPages := source.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	listings := []domain.RawListing{}
	for page := 1; page <= maxPages; page++ {
		if page > 1 {
			select {
			case <-ctx.Done():
				return listings, ctx.Err()
			case <-time.After(source.RateLimit()):
			}
		}

		entries, err := f.fetchPage(ctx, source.BaseURL, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		if len(entries) == 0 {
			break
		}

		scrapedAt := f.now()
		for _, e := range entries {
			listings = append(listings, domain.RawListing{
				SourceName:   source.Name,
				SourceURL:    e.URL,
				ScrapedAt:    scrapedAt,
				Title:        e.Title,
				Description:  e.Description,
				Content:      e.Content,
				Author:       e.Author,
				Technologies: e.Technologies,
				Categories:   e.Categories,
				Popularity:   e.Popularity,
			})
		}
	}

	f.log.Debug("feed fetch finished", "source", source.Name, "listings", len(listings))

	return listings, nil
}

// Validate accepts any structurally valid listing; the feed carries no
// extra quality signal.
func (f *JSONFeedFetcher) Validate(listing *domain.RawListing) bool {
	return listing.Valid()
}

// fetchPage requests and decodes a single feed page.
func (f *JSONFeedFetcher) fetchPage(ctx context.Context, baseURL string, page int) ([]feedEntry, error) {
	url := baseURL
	if page > 1 {
		url = baseURL + "?page=" + strconv.Itoa(page)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var entries []feedEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	return entries, nil
}
