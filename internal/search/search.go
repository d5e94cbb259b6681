// Package search finds news articles for a keyword query via an external
// search API.
package search

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by search clients.
var (
	ErrMissingAPIKey = errors.New("search: API key not configured")
	ErrEmptyQuery    = errors.New("search: query is empty")
	ErrRateLimited   = errors.New("search: rate limited by provider")
	ErrUnavailable   = errors.New("search: provider unavailable")
)

// Metadata carries optional per-result fields extracted from the page.
type Metadata struct {
	Author        string     `json:"author,omitempty"`
	PublishedTime *time.Time `json:"publishedTime,omitempty"`
	OGImage       string     `json:"ogImage,omitempty"`
	Score         float64    `json:"score,omitempty"`
}

// Result is one found article. Content is markdown when the provider
// scraped the page, empty otherwise.
type Result struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Source   string   `json:"source"`
	Metadata Metadata `json:"metadata"`
}

// Options configures a single search call.
type Options struct {
	Limit         int  // max results, 0 uses the provider default
	ScrapeContent bool // fetch full page content for each result
}

// Client searches an external news source.
type Client interface {
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}
