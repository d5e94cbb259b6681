package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// HTTPClient talks to a Firecrawl-compatible search endpoint. Calls are
// rate limited client-side so bursty crawl jobs do not trip the provider's
// quota.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	mdConverter *converter.Converter
	logger      *slog.Logger
}

// HTTPClientConfig configures an HTTPClient.
type HTTPClientConfig struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second
	RateBurst int
	Logger    *slog.Logger
}

// NewHTTPClient creates a search client against a Firecrawl-compatible API.
func NewHTTPClient(cfg HTTPClientConfig) (*HTTPClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 5
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
		logger: logger,
	}, nil
}

type searchRequest struct {
	Query         string         `json:"query"`
	Limit         int            `json:"limit,omitempty"`
	ScrapeOptions *scrapeOptions `json:"scrapeOptions,omitempty"`
}

type scrapeOptions struct {
	Formats []string `json:"formats"`
}

type searchResponse struct {
	Success bool         `json:"success"`
	Data    []searchItem `json:"data"`
	Error   string       `json:"error,omitempty"`
}

type searchItem struct {
	URL         string       `json:"url"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Markdown    string       `json:"markdown,omitempty"`
	HTML        string       `json:"html,omitempty"`
	Metadata    itemMetadata `json:"metadata"`
}

type itemMetadata struct {
	Author        string  `json:"author,omitempty"`
	PublishedTime string  `json:"publishedTime,omitempty"`
	OGImage       string  `json:"ogImage,omitempty"`
	SourceURL     string  `json:"sourceURL,omitempty"`
	Score         float64 `json:"score,omitempty"`
}

// Search runs a keyword query against the provider. The context bounds the
// whole call including the rate-limiter wait.
func (c *HTTPClient) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	payload := searchRequest{
		Query: query,
		Limit: opts.Limit,
	}
	if opts.ScrapeContent {
		payload.ScrapeOptions = &scrapeOptions{Formats: []string{"markdown", "html"}}
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/search", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, strings.TrimSpace(string(body)))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s - %s", ErrUnavailable, resp.Status, strings.TrimSpace(string(body)))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("search request failed: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var searchResp searchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if !searchResp.Success {
		return nil, fmt.Errorf("search request failed: %s", searchResp.Error)
	}

	results := make([]Result, 0, len(searchResp.Data))
	for _, item := range searchResp.Data {
		if item.URL == "" {
			continue
		}
		results = append(results, c.toResult(item))
	}

	c.logger.Debug("search completed", "query", query, "results", len(results))
	return results, nil
}

func (c *HTTPClient) toResult(item searchItem) Result {
	content := strings.TrimSpace(item.Markdown)
	if content == "" && item.HTML != "" {
		content = c.htmlToMarkdown(item.HTML, item.URL, item.Description)
	}
	if content == "" {
		content = item.Description
	}

	meta := Metadata{
		Author:  item.Metadata.Author,
		OGImage: item.Metadata.OGImage,
		Score:   item.Metadata.Score,
	}
	if item.Metadata.PublishedTime != "" {
		if t, err := time.Parse(time.RFC3339, item.Metadata.PublishedTime); err == nil {
			meta.PublishedTime = &t
		}
	}
	if item.HTML != "" {
		fillFromHTML(&meta, item.HTML)
	}

	return Result{
		URL:      item.URL,
		Title:    item.Title,
		Content:  content,
		Source:   hostOf(item.URL),
		Metadata: meta,
	}
}

// htmlToMarkdown converts scraped HTML to markdown. If conversion fails or
// produces empty output, returns the fallback text.
func (c *HTTPClient) htmlToMarkdown(html, sourceURL, fallback string) string {
	result, err := c.mdConverter.ConvertString(html, converter.WithDomain(sourceURL))
	if err != nil || strings.TrimSpace(result) == "" {
		return fallback
	}
	return strings.TrimSpace(result)
}

// fillFromHTML backfills metadata the provider did not return by reading
// the page's meta tags.
func fillFromHTML(meta *Metadata, html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	if meta.Author == "" {
		if v, ok := doc.Find(`meta[name="author"]`).Attr("content"); ok {
			meta.Author = strings.TrimSpace(v)
		}
	}
	if meta.OGImage == "" {
		if v, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
			meta.OGImage = strings.TrimSpace(v)
		}
	}
	if meta.PublishedTime == nil {
		if v, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok {
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(v)); err == nil {
				meta.PublishedTime = &t
			}
		}
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Host, "www.")
}
