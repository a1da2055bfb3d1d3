// Package websearch provides a web search fallback over the DuckDuckGo HTML
// endpoint. No API key required; results are snippet text, not full pages.
package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

const (
	defaultEndpoint   = "https://html.duckduckgo.com/html/"
	defaultMaxResults = 5
	defaultTimeout    = 15 * time.Second
	userAgent         = "Mozilla/5.0 (compatible; ragdex/1.0)"
)

// Config holds web search client settings.
type Config struct {
	Endpoint   string
	MaxResults int
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Client searches DuckDuckGo and returns concatenated result snippets.
type Client struct {
	endpoint   string
	maxResults int
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a web search client.
func New(cfg *Config) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		endpoint:   endpoint,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}
}

// Search runs the query and returns result titles and snippets as plain
// text, one result per line. Failures wrap domain.ErrWebSearchFailed.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	results, err := c.search(ctx, query)
	if err != nil {
		metrics.WebSearchTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%v: %w", err, domain.ErrWebSearchFailed)
	}
	metrics.WebSearchTotal.WithLabelValues("success").Inc()

	c.logger.Info("Web search done",
		zap.String("query", query),
		zap.Int("results", len(results)))
	return strings.Join(results, "\n"), nil
}

func (c *Client) search(ctx context.Context, query string) ([]string, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}

	var results []string
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		title := strings.TrimSpace(s.Find(".result__title").Text())
		snippet := strings.TrimSpace(s.Find(".result__snippet").Text())
		if title == "" && snippet == "" {
			return true
		}
		if title != "" && snippet != "" {
			results = append(results, title+": "+snippet)
		} else {
			results = append(results, title+snippet)
		}
		return len(results) < c.maxResults
	})

	if len(results) == 0 {
		return nil, fmt.Errorf("no results for query")
	}
	return results, nil
}
