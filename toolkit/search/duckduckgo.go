// Package search provides the web search and page reader tools.
package search

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/hupe1980/tourmesh/logging"
)

const userAgent = "Mozilla/5.0 (compatible; tourmesh/1.0)"

// Result is one web search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Provider runs a web search.
type Provider interface {
	Search(ctx context.Context, query string, count int) ([]Result, error)
}

// DuckDuckGoOptions configures the DuckDuckGo provider.
type DuckDuckGoOptions struct {
	// Endpoint is the HTML search page; the query is appended as ?q=.
	Endpoint   string
	HTTPClient *http.Client
	Logger     logging.Logger
}

// DuckDuckGo scrapes the DuckDuckGo HTML endpoint.
type DuckDuckGo struct {
	opts DuckDuckGoOptions
}

// NewDuckDuckGo creates a DuckDuckGo provider.
func NewDuckDuckGo(optFns ...func(o *DuckDuckGoOptions)) *DuckDuckGo {
	opts := DuckDuckGoOptions{
		Endpoint:   "https://html.duckduckgo.com/html/",
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &DuckDuckGo{opts: opts}
}

// Search returns up to count results for query.
func (d *DuckDuckGo) Search(ctx context.Context, query string, count int) ([]Result, error) {
	searchURL := d.opts.Endpoint + "?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	results := extractResults(string(body), count)
	d.opts.Logger.Debug("search.duckduckgo", "query", query, "results", len(results))

	return results, nil
}

var (
	linkRe    = regexp.MustCompile(`<a[^>]*class="[^"]*result__a[^"]*"[^>]*href="([^"]+)"[^>]*>([\s\S]*?)</a>`)
	snippetRe = regexp.MustCompile(`<a class="result__snippet[^"]*".*?>([\s\S]*?)</a>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
)

func extractResults(page string, count int) []Result {
	links := linkRe.FindAllStringSubmatch(page, count+5)
	if len(links) == 0 {
		return nil
	}

	snippets := snippetRe.FindAllStringSubmatch(page, count+5)

	results := make([]Result, 0, count)
	for i := 0; i < len(links) && i < count; i++ {
		r := Result{
			Title: cleanText(links[i][2]),
			URL:   unwrapRedirect(html.UnescapeString(links[i][1])),
		}

		if i < len(snippets) {
			r.Snippet = cleanText(snippets[i][1])
		}

		results = append(results, r)
	}

	return results
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(tagRe.ReplaceAllString(s, ""))), " ")
}

// unwrapRedirect extracts the target of a //duckduckgo.com/l/?uddg=... link.
func unwrapRedirect(raw string) string {
	if !strings.Contains(raw, "uddg=") {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if target := u.Query().Get("uddg"); target != "" {
		return target
	}

	return raw
}

// FormatResults renders results as numbered blocks for the model.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
	}

	return b.String()
}
