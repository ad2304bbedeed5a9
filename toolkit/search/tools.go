package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"

	"github.com/hupe1980/tourmesh/tool"
)

// Tool names.
const (
	SearchToolName = "DuckDuckGo Search"
	ReaderToolName = "Read Web Page"
)

// MaxPageSize caps the text returned by the page reader.
const MaxPageSize = 50 * 1024

const searchDescription = `Use this tool to look up events and special activities happening at the destination during the user's travel dates, and to complement activity suggestions.
Input: a plain search query.`

const readerDescription = `Use this tool to read the main text of a web page found with DuckDuckGo Search.
Input: a single absolute http(s) URL.`

// NewSearchTool wraps provider as the "DuckDuckGo Search" tool.
func NewSearchTool(provider Provider, maxResults int, optFns ...func(o *tool.FunctionToolOptions)) tool.Tool {
	if maxResults <= 0 {
		maxResults = 5
	}

	optFns = append([]func(o *tool.FunctionToolOptions){func(o *tool.FunctionToolOptions) {
		o.Validate = func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("query must not be empty")
			}
			return nil
		}
	}}, optFns...)

	return tool.NewFunctionTool(SearchToolName, searchDescription, func(ctx context.Context, input string) (string, error) {
		results, err := provider.Search(ctx, input, maxResults)
		if err != nil {
			return "", err
		}

		return FormatResults(results), nil
	}, optFns...)
}

// PageReader fetches web pages and extracts their readable text.
type PageReader struct {
	client *http.Client
}

// NewPageReader creates a PageReader. A nil client gets a 20s timeout default.
func NewPageReader(client *http.Client) *PageReader {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}

	return &PageReader{client: client}
}

// Read returns the title and text of the page at rawURL.
func (r *PageReader) Read(ctx context.Context, rawURL string) (string, error) {
	rawURL = strings.Trim(strings.TrimSpace(rawURL), "\"'`")

	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", tool.NewToolError(ReaderToolName, fmt.Sprintf("invalid URL %q", rawURL), tool.CodeValidation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch page: HTTP %d", resp.StatusCode)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPageSize))
		if err != nil {
			return "", fmt.Errorf("read page: %w", err)
		}

		return string(body), nil
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	var buf bytes.Buffer
	if err := article.RenderText(&buf); err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}

	text := buf.String()
	if len(text) > MaxPageSize {
		text = text[:MaxPageSize] + "\n... [truncated]"
	}

	return fmt.Sprintf("Title: %s\nURL: %s\n\n%s", article.Title(), rawURL, text), nil
}

// NewReaderTool wraps the reader as the "Read Web Page" tool.
func NewReaderTool(reader *PageReader, optFns ...func(o *tool.FunctionToolOptions)) tool.Tool {
	return tool.NewFunctionTool(ReaderToolName, readerDescription, reader.Read, optFns...)
}
