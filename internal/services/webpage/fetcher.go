// Package webpage fetches generic web pages and reduces them to a title and
// readable text suitable for model context.
package webpage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

const (
	// browserUserAgent avoids the bot blocks some sites apply to default
	// Go HTTP clients.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	noTitleFound    = "No Title Found"
	maxContentChars = 16000
	maxBodyBytes    = 4 << 20
)

// Page is the readable reduction of a fetched web page.
type Page struct {
	Title string
	Text  string
}

// Fetcher retrieves web pages with a bounded timeout.
type Fetcher struct {
	client *http.Client
}

// Option configures the fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// NewFetcher constructs a Fetcher whose requests time out after the supplied
// duration. A non-positive timeout falls back to 15 seconds.
func NewFetcher(timeout time.Duration, opts ...Option) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	fetcher := &Fetcher{client: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

// Fetch downloads and reduces the page at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch page: new request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetch page: http %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch page: read body: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("fetch page: parse html: %w", err)
	}

	page := &Page{Title: pageTitle(doc)}
	stripNoise(doc)

	text, err := htmltomarkdown.ConvertString(string(body))
	if err != nil || strings.TrimSpace(text) == "" {
		text = collectText(doc)
	}
	page.Text = truncate(collapseWhitespace(text), maxContentChars)
	return page, nil
}

func pageTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				if child.Type == html.TextNode {
					sb.WriteString(child.Data)
				}
			}
			title = strings.TrimSpace(sb.String())
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	if title == "" {
		return noTitleFound
	}
	return title
}

var noiseElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
}

func stripNoise(n *html.Node) {
	child := n.FirstChild
	for child != nil {
		next := child.NextSibling
		if child.Type == html.ElementNode && noiseElements[child.Data] {
			n.RemoveChild(child)
		} else {
			stripNoise(child)
		}
		child = next
	}
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}

func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	// Back up to a rune boundary so the cut never leaves invalid UTF-8.
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit] + "..."
}
