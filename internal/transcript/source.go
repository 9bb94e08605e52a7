package transcript

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Source fetches a transcript for a video directly, without going through
// subtitle file downloads.
type Source interface {
	Fetch(ctx context.Context, videoID string, languages []string) (string, error)
}

const defaultTimedTextURL = "https://video.google.com/timedtext"

// TimedTextSource pulls captions from YouTube's timedtext endpoint. Many
// videos serve nothing here, which is reported as an empty transcript rather
// than an error.
type TimedTextSource struct {
	client  *http.Client
	baseURL string
}

// TimedTextOption configures the source.
type TimedTextOption func(*TimedTextSource)

// WithTimedTextClient overrides the default HTTP client.
func WithTimedTextClient(client *http.Client) TimedTextOption {
	return func(s *TimedTextSource) {
		if client != nil {
			s.client = client
		}
	}
}

// WithTimedTextBaseURL overrides the endpoint, mainly for tests.
func WithTimedTextBaseURL(base string) TimedTextOption {
	return func(s *TimedTextSource) {
		if base != "" {
			s.baseURL = base
		}
	}
}

// NewTimedTextSource constructs a TimedTextSource with a bounded timeout.
func NewTimedTextSource(opts ...TimedTextOption) *TimedTextSource {
	source := &TimedTextSource{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: defaultTimedTextURL,
	}
	for _, opt := range opts {
		opt(source)
	}
	return source
}

// Fetch tries each preferred language in order and returns the first
// non-empty transcript.
func (s *TimedTextSource) Fetch(ctx context.Context, videoID string, languages []string) (string, error) {
	if strings.TrimSpace(videoID) == "" {
		return "", fmt.Errorf("timedtext: video id required")
	}
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	var lastErr error
	for _, lang := range languages {
		text, err := s.fetchLanguage(ctx, videoID, lang)
		if err != nil {
			lastErr = err
			continue
		}
		if text != "" {
			return text, nil
		}
	}
	return "", lastErr
}

func (s *TimedTextSource) fetchLanguage(ctx context.Context, videoID, lang string) (string, error) {
	endpoint := fmt.Sprintf("%s?lang=%s&v=%s", s.baseURL, url.QueryEscape(lang), url.QueryEscape(videoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("timedtext: new request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("timedtext: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("timedtext: http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("timedtext: read body: %w", err)
	}
	return parseTimedText(body)
}

type timedTextDocument struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

func parseTimedText(body []byte) (string, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", nil
	}
	var doc timedTextDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("timedtext: parse xml: %w", err)
	}
	parts := make([]string, 0, len(doc.Texts))
	for _, segment := range doc.Texts {
		value := strings.TrimSpace(html.UnescapeString(segment.Value))
		if value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, " "), nil
}

var _ Source = (*TimedTextSource)(nil)
