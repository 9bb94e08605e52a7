package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var commandContext = exec.CommandContext

// Client defines the yt-dlp operations the enrichment pipeline depends on.
type Client interface {
	ExtractVideo(ctx context.Context, url string) (*VideoInfo, error)
	ExtractPlaylist(ctx context.Context, url string) (*PlaylistInfo, error)
	DownloadSubtitles(ctx context.Context, url, videoID, dir string, languages []string) (string, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the yt-dlp command-line extractor.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "yt-dlp"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// ExtractVideo fetches full metadata for a single video without downloading
// the media itself.
func (c *CLI) ExtractVideo(ctx context.Context, url string) (*VideoInfo, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("video url required")
	}
	output, err := c.run(ctx, "-J", "--no-playlist", url)
	if err != nil {
		return nil, fmt.Errorf("extract video metadata: %w", err)
	}
	var info VideoInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("decode video metadata: %w", err)
	}
	return &info, nil
}

// ExtractPlaylist fetches a flat playlist listing, one entry per video,
// without resolving each entry's full metadata.
func (c *CLI) ExtractPlaylist(ctx context.Context, url string) (*PlaylistInfo, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("playlist url required")
	}
	output, err := c.run(ctx, "-J", "--flat-playlist", url)
	if err != nil {
		return nil, fmt.Errorf("extract playlist metadata: %w", err)
	}
	var info PlaylistInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("decode playlist metadata: %w", err)
	}
	return &info, nil
}

// DownloadSubtitles asks yt-dlp to write uploaded or auto-generated subtitles
// as ttml into dir and returns the path of the first file matching one of the
// preferred languages. It returns an empty path without error when no
// subtitle track exists.
func (c *CLI) DownloadSubtitles(ctx context.Context, url, videoID, dir string, languages []string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("video url required")
	}
	if strings.TrimSpace(videoID) == "" {
		return "", errors.New("video id required")
	}
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	args := []string{
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", strings.Join(languages, ","),
		"--convert-subs", "ttml",
		"-o", filepath.Join(dir, "%(id)s"),
		url,
	}
	// yt-dlp exits nonzero on some subtitle-less videos, so a run failure is
	// only fatal when no subtitle file showed up either.
	_, runErr := c.run(ctx, args...)
	for _, lang := range languages {
		candidate := filepath.Join(dir, fmt.Sprintf("%s.%s.ttml", videoID, lang))
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	matches, _ := filepath.Glob(filepath.Join(dir, videoID+".*.ttml"))
	if len(matches) > 0 {
		return matches[0], nil
	}
	if runErr != nil {
		return "", fmt.Errorf("download subtitles: %w", runErr)
	}
	return "", nil
}

func (c *CLI) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%s: %w: %s", c.binary, err, firstLine(detail))
		}
		return nil, fmt.Errorf("%s: %w", c.binary, err)
	}
	return stdout.Bytes(), nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}

var _ Client = (*CLI)(nil)
