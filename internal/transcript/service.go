// Package transcript assembles the model context for a video: description
// plus the best transcript it can find, degrading gracefully when no captions
// exist.
package transcript

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"curio/internal/logging"
	"curio/internal/services/ytdlp"
)

const noTranscriptPlaceholder = "Transcript: No transcript available."

// subtitleTextPattern pulls the text spans out of a ttml document without a
// full XML parse; ttml from yt-dlp nests spans unpredictably.
var subtitleTextPattern = regexp.MustCompile(`>([^<]+)<`)

// Service resolves transcripts using a primary source with a subtitle-file
// fallback through yt-dlp.
type Service struct {
	source     Source
	downloader ytdlp.Client
	scratchDir string
	languages  []string
	logger     *slog.Logger
}

// NewService constructs the transcript service. A nil logger falls back to a
// no-op logger.
func NewService(source Source, downloader ytdlp.Client, scratchDir string, languages []string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		source:     source,
		downloader: downloader,
		scratchDir: scratchDir,
		languages:  languages,
		logger:     logger,
	}
}

// ContextFor builds the enrichment context for a video. It never fails: the
// primary source's transcript is returned as-is, the subtitle-file fallback
// is paired with the description, and when every transcript path comes up
// empty the description alone is labeled with a no-transcript placeholder.
// An empty string means there is nothing to analyze at all.
func (s *Service) ContextFor(ctx context.Context, videoID, videoURL, description string) string {
	description = strings.TrimSpace(description)

	if text := s.fromPrimary(ctx, videoID); text != "" {
		return text
	}
	if text := s.fromSubtitleFile(ctx, videoID, videoURL); text != "" {
		return withDescription(description, text)
	}
	if description != "" {
		return fmt.Sprintf("Video Description:\n%s\n\n%s", description, noTranscriptPlaceholder)
	}
	return ""
}

func (s *Service) fromPrimary(ctx context.Context, videoID string) string {
	if s.source == nil {
		return ""
	}
	text, err := s.source.Fetch(ctx, videoID, s.languages)
	if err != nil {
		s.logger.Debug("primary transcript source failed", logging.String("video_id", videoID), logging.Error(err))
		return ""
	}
	return strings.TrimSpace(text)
}

func (s *Service) fromSubtitleFile(ctx context.Context, videoID, videoURL string) string {
	if s.downloader == nil {
		return ""
	}
	path, err := s.downloader.DownloadSubtitles(ctx, videoURL, videoID, s.scratchDir, s.languages)
	if err != nil {
		s.logger.Debug("subtitle download failed", logging.String("video_id", videoID), logging.Error(err))
		return ""
	}
	if path == "" {
		return ""
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			s.logger.Debug("subtitle cleanup failed", logging.String("path", path), logging.Error(err))
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Debug("subtitle read failed", logging.String("path", path), logging.Error(err))
		return ""
	}
	return extractSubtitleText(string(data))
}

func extractSubtitleText(document string) string {
	matches := subtitleTextPattern.FindAllStringSubmatch(document, -1)
	parts := make([]string, 0, len(matches))
	for _, match := range matches {
		value := strings.TrimSpace(html.UnescapeString(match[1]))
		if value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, " ")
}

func withDescription(description, transcript string) string {
	return fmt.Sprintf("Video Description:\n%s\n\nTranscript:\n%s", description, transcript)
}
