// Package worker runs the enrichment pipeline for a single batch item. It is
// executed as a subprocess per item so one crash never takes down the
// orchestrating daemon; everything it prints is forwarded verbatim to the
// live log stream.
package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"curio/internal/catalog"
	"curio/internal/config"
	"curio/internal/enrich"
	"curio/internal/logging"
	"curio/internal/resolve"
	"curio/internal/services/webpage"
	"curio/internal/services/ytdlp"
	"curio/internal/transcript"
)

// ProcessingURLPrefix marks lines that tell log consumers which URL the
// worker is currently on.
const ProcessingURLPrefix = "PROCESSING_URL::"

const maxFileContextBytes = 64 << 10

// Worker enriches one locator at a time.
type Worker struct {
	cfg         *config.Config
	store       *catalog.Store
	videos      ytdlp.Client
	pages       *webpage.Fetcher
	transcripts *transcript.Service
	enricher    *enrich.Enricher
	out         io.Writer
	logger      *slog.Logger

	sleep func(time.Duration)
	now   func() time.Time
}

// New wires a Worker from its collaborators. Output lines are written to out;
// a nil logger falls back to a no-op logger.
func New(cfg *config.Config, store *catalog.Store, videos ytdlp.Client, pages *webpage.Fetcher, transcripts *transcript.Service, enricher *enrich.Enricher, out io.Writer, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Worker{
		cfg:         cfg,
		store:       store,
		videos:      videos,
		pages:       pages,
		transcripts: transcripts,
		enricher:    enricher,
		out:         out,
		logger:      logger,
		sleep:       time.Sleep,
		now:         time.Now,
	}
}

// Run enriches a single locator end to end.
func (w *Worker) Run(ctx context.Context, locator string) error {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return fmt.Errorf("worker: empty locator")
	}
	switch resolve.Classify(locator) {
	case resolve.KindPlaylist:
		return w.runPlaylist(ctx, locator)
	case resolve.KindVideo:
		return w.runVideo(ctx, locator, nil)
	case resolve.KindWebpage:
		return w.runWebpage(ctx, locator)
	default:
		return w.runFile(ctx, locator)
	}
}

func (w *Worker) runVideo(ctx context.Context, locator string, playlistID *int64) error {
	w.printf("%s%s", ProcessingURLPrefix, locator)
	w.printf("Fetching video metadata...")

	info, err := w.videos.ExtractVideo(ctx, locator)
	if err != nil {
		return fmt.Errorf("worker: video metadata: %w", err)
	}
	canonicalURL := strings.TrimSpace(info.WebpageURL)
	if canonicalURL == "" {
		canonicalURL = locator
	}

	w.printf("Gathering transcript for %q...", resolve.TitleOrDefault(info.Title))
	contextText := w.transcripts.ContextFor(ctx, info.ID, canonicalURL, info.Description)

	w.printf("Summarizing with %s...", w.enrichmentModelName())
	result := w.enricher.Enrich(ctx, info.Title, contextText)

	if playlistID == nil {
		// A standalone reprocess keeps any existing playlist membership.
		existing, err := w.store.PlaylistIDForURL(ctx, canonicalURL)
		if err != nil {
			w.logger.Warn("playlist membership lookup failed", logging.String("url", canonicalURL), logging.Error(err))
		} else {
			playlistID = existing
		}
	}

	record := &catalog.Record{
		Name:         resolve.TitleOrDefault(info.Title),
		URL:          canonicalURL,
		Kind:         catalog.KindVideo,
		Summary:      result.Summary,
		Tags:         result.Tags,
		Category:     result.Category,
		ThumbnailURL: info.BestThumbnail(),
		Uploader:     resolve.UploaderOrDefault(info.UploaderName()),
		Duration:     int64(info.Duration),
		ProcessedAt:  w.now().UTC(),
		PlaylistID:   playlistID,
	}
	w.persist(ctx, record)
	return nil
}

func (w *Worker) runPlaylist(ctx context.Context, locator string) error {
	w.printf("%s%s", ProcessingURLPrefix, locator)
	w.printf("Fetching playlist metadata...")

	info, err := w.videos.ExtractPlaylist(ctx, locator)
	if err != nil {
		return fmt.Errorf("worker: playlist metadata: %w", err)
	}

	playlist := &catalog.Playlist{
		Title:       resolve.PlaylistTitleOrDefault(info.Title),
		URL:         locator,
		Uploader:    resolve.UploaderOrDefault(info.UploaderName()),
		VideoCount:  len(info.Entries),
		ProcessedAt: w.now().UTC(),
	}
	playlistID, err := w.store.UpsertPlaylist(ctx, playlist)
	if err != nil {
		return fmt.Errorf("worker: save playlist: %w", err)
	}
	w.printf("Playlist %q has %d videos.", playlist.Title, len(info.Entries))

	for i, entry := range info.Entries {
		videoURL := entry.WatchURL()
		if videoURL == "" {
			w.printf("Skipping entry %d: no resolvable URL.", i+1)
			continue
		}
		w.printf("Playlist video %d of %d", i+1, len(info.Entries))
		if err := w.runVideo(ctx, videoURL, &playlistID); err != nil {
			w.printf("Video failed: %v", err)
			w.logger.Error("playlist video failed", logging.String("url", videoURL), logging.Error(err))
		}
		if i < len(info.Entries)-1 {
			w.pause(ctx)
		}
	}
	return nil
}

func (w *Worker) runWebpage(ctx context.Context, locator string) error {
	w.printf("%s%s", ProcessingURLPrefix, locator)
	w.printf("Fetching web page...")

	page, err := w.pages.Fetch(ctx, locator)
	if err != nil {
		return fmt.Errorf("worker: fetch page: %w", err)
	}

	w.printf("Summarizing %q with %s...", page.Title, w.enrichmentModelName())
	result := w.enricher.Enrich(ctx, page.Title, page.Text)

	record := &catalog.Record{
		Name:        page.Title,
		URL:         locator,
		Kind:        catalog.KindWebpage,
		Summary:     result.Summary,
		Tags:        result.Tags,
		Category:    result.Category,
		ProcessedAt: w.now().UTC(),
	}
	w.persist(ctx, record)
	return nil
}

func (w *Worker) runFile(ctx context.Context, locator string) error {
	w.printf("%s%s", ProcessingURLPrefix, locator)
	name := filepath.Base(locator)
	w.printf("Reading file %q...", name)

	contextText := readFileContext(locator)
	w.printf("Summarizing with %s...", w.enrichmentModelName())
	result := w.enricher.Enrich(ctx, name, contextText)

	record := &catalog.Record{
		Name:        name,
		URL:         locator,
		Kind:        catalog.KindFile,
		Summary:     result.Summary,
		Tags:        result.Tags,
		Category:    result.Category,
		ProcessedAt: w.now().UTC(),
	}
	w.persist(ctx, record)
	return nil
}

// persist saves the record, reporting failure on the stream instead of
// aborting so the rest of a batch keeps going.
func (w *Worker) persist(ctx context.Context, record *catalog.Record) {
	saved, err := w.store.UpsertRecord(ctx, record)
	if err != nil {
		w.printf("Failed to save %q: %v", record.Name, err)
		w.logger.Error("record save failed", logging.String("url", record.URL), logging.Error(err))
		return
	}
	w.printf("Saved %q (category: %s).", saved.Name, saved.Category)
}

func (w *Worker) pause(ctx context.Context) {
	delay := w.pauseDuration()
	if delay <= 0 {
		return
	}
	w.printf("Waiting %s before the next video...", delay.Round(time.Second))
	select {
	case <-ctx.Done():
	default:
		w.sleep(delay)
	}
}

func (w *Worker) pauseDuration() time.Duration {
	enricher := w.cfg.Enricher
	if enricher.PacingSeconds > 0 {
		return time.Duration(enricher.PacingSeconds) * time.Second
	}
	minSec, maxSec := enricher.PacingJitterMinSeconds, enricher.PacingJitterMaxSeconds
	if minSec <= 0 && maxSec <= 0 {
		return 0
	}
	if maxSec < minSec {
		maxSec = minSec
	}
	spread := maxSec - minSec + 1
	return time.Duration(minSec+rand.Intn(spread)) * time.Second
}

func (w *Worker) enrichmentModelName() string {
	if model := strings.TrimSpace(w.cfg.LLM.Model); model != "" {
		return model
	}
	return "the configured model"
}

func (w *Worker) printf(format string, args ...any) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// readFileContext returns the file's text content when it looks like text,
// and an empty context otherwise so enrichment falls back to its
// not-enough-content result.
func readFileContext(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()
	buf := make([]byte, maxFileContextBytes)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return ""
	}
	content := buf[:n]
	if !looksLikeText(content) {
		return ""
	}
	return strings.TrimSpace(string(content))
}

func looksLikeText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sample := data
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	for _, b := range sample {
		if b == 0 {
			return false
		}
	}
	// Tolerate a rune truncated by the sampling cut, nothing more.
	full := len(sample)
	for len(sample) > 0 && !utf8.Valid(sample) {
		if full-len(sample) >= utf8.UTFMax {
			return false
		}
		sample = sample[:len(sample)-1]
	}
	return len(sample) > 0
}
