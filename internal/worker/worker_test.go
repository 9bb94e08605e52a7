package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"curio/internal/catalog"
	"curio/internal/config"
	"curio/internal/enrich"
	"curio/internal/services/webpage"
	"curio/internal/services/ytdlp"
	"curio/internal/testsupport"
	"curio/internal/transcript"
)

type fakeCompleter struct {
	reply string
	calls int
}

func (f *fakeCompleter) CompleteJSON(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	return f.reply, nil
}

type fakeVideos struct {
	video       *ytdlp.VideoInfo
	videoErr    error
	playlist    *ytdlp.PlaylistInfo
	playlistErr error
	videoCalls  []string
}

func (f *fakeVideos) ExtractVideo(ctx context.Context, url string) (*ytdlp.VideoInfo, error) {
	f.videoCalls = append(f.videoCalls, url)
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	if f.video != nil {
		return f.video, nil
	}
	return &ytdlp.VideoInfo{ID: "gen", Title: "Generated", WebpageURL: url}, nil
}

func (f *fakeVideos) ExtractPlaylist(ctx context.Context, url string) (*ytdlp.PlaylistInfo, error) {
	return f.playlist, f.playlistErr
}

func (f *fakeVideos) DownloadSubtitles(ctx context.Context, url, videoID, dir string, languages []string) (string, error) {
	return "", nil
}

type fakeTranscriptSource struct{ text string }

func (f *fakeTranscriptSource) Fetch(ctx context.Context, videoID string, languages []string) (string, error) {
	return f.text, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t, func(cfg *config.Config) {
		cfg.LLM.Model = "test-model"
		cfg.Enricher.PacingSeconds = 1
		cfg.Transcript.Languages = []string{"en"}
	})
}

func newTestWorker(t *testing.T, cfg *config.Config, videos ytdlp.Client, completer enrich.Completer, out *bytes.Buffer) (*Worker, *catalog.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)

	transcripts := transcript.NewService(&fakeTranscriptSource{text: "spoken words"}, videos, cfg.ScratchDir(), cfg.Transcript.Languages, nil)
	enricher := enrich.New(completer, nil)
	pages := webpage.NewFetcher(5 * time.Second)
	w := New(cfg, store, videos, pages, transcripts, enricher, out, nil)
	w.sleep = func(time.Duration) {}
	return w, store
}

const enrichmentReply = `{"summary":"A short test summary.","tags":["alpha","beta"],"category":"Testing"}`

func TestRunFileSavesTextRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("meeting notes about the roadmap"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var out bytes.Buffer
	completer := &fakeCompleter{reply: enrichmentReply}
	w, store := newTestWorker(t, testConfig(t), &fakeVideos{}, completer, &out)

	if err := w.Run(context.Background(), path); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(out.String(), ProcessingURLPrefix+path) {
		t.Fatalf("missing processing marker in output:\n%s", out.String())
	}

	records, err := store.AllRecords(context.Background())
	if err != nil {
		t.Fatalf("AllRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	record := records[0]
	if record.Kind != catalog.KindFile || record.Name != "notes.txt" {
		t.Fatalf("record = %+v", record)
	}
	if record.Summary != "A short test summary." || record.Tags != "alpha, beta" {
		t.Fatalf("enrichment = %+v", record)
	}
}

func TestRunFileUnreadableYieldsNotEnoughContent(t *testing.T) {
	var out bytes.Buffer
	completer := &fakeCompleter{reply: enrichmentReply}
	w, store := newTestWorker(t, testConfig(t), &fakeVideos{}, completer, &out)

	if err := w.Run(context.Background(), filepath.Join(t.TempDir(), "missing.bin")); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if completer.calls != 0 {
		t.Fatalf("model called %d times for empty context", completer.calls)
	}
	records, _ := store.AllRecords(context.Background())
	if len(records) != 1 || records[0].Summary != "Not enough content." {
		t.Fatalf("records = %+v", records)
	}
}

func TestRunWebpageSavesRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Interesting Post</title></head><body><p>Plenty of readable text.</p></body></html>`))
	}))
	defer server.Close()

	var out bytes.Buffer
	w, store := newTestWorker(t, testConfig(t), &fakeVideos{}, &fakeCompleter{reply: enrichmentReply}, &out)

	if err := w.Run(context.Background(), server.URL); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	records, _ := store.AllRecords(context.Background())
	if len(records) != 1 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0].Kind != catalog.KindWebpage || records[0].Name != "Interesting Post" {
		t.Fatalf("record = %+v", records[0])
	}
}

func TestRunWebpageUnreachableHostPersistsNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := server.URL
	server.Close()

	var out bytes.Buffer
	completer := &fakeCompleter{reply: enrichmentReply}
	w, store := newTestWorker(t, testConfig(t), &fakeVideos{}, completer, &out)

	if err := w.Run(context.Background(), deadURL); err == nil {
		t.Fatal("Run should fail for an unreachable host")
	}
	if completer.calls != 0 {
		t.Fatalf("model called %d times for a failed fetch", completer.calls)
	}
	records, _ := store.AllRecords(context.Background())
	if len(records) != 0 {
		t.Fatalf("records persisted for a failed fetch: %+v", records)
	}
}

func TestRunVideoSavesMetadata(t *testing.T) {
	videos := &fakeVideos{video: &ytdlp.VideoInfo{
		ID:          "abc123",
		Title:       "Deep Dive",
		Uploader:    "The Channel",
		Duration:    421.0,
		Description: "about things",
		WebpageURL:  "https://www.youtube.com/watch?v=abc123",
		Thumbnails:  []ytdlp.Thumbnail{{URL: "https://i.ytimg.com/vi/abc123/maxresdefault.jpg"}},
	}}

	var out bytes.Buffer
	w, store := newTestWorker(t, testConfig(t), videos, &fakeCompleter{reply: enrichmentReply}, &out)

	if err := w.Run(context.Background(), "https://www.youtube.com/watch?v=abc123"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	records, _ := store.AllRecords(context.Background())
	if len(records) != 1 {
		t.Fatalf("records = %d", len(records))
	}
	record := records[0]
	if record.Kind != catalog.KindVideo || record.Name != "Deep Dive" {
		t.Fatalf("record = %+v", record)
	}
	if record.Duration != 421 || record.Uploader != "The Channel" {
		t.Fatalf("metadata = %+v", record)
	}
	if record.ThumbnailURL != "https://i.ytimg.com/vi/abc123/maxresdefault.jpg" {
		t.Fatalf("thumbnail = %q", record.ThumbnailURL)
	}
}

func TestRunVideoKeepsPlaylistMembershipOnReprocess(t *testing.T) {
	videos := &fakeVideos{video: &ytdlp.VideoInfo{
		ID:         "abc123",
		Title:      "Member Video",
		WebpageURL: "https://www.youtube.com/watch?v=abc123",
	}}

	var out bytes.Buffer
	w, store := newTestWorker(t, testConfig(t), videos, &fakeCompleter{reply: enrichmentReply}, &out)

	playlistID, err := store.UpsertPlaylist(context.Background(), &catalog.Playlist{
		Title: "Existing", URL: "https://www.youtube.com/playlist?list=PL1", ProcessedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("UpsertPlaylist: %v", err)
	}
	if _, err := store.UpsertRecord(context.Background(), &catalog.Record{
		Name: "Member Video", URL: "https://www.youtube.com/watch?v=abc123",
		Kind: catalog.KindVideo, Summary: "old", ProcessedAt: time.Now(), PlaylistID: &playlistID,
	}); err != nil {
		t.Fatalf("UpsertRecord: %v", err)
	}

	if err := w.Run(context.Background(), "https://www.youtube.com/watch?v=abc123"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	records, _ := store.AllRecords(context.Background())
	if len(records) != 1 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0].PlaylistID == nil || *records[0].PlaylistID != playlistID {
		t.Fatalf("playlist membership lost: %+v", records[0])
	}
	if records[0].Summary != "A short test summary." {
		t.Fatalf("summary not refreshed: %q", records[0].Summary)
	}
}

func TestRunPlaylistProcessesAllEntries(t *testing.T) {
	videos := &fakeVideos{playlist: &ytdlp.PlaylistInfo{
		ID:       "PL1",
		Title:    "Series",
		Uploader: "The Channel",
		Entries: []ytdlp.PlaylistEntry{
			{ID: "vid1", Title: "One"},
			{ID: "vid2", Title: "Two"},
		},
	}}

	var out bytes.Buffer
	cfg := testConfig(t)
	w, store := newTestWorker(t, cfg, videos, &fakeCompleter{reply: enrichmentReply}, &out)
	var slept int
	w.sleep = func(time.Duration) { slept++ }

	if err := w.Run(context.Background(), "https://www.youtube.com/playlist?list=PL1"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	library, err := store.Library(context.Background())
	if err != nil {
		t.Fatalf("Library: %v", err)
	}
	if len(library) != 1 || library[0].Playlist == nil {
		t.Fatalf("library = %+v", library)
	}
	if len(library[0].Records) != 2 {
		t.Fatalf("playlist records = %d, want 2", len(library[0].Records))
	}
	if slept != 1 {
		t.Fatalf("slept %d times, want 1 (between two videos)", slept)
	}
	if len(videos.videoCalls) != 2 {
		t.Fatalf("video extractions = %d", len(videos.videoCalls))
	}
}

func TestRunPlaylistContinuesPastFailingEntry(t *testing.T) {
	videos := &fakeVideos{
		playlist: &ytdlp.PlaylistInfo{
			Title:   "Flaky",
			Entries: []ytdlp.PlaylistEntry{{ID: "vid1"}, {ID: "vid2"}},
		},
	}
	failFirst := true
	base := videos
	wrapped := &flakyVideos{fakeVideos: base, failFirst: &failFirst}

	var out bytes.Buffer
	w, store := newTestWorker(t, testConfig(t), wrapped, &fakeCompleter{reply: enrichmentReply}, &out)

	if err := w.Run(context.Background(), "https://www.youtube.com/playlist?list=PL2"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	records, _ := store.AllRecords(context.Background())
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1 surviving entry", len(records))
	}
	if !strings.Contains(out.String(), "Video failed") {
		t.Fatalf("failure not reported in output:\n%s", out.String())
	}
}

func TestRunVideoLogsFailedMembershipLookup(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	videos := &fakeVideos{video: &ytdlp.VideoInfo{
		ID:         "abc123",
		Title:      "Orphaned",
		WebpageURL: "https://www.youtube.com/watch?v=abc123",
	}}
	transcripts := transcript.NewService(&fakeTranscriptSource{text: "spoken words"}, videos, cfg.ScratchDir(), cfg.Transcript.Languages, nil)

	var out bytes.Buffer
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	w := New(cfg, store, videos, webpage.NewFetcher(time.Second), transcripts, enrich.New(&fakeCompleter{reply: enrichmentReply}, nil), &out, logger)
	w.sleep = func(time.Duration) {}

	// Every store query fails from here on.
	store.Close()

	if err := w.Run(context.Background(), "https://www.youtube.com/watch?v=abc123"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(logs.String(), "playlist membership lookup failed") {
		t.Fatalf("lookup failure not logged:\n%s", logs.String())
	}
}

type flakyVideos struct {
	*fakeVideos
	failFirst *bool
}

func (f *flakyVideos) ExtractVideo(ctx context.Context, url string) (*ytdlp.VideoInfo, error) {
	if *f.failFirst {
		*f.failFirst = false
		return nil, errors.New("extraction blew up")
	}
	return f.fakeVideos.ExtractVideo(ctx, url)
}
