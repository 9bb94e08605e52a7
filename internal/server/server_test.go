package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"curio/internal/batch"
	"curio/internal/catalog"
	"curio/internal/config"
	"curio/internal/logstream"
	"curio/internal/testsupport"
)

type fakeRunner struct {
	runID       string
	submitErr   error
	running     bool
	channel     *logstream.Channel
	submissions [][]string
}

func (f *fakeRunner) Submit(ctx context.Context, items []string) (string, error) {
	f.submissions = append(f.submissions, items)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.runID, nil
}

func (f *fakeRunner) Running() bool { return f.running }

func (f *fakeRunner) Channel() *logstream.Channel { return f.channel }

func newTestServer(t *testing.T, runner *fakeRunner) (*Server, *catalog.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, func(cfg *config.Config) {
		cfg.Enricher.LogIdleTimeoutSeconds = 1
	})
	store := testsupport.MustOpenStore(t, cfg)

	if runner.channel == nil {
		runner.channel = logstream.NewChannel()
	}
	return New(cfg, store, runner, nil), store
}

func TestBatchStartAccepted(t *testing.T) {
	runner := &fakeRunner{runID: "run-1"}
	srv, _ := newTestServer(t, runner)

	body := strings.NewReader(`{"items":["https://example.com/a"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/batch/start", body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["run_id"] != "run-1" {
		t.Fatalf("run_id = %q", resp["run_id"])
	}
	if len(runner.submissions) != 1 || runner.submissions[0][0] != "https://example.com/a" {
		t.Fatalf("submissions = %v", runner.submissions)
	}
}

func TestBatchStartConflict(t *testing.T) {
	runner := &fakeRunner{submitErr: batch.ErrBatchActive}
	srv, _ := newTestServer(t, runner)

	req := httptest.NewRequest(http.MethodPost, "/api/batch/start", strings.NewReader(`{"items":["x"]}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestBatchStartNoItems(t *testing.T) {
	runner := &fakeRunner{submitErr: batch.ErrNoItems}
	srv, _ := newTestServer(t, runner)

	req := httptest.NewRequest(http.MethodPost, "/api/batch/start", strings.NewReader(`{"items":[]}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestBatchStartRejectsBadJSON(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodPost, "/api/batch/start", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatusReportsRunning(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{running: true})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp["is_running"] {
		t.Fatalf("is_running = %v", resp)
	}
}

func TestLogsStreamEndsWithSentinel(t *testing.T) {
	runner := &fakeRunner{channel: logstream.NewChannel()}
	srv, _ := newTestServer(t, runner)

	runner.channel.Publishf("first line")
	runner.channel.Publishf("second line")
	runner.channel.PublishTerminal()

	req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "data: first line\n\n") || !strings.Contains(body, "data: second line\n\n") {
		t.Fatalf("missing log lines:\n%s", body)
	}
	if !strings.HasSuffix(body, "data: "+logstream.StreamEnd+"\n\n") {
		t.Fatalf("stream does not end with sentinel:\n%s", body)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content type = %q", got)
	}
}

func TestLogsStreamIdleTimeout(t *testing.T) {
	runner := &fakeRunner{channel: logstream.NewChannel()}
	srv, _ := newTestServer(t, runner)

	start := time.Now()
	req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if elapsed := time.Since(start); elapsed < 500*time.Millisecond {
		t.Fatalf("handler returned too quickly: %s", elapsed)
	}
	if !strings.Contains(rec.Body.String(), logstream.StreamEnd) {
		t.Fatalf("idle stream missing sentinel:\n%s", rec.Body.String())
	}
}

func TestUploadSavesFileAndStartsBatch(t *testing.T) {
	runner := &fakeRunner{runID: "run-upload"}
	srv, _ := newTestServer(t, runner)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "../../evil notes.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("file body"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if strings.Contains(resp["name"], "/") || strings.Contains(resp["name"], "..") {
		t.Fatalf("unsanitized name %q", resp["name"])
	}
	if resp["run_id"] != "run-upload" {
		t.Fatalf("run_id = %q", resp["run_id"])
	}
	if len(runner.submissions) != 1 || runner.submissions[0][0] != resp["path"] {
		t.Fatalf("batch not started over saved path: %v vs %q", runner.submissions, resp["path"])
	}
}

func TestUploadConflictsWhileBatchActive(t *testing.T) {
	runner := &fakeRunner{submitErr: batch.ErrBatchActive}
	srv, _ := newTestServer(t, runner)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("body"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUploadRequiresFileField(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("nope"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLibraryReturnsEntries(t *testing.T) {
	srv, store := newTestServer(t, &fakeRunner{})
	if _, err := store.UpsertRecord(context.Background(), &catalog.Record{
		Name: "Solo", URL: "https://example.com/solo", Kind: catalog.KindWebpage,
		Summary: "s", Category: "c", ProcessedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/library", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Library []catalog.LibraryEntry `json:"library"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Library) != 1 || resp.Library[0].Record == nil || resp.Library[0].Record.Name != "Solo" {
		t.Fatalf("library = %+v", resp.Library)
	}
}

func TestUpdateRecord(t *testing.T) {
	srv, store := newTestServer(t, &fakeRunner{})
	saved, err := store.UpsertRecord(context.Background(), &catalog.Record{
		Name: "Before", URL: "https://example.com/x", Kind: catalog.KindWebpage,
		Summary: "old", Category: "Old", ProcessedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}

	body := strings.NewReader(`{"name":"After","category":"New"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/records/"+itoa(saved.ID), body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated, err := store.GetRecord(context.Background(), saved.ID)
	if err != nil || updated == nil {
		t.Fatalf("reload record: %v", err)
	}
	if updated.Name != "After" || updated.Category != "New" || updated.Summary != "old" {
		t.Fatalf("updated = %+v", updated)
	}
}

func TestUpdateRecordNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodPut, "/api/records/9999", strings.NewReader(`{"name":"x"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDeleteRecord(t *testing.T) {
	srv, store := newTestServer(t, &fakeRunner{})
	saved, err := store.UpsertRecord(context.Background(), &catalog.Record{
		Name: "Doomed", URL: "https://example.com/y", Kind: catalog.KindWebpage,
		Summary: "s", Category: "c", ProcessedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/records/"+itoa(saved.ID), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got, _ := store.GetRecord(context.Background(), saved.ID); got != nil {
		t.Fatalf("record still present: %+v", got)
	}
}

func TestDeletePlaylistRemovesMembers(t *testing.T) {
	srv, store := newTestServer(t, &fakeRunner{})
	playlistID, err := store.UpsertPlaylist(context.Background(), &catalog.Playlist{
		Title: "Gone", URL: "https://example.com/pl", ProcessedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed playlist: %v", err)
	}
	if _, err := store.UpsertRecord(context.Background(), &catalog.Record{
		Name: "Member", URL: "https://example.com/m", Kind: catalog.KindVideo,
		Summary: "s", Category: "c", ProcessedAt: time.Now(), PlaylistID: &playlistID,
	}); err != nil {
		t.Fatalf("seed member: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/playlists/"+itoa(playlistID), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	records, _ := store.AllRecords(context.Background())
	if len(records) != 0 {
		t.Fatalf("member records remain: %+v", records)
	}
}

func TestRecordPathValidation(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{})
	for _, path := range []string{"/api/records/", "/api/records/abc", "/api/records/1/extra", "/api/records/-3"} {
		req := httptest.NewRequest(http.MethodDelete, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("path %q status = %d, want 404", path, rec.Code)
		}
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
