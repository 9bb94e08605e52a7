package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"curio/internal/batch"
)

const maxUploadBytes = 256 << 20

// handleUpload accepts one multipart file, stores it in the uploads
// directory, and starts a single-item batch over the saved path.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	name := sanitizeFilename(header.Filename)
	if name == "" {
		s.writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	uploadsDir := s.cfg.Paths.UploadsDir
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	destPath := uniquePath(filepath.Join(uploadsDir, name))

	dest, err := os.Create(destPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer dest.Close()
	if _, err := io.Copy(dest, file); err != nil {
		os.Remove(destPath)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	runID, err := s.runner.Submit(r.Context(), []string{destPath})
	if err != nil {
		os.Remove(destPath)
		if errors.Is(err, batch.ErrBatchActive) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"name":   filepath.Base(destPath),
		"path":   destPath,
		"run_id": runID,
	})
}

// sanitizeFilename strips any path components and characters that could
// escape the uploads directory.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "..", "_")
	name = strings.Trim(name, ". ")
	if name == "" || name == "_" {
		return ""
	}
	return name
}

// uniquePath appends a numeric suffix rather than overwriting an existing
// upload of the same name.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
