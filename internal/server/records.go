package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

type recordUpdateRequest struct {
	Name     *string `json:"name"`
	Uploader *string `json:"uploader"`
	Category *string `json:"category"`
	Summary  *string `json:"summary"`
	Tags     *string `json:"tags"`
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, "/api/records/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "record not found")
		return
	}
	switch r.Method {
	case http.MethodPut:
		s.updateRecord(w, r, id)
	case http.MethodDelete:
		s.deleteRecord(w, r, id)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request, id int64) {
	var req recordUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	record, err := s.store.GetRecord(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if record == nil {
		s.writeError(w, http.StatusNotFound, "record not found")
		return
	}

	if req.Name != nil {
		record.Name = strings.TrimSpace(*req.Name)
	}
	if req.Uploader != nil {
		record.Uploader = strings.TrimSpace(*req.Uploader)
	}
	if req.Category != nil {
		record.Category = strings.TrimSpace(*req.Category)
	}
	if req.Summary != nil {
		record.Summary = *req.Summary
	}
	if req.Tags != nil {
		record.Tags = strings.TrimSpace(*req.Tags)
	}
	if record.Name == "" {
		s.writeError(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	if err := s.store.UpdateRecord(r.Context(), record); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request, id int64) {
	removed, err := s.store.RemoveRecord(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, "record not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, ok := pathID(r.URL.Path, "/api/playlists/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	if err := s.store.RemovePlaylist(r.Context(), id); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func pathID(path, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
