package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/UnknownOlympus/waypoint/internal/repository"
	"github.com/go-chi/chi/v5"
)

// Reply bodies of the marker API.
const (
	msgReadFailed      = "Error reading markers"
	msgSaveFailed      = "Error saving markers"
	msgInvalidPayload  = "Invalid markers payload"
	msgInvalidFilename = "Invalid filename"
)

var errTrailingData = errors.New("unexpected data after markers array")

type errorReply struct {
	Error string `json:"error"`
}

type saveReply struct {
	Success bool `json:"success"`
}

func (s *Server) handleGetMarkers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filename := chi.URLParam(r, "filename")

	if err := repository.ValidateFilename(filename); err != nil {
		s.log.WarnContext(ctx, "Rejected marker filename", "filename", filename)
		s.writeJSON(w, r, http.StatusBadRequest, errorReply{Error: msgInvalidFilename})
		return
	}

	markers, err := s.repo.Read(ctx, filename)
	if err != nil {
		s.log.ErrorContext(ctx, msgReadFailed, "filename", filename, "error", err)
		s.metrics.StoreOperations.WithLabelValues("read", "failure").Inc()
		s.writeJSON(w, r, http.StatusInternalServerError, errorReply{Error: msgReadFailed})
		return
	}
	s.metrics.StoreOperations.WithLabelValues("read", "success").Inc()

	s.writeJSON(w, r, http.StatusOK, markers)
}

func (s *Server) handleSaveMarkers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filename := chi.URLParam(r, "filename")

	if err := repository.ValidateFilename(filename); err != nil {
		s.log.WarnContext(ctx, "Rejected marker filename", "filename", filename)
		s.writeJSON(w, r, http.StatusBadRequest, errorReply{Error: msgInvalidFilename})
		return
	}

	var markers models.Collection
	if err := decodeMarkers(http.MaxBytesReader(w, r.Body, maxBodyBytes), &markers); err != nil {
		s.log.WarnContext(ctx, "Rejected markers payload", "filename", filename, "error", err)
		s.writeJSON(w, r, http.StatusBadRequest, errorReply{Error: msgInvalidPayload})
		return
	}

	if err := s.repo.Write(ctx, filename, markers); err != nil {
		s.log.ErrorContext(ctx, msgSaveFailed, "filename", filename, "error", err)
		s.metrics.StoreOperations.WithLabelValues("write", "failure").Inc()
		status := http.StatusInternalServerError
		if errors.Is(err, repository.ErrInvalidFilename) {
			status = http.StatusBadRequest
		}
		s.writeJSON(w, r, status, errorReply{Error: msgSaveFailed})
		return
	}
	s.metrics.StoreOperations.WithLabelValues("write", "success").Inc()

	s.writeJSON(w, r, http.StatusOK, saveReply{Success: true})
}

// decodeMarkers reads exactly one JSON array from body.
func decodeMarkers(body io.Reader, markers *models.Collection) error {
	decoder := json.NewDecoder(body)
	if err := decoder.Decode(markers); err != nil {
		return err
	}
	if err := decoder.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.log.DebugContext(ctx, "Performing health checks...")

	status, body := http.StatusOK, "OK"
	if err := s.repo.Ping(ctx); err != nil {
		s.log.ErrorContext(ctx, "Health check failed", "error", err)
		status, body = http.StatusServiceUnavailable, "Storage check failed"
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		s.log.ErrorContext(ctx, "failed to write reply", "error", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.ErrorContext(r.Context(), "failed to write reply", "error", err)
	}
}
