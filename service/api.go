package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/chatgrab/extractor"
	"github.com/hazyhaar/chatgrab/kit"
	"github.com/hazyhaar/chatgrab/shield"
	"github.com/hazyhaar/chatgrab/store"
)

// Router builds the HTTP API.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestContext)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(shield.SecurityHeaders)
	r.Use(shield.MaxBody(s.cfg.MaxBodyBytes))
	r.Use(s.limiter.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Post("/extract", s.handleExtract)
	r.Get("/extractions", s.handleListExtractions)
	r.Get("/extractions/{id}", s.handleGetExtraction)
	r.Get("/extractions/{id}/rendered", s.handleGetRendered)
	r.Get("/attempts", s.handleListAttempts)
	return r
}

// requestContext copies chi's request ID into the shared endpoint context, so
// service-layer logs carry the same transport and ID keys on both transports.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := kit.WithTransport(r.Context(), "http")
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = kit.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleExtract runs one extraction.
// POST /extract
func (s *Service) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := s.Extract(r.Context(), req)
	if err != nil {
		s.log.Warn("api: extract failed", "url", req.URL, "error", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetExtraction returns one persisted extraction.
// GET /extractions/{id}
func (s *Service) handleGetExtraction(w http.ResponseWriter, r *http.Request) {
	rec, err := s.GetExtraction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if rec == nil {
		http.Error(w, "Extraction not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, extractionBody(rec))
}

// handleGetRendered returns the plain-text transcript of one extraction.
// GET /extractions/{id}/rendered
func (s *Service) handleGetRendered(w http.ResponseWriter, r *http.Request) {
	rec, err := s.GetExtraction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if rec == nil {
		http.Error(w, "Extraction not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(rec.RenderedText))
}

// handleListExtractions lists persisted extractions, newest first.
// GET /extractions?limit=N
func (s *Service) handleListExtractions(w http.ResponseWriter, r *http.Request) {
	recs, err := s.ListExtractions(r.Context(), queryLimit(r))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	out := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		out = append(out, extractionBody(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"extractions": out})
}

// handleListAttempts lists attempt records, newest first.
// GET /attempts?limit=N
func (s *Service) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	recs, err := s.ListAttempts(r.Context(), queryLimit(r))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": recs})
}

// extractionBody expands the stored transcript JSON so clients get structure
// rather than a string-encoded blob.
func extractionBody(rec *store.Extraction) map[string]any {
	var transcript any
	if err := json.Unmarshal([]byte(rec.TranscriptJSON), &transcript); err != nil {
		transcript = rec.TranscriptJSON
	}
	return map[string]any{
		"id":            rec.ID,
		"source_kind":   rec.SourceKind,
		"url":           rec.URL,
		"title":         rec.Title,
		"strategy":      rec.Strategy,
		"message_count": rec.MessageCount,
		"created_at":    rec.CreatedAt,
		"transcript":    transcript,
	}
}

func queryLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, extractor.ErrNotFound), errors.Is(err, extractor.ErrNoMessages):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extractor.ErrFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extractor.ErrNetwork):
		return http.StatusBadGateway
	case errors.Is(err, ErrNoStore):
		return http.StatusNotImplemented
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
