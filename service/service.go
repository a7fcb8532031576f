package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/chatgrab/extractor"
	"github.com/hazyhaar/chatgrab/fetchsnap"
	"github.com/hazyhaar/chatgrab/idgen"
	"github.com/hazyhaar/chatgrab/kit"
	"github.com/hazyhaar/chatgrab/livepage"
	"github.com/hazyhaar/chatgrab/shield"
	"github.com/hazyhaar/chatgrab/store"
)

// ErrNoStore is returned by read operations when persistence is disabled.
var ErrNoStore = errors.New("service: persistence disabled")

// Service binds the engine, the snapshot fetcher, and persistence behind
// one facade shared by the HTTP and MCP transports.
type Service struct {
	cfg     *Config
	engine  *extractor.Engine
	fetcher *fetchsnap.Fetcher
	browser *livepage.Browser
	db      *store.Store
	limiter *shield.RateLimiter
	extIDs  idgen.Generator
	attIDs  idgen.Generator
	log     *slog.Logger
}

// New wires a Service. db may be nil (no persistence).
func New(cfg *Config, db *sql.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	bcfg := cfg.Browser
	bcfg.Logger = logger
	browser := livepage.NewBrowser(bcfg)

	ecfg := cfg.Extractor
	ecfg.Logger = logger
	ecfg.Live.Logger = logger
	live := livepage.NewExtractor(browser, ecfg.Live)

	s := &Service{
		cfg:     cfg,
		engine:  extractor.New(ecfg, live),
		fetcher: fetchsnap.New(cfg.Fetch),
		browser: browser,
		limiter: shield.NewRateLimiter(cfg.RateLimit, logger),
		extIDs:  idgen.Prefixed("ext_", idgen.Default),
		attIDs:  idgen.Prefixed("att_", idgen.Default),
		log:     logger,
	}
	if db != nil {
		s.db = store.New(db)
	}
	return s
}

// Close releases the browser.
func (s *Service) Close() error {
	return s.browser.Close()
}

// StartBackground starts housekeeping goroutines (rate-limit bucket GC).
// They stop when done is closed.
func (s *Service) StartBackground(done <-chan struct{}) {
	s.limiter.StartGC(done)
}

// ExtractRequest is the transport-level request shape. Exactly one of
// Snapshot and URL must be set. With URL, the snapshot is fetched first and
// the live browser path is used only when the snapshot carries no payload.
type ExtractRequest struct {
	Snapshot string `json:"snapshot,omitempty"`
	URL      string `json:"url,omitempty"`
	// ForceLive skips the snapshot sufficiency probe and renders live.
	ForceLive bool `json:"force_live,omitempty"`
}

// ExtractResponse is the transport-level response shape.
type ExtractResponse struct {
	ID         string   `json:"id,omitempty"`
	Title      string   `json:"title,omitempty"`
	Strategy   string   `json:"strategy"`
	Messages   int      `json:"messages"`
	Transcript any      `json:"transcript"`
	Rendered   string   `json:"rendered"`
}

// Extract runs one extraction, records the attempt, and persists the result
// when a store is configured.
func (s *Service) Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	start := time.Now()
	res, err := s.extract(ctx, req)
	s.recordAttempt(ctx, req, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	s.log.Info("service: extract ok",
		"transport", kit.GetTransport(ctx),
		"request_id", kit.GetRequestID(ctx),
		"strategy", res.Strategy,
		"messages", len(res.Transcript.Messages),
		"duration_ms", time.Since(start).Milliseconds())

	resp := &ExtractResponse{
		Title:      res.Transcript.Title,
		Strategy:   res.Strategy,
		Messages:   len(res.Transcript.Messages),
		Transcript: res.Transcript,
		Rendered:   res.Transcript.Render(),
	}

	if s.db != nil {
		rec, err := s.persist(ctx, req, res)
		if err != nil {
			// Extraction succeeded; persistence failure is logged, not fatal.
			s.log.Error("service: persist failed", "error", err)
		} else {
			resp.ID = rec.ID
		}
	}
	return resp, nil
}

func (s *Service) extract(ctx context.Context, req ExtractRequest) (*extractor.Result, error) {
	switch {
	case req.Snapshot != "" && req.URL != "":
		return nil, errors.New("service: snapshot and url are mutually exclusive")
	case req.Snapshot != "":
		return s.engine.Extract(ctx, extractor.Snapshot(req.Snapshot))
	case req.URL != "":
		return s.extractFromURL(ctx, req)
	default:
		return nil, errors.New("service: snapshot or url required")
	}
}

// extractFromURL prefers the cheap path: fetch the static snapshot and use
// it when it carries a payload. Live rendering is the fallback, or the
// first choice under ForceLive.
func (s *Service) extractFromURL(ctx context.Context, req ExtractRequest) (*extractor.Result, error) {
	if !req.ForceLive {
		snap, err := s.fetcher.Fetch(ctx, req.URL)
		if err != nil {
			s.log.Warn("service: snapshot fetch failed, falling back to live", "url", req.URL, "error", err)
		} else if snap.HasPayload {
			res, err := s.engine.Extract(ctx, extractor.Snapshot(snap.Body))
			if err == nil {
				return res, nil
			}
			s.log.Warn("service: snapshot extraction failed, falling back to live", "url", req.URL, "error", err)
		} else {
			s.log.Debug("service: snapshot has no payload, using live path", "url", req.URL)
		}
	}
	return s.engine.Extract(ctx, extractor.Live(req.URL))
}

func (s *Service) persist(ctx context.Context, req ExtractRequest, res *extractor.Result) (*store.Extraction, error) {
	tj, err := json.Marshal(res.Transcript)
	if err != nil {
		return nil, fmt.Errorf("service: marshal transcript: %w", err)
	}
	rec := &store.Extraction{
		ID:             s.extIDs(),
		SourceKind:     sourceKind(req),
		URL:            req.URL,
		Title:          res.Transcript.Title,
		Strategy:       res.Strategy,
		TranscriptJSON: string(tj),
		RenderedText:   res.Transcript.Render(),
		MessageCount:   len(res.Transcript.Messages),
		CreatedAt:      time.Now(),
	}
	if err := s.db.InsertExtraction(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) recordAttempt(ctx context.Context, req ExtractRequest, extractErr error, elapsed time.Duration) {
	if s.db == nil {
		return
	}
	a := &store.Attempt{
		ID:         s.attIDs(),
		SourceKind: sourceKind(req),
		URL:        req.URL,
		Status:     "ok",
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  time.Now(),
	}
	if extractErr != nil {
		a.Status = "error"
		a.Error = extractErr.Error()
	}
	if err := s.db.InsertAttempt(ctx, a); err != nil {
		s.log.Error("service: record attempt failed", "error", err)
	}
}

func sourceKind(req ExtractRequest) string {
	if req.Snapshot != "" {
		return string(extractor.KindSnapshot)
	}
	return string(extractor.KindLive)
}

// GetExtraction returns one persisted extraction, or (nil, nil) if unknown.
func (s *Service) GetExtraction(ctx context.Context, id string) (*store.Extraction, error) {
	if s.db == nil {
		return nil, ErrNoStore
	}
	return s.db.GetExtraction(ctx, id)
}

// ListExtractions returns persisted extractions, newest first.
func (s *Service) ListExtractions(ctx context.Context, limit int) ([]*store.Extraction, error) {
	if s.db == nil {
		return nil, ErrNoStore
	}
	return s.db.ListExtractions(ctx, limit)
}

// ListAttempts returns attempt records, newest first.
func (s *Service) ListAttempts(ctx context.Context, limit int) ([]*store.Attempt, error) {
	if s.db == nil {
		return nil, ErrNoStore
	}
	return s.db.ListAttempts(ctx, limit)
}
