// Package extractor turns chat conversation pages into ordered, role-labeled
// transcripts. Two inputs are supported: a static page snapshot carrying an
// obfuscated embedded payload, and a live URL rendered through a headless
// browser. Both funnel into the same candidate pipeline so downstream
// consumers see one transcript shape regardless of source.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/chatgrab/classify"
	"github.com/hazyhaar/chatgrab/livepage"
	"github.com/hazyhaar/chatgrab/payload"
	"github.com/hazyhaar/chatgrab/snapshot"
	"github.com/hazyhaar/chatgrab/transcript"
)

// SourceKind discriminates the two input families.
type SourceKind string

const (
	KindSnapshot SourceKind = "snapshot"
	KindLive     SourceKind = "live"
)

// Source is one extraction input: either raw snapshot markup or a URL to
// render live. Exactly one of the two payload fields is set.
type Source struct {
	Kind     SourceKind
	Snapshot string
	URL      string
}

// Snapshot wraps raw page markup as an extraction source.
func Snapshot(raw string) Source { return Source{Kind: KindSnapshot, Snapshot: raw} }

// Live wraps a URL to be rendered by a headless browser.
func Live(url string) Source { return Source{Kind: KindLive, URL: url} }

// snapshotStrategy is one attempt at pulling candidates out of a decoded
// payload. Strategies are tried in priority order; the first that validates
// wins.
type snapshotStrategy interface {
	Name() string
	Attempt(decoded string) []transcript.Candidate
}

// Config tunes the engine. Zero value is usable; defaults() fills gaps.
type Config struct {
	// Roles maps numeric role-field values to roles for the structural
	// snapshot strategy.
	Roles classify.RoleTable `yaml:"roles"`

	// KeepUnknown retains candidates whose role could not be determined
	// instead of dropping them.
	KeepUnknown bool `yaml:"keep_unknown"`

	// MinBlockLen is the structural strategy's minimum content length.
	MinBlockLen int `yaml:"min_block_len"`

	// HeuristicMinLen is the fallback strategy's minimum quoted-block
	// length.
	HeuristicMinLen int `yaml:"heuristic_min_len"`

	// Live configures the headless-browser path.
	Live livepage.Config `yaml:"live"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Roles.Field == "" {
		c.Roles = classify.DefaultRoleTable()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Result is a completed extraction: the transcript plus which strategy
// produced it, for observability and persistence.
type Result struct {
	Transcript transcript.Transcript
	Strategy   string
}

// Engine runs extractions. Safe for concurrent use; the browser session
// pool serializes internally.
type Engine struct {
	cfg  Config
	live *livepage.Extractor
	log  *slog.Logger
}

// New builds an Engine. The live extractor may be nil, in which case live
// sources fail with ErrNetwork.
func New(cfg Config, live *livepage.Extractor) *Engine {
	cfg.defaults()
	return &Engine{cfg: cfg, live: live, log: cfg.Logger}
}

// Extract runs the full pipeline for one source.
func (e *Engine) Extract(ctx context.Context, src Source) (*Result, error) {
	switch src.Kind {
	case KindSnapshot:
		return e.extractSnapshot(src.Snapshot)
	case KindLive:
		return e.extractLive(ctx, src.URL)
	default:
		return nil, fmt.Errorf("extractor: unknown source kind %q", src.Kind)
	}
}

func (e *Engine) extractSnapshot(raw string) (*Result, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty snapshot", ErrNotFound)
	}

	encoded, err := payload.Locate(raw)
	if err != nil {
		if errors.Is(err, payload.ErrNoMarker) {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	decoded := payload.Decode(encoded)
	if decoded == "" {
		return nil, fmt.Errorf("%w: payload decoded to nothing", ErrFormat)
	}
	meta := payload.ParseMetadata(decoded)

	strategies := []snapshotStrategy{
		&snapshot.Structural{Roles: e.cfg.Roles, MinBlockLen: e.cfg.MinBlockLen},
		&snapshot.Heuristic{MinLen: e.cfg.HeuristicMinLen},
	}
	for _, s := range strategies {
		cands := s.Attempt(decoded)
		if !e.validate(cands) {
			e.log.Debug("extractor: strategy yielded nothing usable", "strategy", s.Name(), "candidates", len(cands))
			continue
		}
		msgs := e.finish(cands)
		if len(msgs) == 0 {
			e.log.Debug("extractor: all candidates filtered out", "strategy", s.Name())
			continue
		}
		e.log.Info("extractor: snapshot extracted", "strategy", s.Name(), "messages", len(msgs))
		return &Result{
			Transcript: transcript.Transcript{
				Title:      meta.Title,
				CreateTime: meta.CreateTime,
				UpdateTime: meta.UpdateTime,
				Messages:   msgs,
			},
			Strategy: s.Name(),
		}, nil
	}
	return nil, fmt.Errorf("%w: all snapshot strategies exhausted", ErrNoMessages)
}

func (e *Engine) extractLive(ctx context.Context, url string) (*Result, error) {
	if e.live == nil {
		return nil, fmt.Errorf("%w: live extraction not configured", ErrNetwork)
	}
	cands, err := e.live.Extract(ctx, url)
	if err != nil {
		switch {
		case errors.Is(err, livepage.ErrNavigation):
			return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
		case errors.Is(err, livepage.ErrNoMarkup):
			return nil, fmt.Errorf("%w: %v", ErrNoMessages, err)
		}
		return nil, fmt.Errorf("extractor: live: %w", err)
	}
	if !e.validate(cands) {
		return nil, fmt.Errorf("%w: page rendered but no usable candidates", ErrNoMessages)
	}
	msgs := e.finish(cands)
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%w: all candidates filtered out", ErrNoMessages)
	}
	e.log.Info("extractor: live extracted", "url", url, "messages", len(msgs))
	return &Result{
		Transcript: transcript.Transcript{Messages: msgs},
		Strategy:   "live",
	}, nil
}

// validate accepts a candidate set only if it is non-empty and not
// uniformly role-unknown. With KeepUnknown set, unknown-only sets pass:
// the caller asked to see them.
func (e *Engine) validate(cands []transcript.Candidate) bool {
	if len(cands) == 0 {
		return false
	}
	if e.cfg.KeepUnknown {
		return true
	}
	for _, c := range cands {
		if c.Role != transcript.RoleUnknown {
			return true
		}
	}
	return false
}

// finish runs the shared tail of the pipeline: normalize content, merge
// duplicates and fragments, then order and role-filter into messages.
func (e *Engine) finish(cands []transcript.Candidate) []transcript.Message {
	cleaned := make([]transcript.Candidate, 0, len(cands))
	for _, c := range cands {
		c.Content = transcript.Normalize(c.Content)
		if c.Content == "" {
			continue
		}
		cleaned = append(cleaned, c)
	}
	merged := transcript.Merge(cleaned)
	return transcript.FromCandidates(merged, e.cfg.KeepUnknown)
}
