package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Extraction is one persisted transcript.
type Extraction struct {
	ID             string    `json:"id"`
	SourceKind     string    `json:"source_kind"`
	URL            string    `json:"url,omitempty"`
	Title          string    `json:"title,omitempty"`
	Strategy       string    `json:"strategy"`
	TranscriptJSON string    `json:"-"`
	RenderedText   string    `json:"-"`
	MessageCount   int       `json:"message_count"`
	ContentHash    string    `json:"content_hash,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Attempt records one extraction run, successful or not.
type Attempt struct {
	ID           string    `json:"id"`
	ExtractionID string    `json:"extraction_id,omitempty"`
	SourceKind   string    `json:"source_kind"`
	URL          string    `json:"url,omitempty"`
	Status       string    `json:"status"` // "ok" or "error"
	Error        string    `json:"error,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store wraps the database for extraction persistence.
type Store struct {
	DB *sql.DB
}

// New creates a Store from an already-opened database.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

// InsertExtraction stores a completed extraction.
func (s *Store) InsertExtraction(ctx context.Context, e *Extraction) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO extractions (id, source_kind, url, title, strategy,
		transcript_json, rendered_text, message_count, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SourceKind, e.URL, e.Title, e.Strategy,
		e.TranscriptJSON, e.RenderedText, e.MessageCount, e.ContentHash,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: insert extraction: %w", err)
	}
	return nil
}

// GetExtraction retrieves an extraction by ID. Returns (nil, nil) when the
// ID is unknown.
func (s *Store) GetExtraction(ctx context.Context, id string) (*Extraction, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, source_kind, url, title, strategy, transcript_json,
		rendered_text, message_count, content_hash, created_at
		FROM extractions WHERE id = ?`, id)
	e, err := scanExtraction(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// ListExtractions returns extractions, newest first.
func (s *Store) ListExtractions(ctx context.Context, limit int) ([]*Extraction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, source_kind, url, title, strategy, transcript_json,
		rendered_text, message_count, content_hash, created_at
		FROM extractions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list extractions: %w", err)
	}
	defer rows.Close()

	var result []*Extraction
	for rows.Next() {
		e, err := scanExtraction(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func scanExtraction(scan func(...any) error) (*Extraction, error) {
	var e Extraction
	var created string
	err := scan(&e.ID, &e.SourceKind, &e.URL, &e.Title, &e.Strategy,
		&e.TranscriptJSON, &e.RenderedText, &e.MessageCount, &e.ContentHash, &created)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("store: scan extraction: %w", err)
	}
	e.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("store: parse created_at: %w", err)
	}
	return &e, nil
}

// InsertAttempt records an extraction attempt.
func (s *Store) InsertAttempt(ctx context.Context, a *Attempt) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO attempts (id, extraction_id, source_kind, url, status,
		error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ExtractionID, a.SourceKind, a.URL, a.Status,
		a.Error, a.DurationMS, a.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: insert attempt: %w", err)
	}
	return nil
}

// ListAttempts returns attempt records, newest first.
func (s *Store) ListAttempts(ctx context.Context, limit int) ([]*Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, extraction_id, source_kind, url, status, error,
		duration_ms, created_at
		FROM attempts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list attempts: %w", err)
	}
	defer rows.Close()

	var result []*Attempt
	for rows.Next() {
		var a Attempt
		var created string
		if err := rows.Scan(&a.ID, &a.ExtractionID, &a.SourceKind, &a.URL,
			&a.Status, &a.Error, &a.DurationMS, &created); err != nil {
			return nil, fmt.Errorf("store: scan attempt: %w", err)
		}
		a.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("store: parse created_at: %w", err)
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}
