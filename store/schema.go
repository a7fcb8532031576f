package store

const schema = `
CREATE TABLE IF NOT EXISTS extractions (
    id              TEXT PRIMARY KEY,
    source_kind     TEXT NOT NULL,
    url             TEXT NOT NULL DEFAULT '',
    title           TEXT NOT NULL DEFAULT '',
    strategy        TEXT NOT NULL,
    transcript_json TEXT NOT NULL,
    rendered_text   TEXT NOT NULL,
    message_count   INTEGER NOT NULL,
    content_hash    TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extractions_created
    ON extractions(created_at DESC);

CREATE TABLE IF NOT EXISTS attempts (
    id            TEXT PRIMARY KEY,
    extraction_id TEXT NOT NULL DEFAULT '',
    source_kind   TEXT NOT NULL,
    url           TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL,
    error         TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempts_created
    ON attempts(created_at DESC);
`
