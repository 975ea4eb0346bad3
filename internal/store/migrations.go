package store

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS feedback (
    id              TEXT PRIMARY KEY,
    source          TEXT NOT NULL,
    source_id       TEXT NOT NULL DEFAULT '',
    author          TEXT NOT NULL DEFAULT '',
    metadata        TEXT NOT NULL DEFAULT '',
    content         TEXT NOT NULL,
    sentiment       TEXT,
    sentiment_score REAL,
    urgency         TEXT,
    themes          TEXT,
    summary         TEXT,
    analyzed_at     DATETIME,
    created_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feedback_source ON feedback(source);
CREATE INDEX IF NOT EXISTS idx_feedback_sentiment ON feedback(sentiment);
CREATE INDEX IF NOT EXISTS idx_feedback_urgency ON feedback(urgency);
CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at);
CREATE INDEX IF NOT EXISTS idx_feedback_source_ref ON feedback(source, source_id);

CREATE TABLE IF NOT EXISTS theme_tally (
    name      TEXT PRIMARY KEY,
    mentions  INTEGER NOT NULL DEFAULT 0,
    last_seen DATETIME NOT NULL
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS feedback (
    id              TEXT PRIMARY KEY,
    source          TEXT NOT NULL,
    source_id       TEXT NOT NULL DEFAULT '',
    author          TEXT NOT NULL DEFAULT '',
    metadata        TEXT NOT NULL DEFAULT '',
    content         TEXT NOT NULL,
    sentiment       TEXT,
    sentiment_score DOUBLE PRECISION,
    urgency         TEXT,
    themes          TEXT,
    summary         TEXT,
    analyzed_at     TIMESTAMPTZ,
    created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feedback_source ON feedback(source);
CREATE INDEX IF NOT EXISTS idx_feedback_sentiment ON feedback(sentiment);
CREATE INDEX IF NOT EXISTS idx_feedback_urgency ON feedback(urgency);
CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at);
CREATE INDEX IF NOT EXISTS idx_feedback_source_ref ON feedback(source, source_id);

CREATE TABLE IF NOT EXISTS theme_tally (
    name      TEXT PRIMARY KEY,
    mentions  INTEGER NOT NULL DEFAULT 0,
    last_seen TIMESTAMPTZ NOT NULL
);
`
