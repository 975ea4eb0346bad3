package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/elonfeng/feedpulse/pkg/feedback"
)

const (
	// DefaultListLimit applies when ListOpts.Limit is not positive.
	DefaultListLimit = 50
	// DefaultTallyLimit applies when TopTallies is called without a limit.
	DefaultTallyLimit = 10
)

// Dimension is a column feedback can be grouped by.
type Dimension string

const (
	BySource    Dimension = "source"
	BySentiment Dimension = "sentiment"
	ByUrgency   Dimension = "urgency"
)

// ParseDimension validates a caller-supplied dimension name.
func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(s); d {
	case BySource, BySentiment, ByUrgency:
		return d, nil
	}
	return "", fmt.Errorf("unknown dimension %q (supported: source, sentiment, urgency)", s)
}

// ListOpts filters and paginates feedback listing. Empty filters match all.
type ListOpts struct {
	Source    string
	Sentiment string
	Urgency   string
	Limit     int
	Offset    int
}

// ThemeTally is a running mention counter for one theme.
type ThemeTally struct {
	Name     string    `db:"name" json:"name"`
	Count    int       `db:"mentions" json:"count"`
	LastSeen time.Time `db:"last_seen" json:"lastSeen"`
}

// Store is the persistence interface.
type Store interface {
	Insert(ctx context.Context, rec *feedback.Record) (string, error)
	List(ctx context.Context, opts ListOpts) ([]feedback.Record, error)
	Count(ctx context.Context, opts ListOpts) (int, error)
	CountBy(ctx context.Context, dim Dimension) (map[string]int, error)
	All(ctx context.Context) ([]feedback.Record, error)
	HasSource(ctx context.Context, source, sourceID string) (bool, error)

	TallyThemes(ctx context.Context, themes []string, at time.Time) error
	TopTallies(ctx context.Context, limit int) ([]ThemeTally, error)

	DeleteAll(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// SQLStore implements Store on SQLite or PostgreSQL.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	now    func() time.Time
}

// New opens the database for driver ("sqlite" or "postgres") and runs migrations.
// For sqlite, dsn is a file path.
func New(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "", "sqlite":
		driver = "sqlite"
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	case "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	s := &SQLStore{db: db, driver: driver, now: time.Now}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// WithClock replaces the time source used for created_at. Used by tests.
func (s *SQLStore) WithClock(now func() time.Time) *SQLStore {
	s.now = now
	return s
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Migrate creates tables and indexes if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if s.driver == "postgres" {
		schema = postgresSchema
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// row mirrors the feedback table; annotation columns are nullable.
type row struct {
	ID             string          `db:"id"`
	Source         string          `db:"source"`
	SourceID       string          `db:"source_id"`
	Author         string          `db:"author"`
	Metadata       string          `db:"metadata"`
	Content        string          `db:"content"`
	Sentiment      sql.NullString  `db:"sentiment"`
	SentimentScore sql.NullFloat64 `db:"sentiment_score"`
	Urgency        sql.NullString  `db:"urgency"`
	Themes         sql.NullString  `db:"themes"`
	Summary        sql.NullString  `db:"summary"`
	AnalyzedAt     sql.NullTime    `db:"analyzed_at"`
	CreatedAt      time.Time       `db:"created_at"`
}

func (r row) record() feedback.Record {
	rec := feedback.Record{
		ID:        r.ID,
		Source:    r.Source,
		SourceID:  r.SourceID,
		Author:    r.Author,
		Metadata:  r.Metadata,
		Content:   r.Content,
		Sentiment: feedback.Sentiment(r.Sentiment.String),
		Urgency:   feedback.Urgency(r.Urgency.String),
		Themes:    decodeThemes(r.Themes),
		Summary:   r.Summary.String,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.SentimentScore.Valid {
		v := r.SentimentScore.Float64
		rec.SentimentScore = &v
	}
	if r.AnalyzedAt.Valid {
		t := r.AnalyzedAt.Time.UTC()
		rec.AnalyzedAt = &t
	}
	return rec
}

// decodeThemes never fails: NULL or malformed JSON reads as no themes.
func decodeThemes(v sql.NullString) []string {
	themes := []string{}
	if !v.Valid {
		return themes
	}
	if err := json.Unmarshal([]byte(v.String), &themes); err != nil || themes == nil {
		return []string{}
	}
	return themes
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Insert stores rec and sets its ID and CreatedAt.
func (s *SQLStore) Insert(ctx context.Context, rec *feedback.Record) (string, error) {
	if err := (feedback.Submission{Source: rec.Source, Content: rec.Content}).Validate(); err != nil {
		return "", err
	}

	var themes sql.NullString
	if rec.Themes != nil {
		data, err := json.Marshal(rec.Themes)
		if err != nil {
			return "", fmt.Errorf("encode themes: %w", err)
		}
		themes = sql.NullString{String: string(data), Valid: true}
	}

	var score sql.NullFloat64
	if rec.SentimentScore != nil {
		score = sql.NullFloat64{Float64: *rec.SentimentScore, Valid: true}
	}

	// Annotated records always carry a summary, even an empty one.
	summary := nullString(rec.Summary)
	var analyzedAt sql.NullTime
	if rec.AnalyzedAt != nil {
		analyzedAt = sql.NullTime{Time: rec.AnalyzedAt.UTC(), Valid: true}
		summary.Valid = true
	}

	id := uuid.NewString()
	createdAt := s.now().UTC()

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO feedback (id, source, source_id, author, metadata, content,
			sentiment, sentiment_score, urgency, themes, summary, analyzed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), id, rec.Source, rec.SourceID, rec.Author, rec.Metadata, rec.Content,
		nullString(string(rec.Sentiment)), score, nullString(string(rec.Urgency)),
		themes, summary, analyzedAt, createdAt)
	if err != nil {
		return "", fmt.Errorf("insert feedback: %w", err)
	}

	rec.ID = id
	rec.CreatedAt = createdAt
	return id, nil
}

func whereClause(opts ListOpts) (string, []any) {
	query := " WHERE 1=1"
	var args []any

	if opts.Source != "" {
		query += " AND source = ?"
		args = append(args, opts.Source)
	}
	if opts.Sentiment != "" {
		query += " AND sentiment = ?"
		args = append(args, opts.Sentiment)
	}
	if opts.Urgency != "" {
		query += " AND urgency = ?"
		args = append(args, opts.Urgency)
	}
	return query, args
}

// List returns matching records, newest first.
func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]feedback.Record, error) {
	where, args := whereClause(opts)
	query := "SELECT * FROM feedback" + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	return s.selectRecords(ctx, "list feedback", query, args...)
}

// Count returns the number of records matching the filters of opts.
func (s *SQLStore) Count(ctx context.Context, opts ListOpts) (int, error) {
	where, args := whereClause(opts)
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind("SELECT COUNT(*) FROM feedback"+where), args...); err != nil {
		return 0, fmt.Errorf("count feedback: %w", err)
	}
	return n, nil
}

// All returns every record in insertion order, oldest first.
func (s *SQLStore) All(ctx context.Context) ([]feedback.Record, error) {
	return s.selectRecords(ctx, "load feedback", "SELECT * FROM feedback ORDER BY created_at ASC")
}

func (s *SQLStore) selectRecords(ctx context.Context, op, query string, args ...any) ([]feedback.Record, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	records := make([]feedback.Record, len(rows))
	for i := range rows {
		records[i] = rows[i].record()
	}
	return records, nil
}

// CountBy groups all records by dim. NULL or empty values count as "unknown".
func (s *SQLStore) CountBy(ctx context.Context, dim Dimension) (map[string]int, error) {
	if _, err := ParseDimension(string(dim)); err != nil {
		return nil, err
	}

	// dim is validated above, so it is safe to interpolate.
	query := fmt.Sprintf(
		"SELECT COALESCE(NULLIF(%s, ''), '%s') AS bucket, COUNT(*) AS cnt FROM feedback GROUP BY 1",
		dim, feedback.UnknownBucket)
	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count feedback by %s: %w", dim, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var cnt int
		if err := rows.Scan(&key, &cnt); err != nil {
			return nil, err
		}
		counts[key] += cnt
	}
	return counts, rows.Err()
}

// HasSource reports whether a record from source with sourceID already exists.
func (s *SQLStore) HasSource(ctx context.Context, source, sourceID string) (bool, error) {
	if sourceID == "" {
		return false, nil
	}
	var n int
	err := s.db.GetContext(ctx, &n,
		s.db.Rebind("SELECT COUNT(*) FROM feedback WHERE source = ? AND source_id = ?"),
		source, sourceID)
	if err != nil {
		return false, fmt.Errorf("lookup %s/%s: %w", source, sourceID, err)
	}
	return n > 0, nil
}

// TallyThemes bumps the mention counter of each theme.
func (s *SQLStore) TallyThemes(ctx context.Context, themes []string, at time.Time) error {
	for _, th := range themes {
		_, err := s.db.ExecContext(ctx, s.db.Rebind(`
			INSERT INTO theme_tally (name, mentions, last_seen)
			VALUES (?, 1, ?)
			ON CONFLICT(name) DO UPDATE SET
				mentions = theme_tally.mentions + 1,
				last_seen = excluded.last_seen
		`), th, at.UTC())
		if err != nil {
			return fmt.Errorf("tally theme %q: %w", th, err)
		}
	}
	return nil
}

// TopTallies returns the most mentioned themes from the tally table.
func (s *SQLStore) TopTallies(ctx context.Context, limit int) ([]ThemeTally, error) {
	if limit <= 0 {
		limit = DefaultTallyLimit
	}
	tallies := []ThemeTally{}
	err := s.db.SelectContext(ctx, &tallies, s.db.Rebind(
		"SELECT name, mentions, last_seen FROM theme_tally ORDER BY mentions DESC, name ASC LIMIT ?"), limit)
	if err != nil {
		return nil, fmt.Errorf("list theme tallies: %w", err)
	}
	for i := range tallies {
		tallies[i].LastSeen = tallies[i].LastSeen.UTC()
	}
	return tallies, nil
}

// DeleteAll removes every record and tally.
func (s *SQLStore) DeleteAll(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"feedback", "theme_tally"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}
