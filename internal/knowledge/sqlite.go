//go:build sqlite_fts5

// Package knowledge wraps scored full-text retrieval over the Q&A corpus.
//
// This file implements the SQLite FTS5 backend, selected by the sqlite_fts5
// build tag. Default builds use the plain-table backend in sqlite_plain.go.
package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/proleads/SupportLine/internal/models"
)

const sqliteSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS faq_fts USING fts5(question, answer, keywords);
`

// SQLiteCorpus is an FTS5-backed corpus. Requires the sqlite_fts5 build of
// the driver.
type SQLiteCorpus struct {
	db         *sql.DB
	maxResults int
}

// NewSQLiteCorpus opens (and if needed creates) the FTS5 corpus at the DSN path.
func NewSQLiteCorpus(opts ...Option) (*SQLiteCorpus, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("knowledge corpus DSN not set")
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0755); err != nil {
		return nil, fmt.Errorf("failed to create corpus directory: %w", err)
	}
	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("corpus ping failed: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to create FTS table: %w", err)
	}
	slog.Debug("SQLiteCorpus ready", "max_results", cfg.MaxResults)
	return &SQLiteCorpus{db: db, maxResults: cfg.MaxResults}, nil
}

func (c *SQLiteCorpus) Add(ctx context.Context, e Entry) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO faq_fts (question, answer, keywords) VALUES (?, ?, ?)`,
		e.Question, e.Answer, e.Keywords)
	if err != nil {
		return fmt.Errorf("failed to insert corpus entry: %w", err)
	}
	return nil
}

func (c *SQLiteCorpus) Search(ctx context.Context, query string) ([]models.CandidateAnswer, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT question, answer, bm25(faq_fts) FROM faq_fts WHERE faq_fts MATCH ? ORDER BY bm25(faq_fts) LIMIT ?`,
		match, c.maxResults)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrRetrieval, err)
	}
	defer rows.Close()

	var out []models.CandidateAnswer
	for rows.Next() {
		var ca models.CandidateAnswer
		var rank float64
		if err := rows.Scan(&ca.Question, &ca.Answer, &rank); err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrRetrieval, err)
		}
		ca.Score = bm25Score(rank)
		out = append(out, ca)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrRetrieval, err)
	}
	slog.Debug("SQLiteCorpus.Search completed", "candidates", len(out))
	return out, nil
}

func (c *SQLiteCorpus) Close() error {
	return c.db.Close()
}

// ftsQuery turns raw user text into an FTS5 MATCH expression: each term
// quoted, OR-joined, so punctuation in the inbound message cannot be parsed
// as query syntax.
func ftsQuery(query string) string {
	terms := tokenize(query)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}

// bm25Score maps the FTS5 bm25 rank (lower is better, negative for matches)
// onto the (0,1) relevance scale, with bm25 = -1 landing exactly on the
// confidence threshold.
func bm25Score(rank float64) float64 {
	if rank >= 0 {
		return 0
	}
	return rank / (rank - 1)
}
