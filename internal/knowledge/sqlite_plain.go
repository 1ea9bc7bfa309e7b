//go:build !sqlite_fts5

// Package knowledge wraps scored full-text retrieval over the Q&A corpus.
//
// This file implements the default SQLite backend: a plain table scored by
// query-term overlap in process, so the binary works without any driver
// build tag. Builds with the sqlite_fts5 tag get bm25 ranking from the
// backend in sqlite.go instead.
package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"
	"github.com/proleads/SupportLine/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS faqs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    keywords TEXT NOT NULL DEFAULT ''
);
`

// SQLiteCorpus stores entries in a plain table and ranks candidates by the
// fraction of query terms each entry contains, the same scale the in-memory
// corpus uses.
type SQLiteCorpus struct {
	db         *sql.DB
	maxResults int
}

// NewSQLiteCorpus opens (and if needed creates) the corpus at the DSN path.
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
		return nil, fmt.Errorf("failed to create corpus table: %w", err)
	}
	slog.Debug("SQLiteCorpus ready", "max_results", cfg.MaxResults)
	return &SQLiteCorpus{db: db, maxResults: cfg.MaxResults}, nil
}

func (c *SQLiteCorpus) Add(ctx context.Context, e Entry) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO faqs (question, answer, keywords) VALUES (?, ?, ?)`,
		e.Question, e.Answer, e.Keywords)
	if err != nil {
		return fmt.Errorf("failed to insert corpus entry: %w", err)
	}
	return nil
}

func (c *SQLiteCorpus) Search(ctx context.Context, query string) ([]models.CandidateAnswer, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}
	rows, err := c.db.QueryContext(ctx, `SELECT question, answer, keywords FROM faqs`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrRetrieval, err)
	}
	defer rows.Close()

	var out []models.CandidateAnswer
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Question, &e.Answer, &e.Keywords); err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrRetrieval, err)
		}
		score := overlapScore(terms, e)
		if score == 0 {
			continue
		}
		out = append(out, models.CandidateAnswer{Question: e.Question, Answer: e.Answer, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrRetrieval, err)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > c.maxResults {
		out = out[:c.maxResults]
	}
	slog.Debug("SQLiteCorpus.Search completed", "candidates", len(out))
	return out, nil
}

func (c *SQLiteCorpus) Close() error {
	return c.db.Close()
}
