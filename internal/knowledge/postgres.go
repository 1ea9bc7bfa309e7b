// Package knowledge wraps scored full-text retrieval over the Q&A corpus.
//
// This file implements the PostgreSQL tsvector backend.
package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/proleads/SupportLine/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS faqs (
    id SERIAL PRIMARY KEY,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    keywords TEXT NOT NULL DEFAULT '',
    tsv tsvector GENERATED ALWAYS AS (
        to_tsvector('english', question || ' ' || answer || ' ' || keywords)
    ) STORED
);
CREATE INDEX IF NOT EXISTS idx_faqs_tsv ON faqs USING GIN (tsv);
`

// PostgresCorpus is a tsvector-backed corpus using ts_rank relevance.
type PostgresCorpus struct {
	db         *sql.DB
	maxResults int
}

// NewPostgresCorpus opens the corpus at the Postgres DSN, creating the
// schema if needed.
func NewPostgresCorpus(opts ...Option) (*PostgresCorpus, error) {
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

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("corpus ping failed: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to create corpus schema: %w", err)
	}
	slog.Debug("PostgresCorpus ready", "max_results", cfg.MaxResults)
	return &PostgresCorpus{db: db, maxResults: cfg.MaxResults}, nil
}

func (c *PostgresCorpus) Add(ctx context.Context, e Entry) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO faqs (question, answer, keywords) VALUES ($1, $2, $3)`,
		e.Question, e.Answer, e.Keywords)
	if err != nil {
		return fmt.Errorf("failed to insert corpus entry: %w", err)
	}
	return nil
}

func (c *PostgresCorpus) Search(ctx context.Context, query string) ([]models.CandidateAnswer, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT question, answer, ts_rank(tsv, plainto_tsquery('english', $1)) AS rank
		 FROM faqs
		 WHERE tsv @@ plainto_tsquery('english', $1)
		 ORDER BY rank DESC
		 LIMIT $2`,
		query, c.maxResults)
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
		ca.Score = tsRankScore(rank)
		out = append(out, ca)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrRetrieval, err)
	}
	slog.Debug("PostgresCorpus.Search completed", "candidates", len(out))
	return out, nil
}

func (c *PostgresCorpus) Close() error {
	return c.db.Close()
}

// tsRankScore maps raw ts_rank output onto the (0,1) relevance scale.
// Unweighted tsvector lexemes carry weight 0.1 with frequency damping, so a
// multi-term near-verbatim match ranks around 0.3 while a single shared term
// ranks near 0.06; rank/(rank+0.1) puts the former above
// models.ConfidenceThreshold and keeps the latter below it.
func tsRankScore(rank float64) float64 {
	if rank <= 0 {
		return 0
	}
	return rank / (rank + 0.1)
}
