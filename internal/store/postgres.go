// Package store provides persistence backends for SupportLine.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/proleads/SupportLine/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddTicket(ctx context.Context, t models.EscalationTicket) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tickets (id, question, answer, from_number, created_at, open) VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Question, t.Answer, t.From, t.CreatedAt, t.Open)
	if err != nil {
		slog.Error("PostgresStore.AddTicket failed", "error", err, "from", t.From)
		return "", fmt.Errorf("failed to insert ticket for %s: %w", t.From, err)
	}
	slog.Debug("PostgresStore.AddTicket succeeded", "id", t.ID, "from", t.From)
	return t.ID, nil
}

func (s *PostgresStore) ListOpenTickets(ctx context.Context) ([]models.EscalationTicket, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, from_number, created_at, open FROM tickets WHERE open ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.EscalationTicket
	for rows.Next() {
		var t models.EscalationTicket
		if err := rows.Scan(&t.ID, &t.Question, &t.Answer, &t.From, &t.CreatedAt, &t.Open); err != nil {
			return nil, fmt.Errorf("failed to scan ticket row: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ticket rows: %w", err)
	}
	return tickets, nil
}

func (s *PostgresStore) Archive(ctx context.Context, conversationSID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO archives (conversation_sid, archived_at) VALUES ($1, $2) ON CONFLICT (conversation_sid) DO NOTHING`,
		conversationSID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to archive thread %s: %w", conversationSID, err)
	}
	return nil
}

func (s *PostgresStore) Restore(ctx context.Context, conversationSID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM archives WHERE conversation_sid = $1`, conversationSID)
	if err != nil {
		return fmt.Errorf("failed to restore thread %s: %w", conversationSID, err)
	}
	return nil
}

func (s *PostgresStore) ListArchives(ctx context.Context) ([]models.Archive, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_sid, archived_at FROM archives ORDER BY archived_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query archives: %w", err)
	}
	defer rows.Close()

	var archives []models.Archive
	for rows.Next() {
		var a models.Archive
		if err := rows.Scan(&a.ConversationSID, &a.ArchivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archive row: %w", err)
		}
		archives = append(archives, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate archive rows: %w", err)
	}
	return archives, nil
}

func (s *PostgresStore) TouchThread(ctx context.Context, conversationSID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO thread_activity (conversation_sid, last_activity_at) VALUES ($1, $2)
		 ON CONFLICT (conversation_sid) DO UPDATE SET last_activity_at = EXCLUDED.last_activity_at`,
		conversationSID, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to touch thread %s: %w", conversationSID, err)
	}
	return nil
}

func (s *PostgresStore) StaleThreads(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.conversation_sid FROM thread_activity a
		 WHERE a.last_activity_at < $1
		 AND NOT EXISTS (SELECT 1 FROM archives ar WHERE ar.conversation_sid = a.conversation_sid)`,
		before.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query stale threads: %w", err)
	}
	defer rows.Close()

	var sids []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, fmt.Errorf("failed to scan stale thread row: %w", err)
		}
		sids = append(sids, sid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stale thread rows: %w", err)
	}
	return sids, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
