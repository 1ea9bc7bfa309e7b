// Package store provides persistence backends for SupportLine.
//
// This file implements the SQLite-backed store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/proleads/SupportLine/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path to the SQLite database file; the containing
// directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddTicket(ctx context.Context, t models.EscalationTicket) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tickets (id, question, answer, from_number, created_at, open) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Question, t.Answer, t.From, t.CreatedAt, t.Open)
	if err != nil {
		slog.Error("SQLiteStore.AddTicket failed", "error", err, "from", t.From)
		return "", fmt.Errorf("failed to insert ticket for %s: %w", t.From, err)
	}
	slog.Debug("SQLiteStore.AddTicket succeeded", "id", t.ID, "from", t.From)
	return t.ID, nil
}

func (s *SQLiteStore) ListOpenTickets(ctx context.Context) ([]models.EscalationTicket, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, from_number, created_at, open FROM tickets WHERE open = 1 ORDER BY created_at DESC`)
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

func (s *SQLiteStore) Archive(ctx context.Context, conversationSID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO archives (conversation_sid, archived_at) VALUES (?, ?) ON CONFLICT(conversation_sid) DO NOTHING`,
		conversationSID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to archive thread %s: %w", conversationSID, err)
	}
	return nil
}

func (s *SQLiteStore) Restore(ctx context.Context, conversationSID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM archives WHERE conversation_sid = ?`, conversationSID)
	if err != nil {
		return fmt.Errorf("failed to restore thread %s: %w", conversationSID, err)
	}
	return nil
}

func (s *SQLiteStore) ListArchives(ctx context.Context) ([]models.Archive, error) {
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

func (s *SQLiteStore) TouchThread(ctx context.Context, conversationSID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO thread_activity (conversation_sid, last_activity_at) VALUES (?, ?)
		 ON CONFLICT(conversation_sid) DO UPDATE SET last_activity_at = excluded.last_activity_at`,
		conversationSID, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to touch thread %s: %w", conversationSID, err)
	}
	return nil
}

func (s *SQLiteStore) StaleThreads(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.conversation_sid FROM thread_activity a
		 WHERE a.last_activity_at < ?
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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
