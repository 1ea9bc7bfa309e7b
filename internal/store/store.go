// Package store provides persistence backends for SupportLine.
//
// It covers escalation tickets, the agent-facing archive list, and
// per-thread activity tracking, with SQLite and PostgreSQL implementations
// selected by DSN plus an in-memory implementation for tests.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/proleads/SupportLine/internal/models"
)

// TicketStore records escalation tickets for the agent front end.
type TicketStore interface {
	// AddTicket appends one escalation ticket and returns its ID. A blank
	// incoming ID is filled with a generated one.
	AddTicket(ctx context.Context, t models.EscalationTicket) (string, error)
	// ListOpenTickets returns open tickets, newest first.
	ListOpenTickets(ctx context.Context) ([]models.EscalationTicket, error)
}

// ArchiveStore tracks which conversation threads are parked as resolved.
type ArchiveStore interface {
	// Archive marks a thread resolved. Archiving an archived thread is a no-op.
	Archive(ctx context.Context, conversationSID string) error
	// Restore un-archives a thread. Restoring a thread with no archive row is a no-op.
	Restore(ctx context.Context, conversationSID string) error
	// ListArchives returns archived threads, newest first.
	ListArchives(ctx context.Context) ([]models.Archive, error)
}

// ActivityStore remembers when each thread last saw a message, feeding the
// stale-thread archive sweep.
type ActivityStore interface {
	// TouchThread records activity for a thread at the given time.
	TouchThread(ctx context.Context, conversationSID string, at time.Time) error
	// StaleThreads returns unarchived threads whose last activity predates the cutoff.
	StaleThreads(ctx context.Context, before time.Time) ([]string, error)
}

// Store combines all persistence concerns behind one handle.
type Store interface {
	TicketStore
	ArchiveStore
	ActivityStore
	Close() error
}

// Opts holds configuration for store constructors.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store constructors.
type Option func(*Opts)

// WithDSN sets the database DSN (SQLite file path or Postgres URL).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for PostgreSQL-style DSNs and "sqlite"
// for anything else (treated as a file path).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
