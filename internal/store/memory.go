// Package store provides persistence backends for SupportLine.
//
// This file implements an in-memory store used in tests and when no DSN is
// configured.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/proleads/SupportLine/internal/models"
)

// InMemoryStore keeps tickets, archives, and thread activity in process
// memory. Safe for concurrent use.
type InMemoryStore struct {
	mu       sync.Mutex
	tickets  []models.EscalationTicket
	archives map[string]time.Time
	activity map[string]time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		archives: make(map[string]time.Time),
		activity: make(map[string]time.Time),
	}
}

func (s *InMemoryStore) AddTicket(ctx context.Context, t models.EscalationTicket) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.tickets = append(s.tickets, t)
	return t.ID, nil
}

func (s *InMemoryStore) ListOpenTickets(ctx context.Context) ([]models.EscalationTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.EscalationTicket
	for _, t := range s.tickets {
		if t.Open {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) Archive(ctx context.Context, conversationSID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.archives[conversationSID]; !ok {
		s.archives[conversationSID] = time.Now().UTC()
	}
	return nil
}

func (s *InMemoryStore) Restore(ctx context.Context, conversationSID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.archives, conversationSID)
	return nil
}

func (s *InMemoryStore) ListArchives(ctx context.Context) ([]models.Archive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Archive
	for sid, at := range s.archives {
		out = append(out, models.Archive{ConversationSID: sid, ArchivedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArchivedAt.After(out[j].ArchivedAt) })
	return out, nil
}

func (s *InMemoryStore) TouchThread(ctx context.Context, conversationSID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity[conversationSID] = at.UTC()
	return nil
}

func (s *InMemoryStore) StaleThreads(ctx context.Context, before time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for sid, at := range s.activity {
		if _, archived := s.archives[sid]; archived {
			continue
		}
		if at.Before(before) {
			out = append(out, sid)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
