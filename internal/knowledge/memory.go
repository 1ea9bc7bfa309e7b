// Package knowledge wraps scored full-text retrieval over the Q&A corpus.
//
// This file implements an in-memory corpus with naive term-overlap scoring,
// used in tests and when no corpus DSN is configured.
package knowledge

import (
	"context"
	"sort"
	"sync"

	"github.com/proleads/SupportLine/internal/models"
)

// InMemoryCorpus scores documents by the fraction of query terms present in
// the document text. Good enough for tests and local development; real
// deployments use a database-backed corpus.
type InMemoryCorpus struct {
	mu         sync.RWMutex
	entries    []Entry
	maxResults int
}

func NewInMemoryCorpus(opts ...Option) *InMemoryCorpus {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	return &InMemoryCorpus{maxResults: cfg.MaxResults}
}

func (c *InMemoryCorpus) Add(ctx context.Context, e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

func (c *InMemoryCorpus) Search(ctx context.Context, query string) ([]models.CandidateAnswer, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.CandidateAnswer
	for _, e := range c.entries {
		score := overlapScore(terms, e)
		if score == 0 {
			continue
		}
		out = append(out, models.CandidateAnswer{
			Question: e.Question,
			Answer:   e.Answer,
			Score:    score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > c.maxResults {
		out = out[:c.maxResults]
	}
	return out, nil
}

func (c *InMemoryCorpus) Close() error {
	return nil
}
