// Package knowledge wraps scored full-text retrieval over the Q&A corpus.
//
// The corpus is a text-indexed collection of {question, answer, keywords}
// documents. Search returns candidates ranked by score descending on a
// backend-defined scale where models.ConfidenceThreshold marks a confident
// answer.
package knowledge

import (
	"context"
	"strings"

	"github.com/proleads/SupportLine/internal/models"
)

// Searcher is the scored-retrieval service consumed by the response composer.
type Searcher interface {
	// Search returns ranked candidate answers for the free-text query.
	// An empty result is not an error.
	Search(ctx context.Context, query string) ([]models.CandidateAnswer, error)
}

// Entry is one Q&A document in the corpus.
type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Keywords string `json:"keywords"`
}

// Corpus is a Searcher that also accepts documents, used for seeding.
type Corpus interface {
	Searcher
	Add(ctx context.Context, e Entry) error
	Close() error
}

// Opts holds configuration for corpus constructors.
type Opts struct {
	DSN string
	// MaxResults caps how many candidates a search returns.
	MaxResults int
}

// Option defines a configuration option for corpus constructors.
type Option func(*Opts)

// WithDSN sets the database DSN backing the corpus.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithMaxResults caps the number of candidates returned per search.
func WithMaxResults(n int) Option {
	return func(o *Opts) { o.MaxResults = n }
}

// DefaultMaxResults is the default cap on candidates per search.
const DefaultMaxResults = 10

// tokenize splits free text into lowercase alphanumeric terms, dropping
// anything that could be read as full-text query syntax.
func tokenize(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

// overlapScore is the fraction of query terms present in the entry's
// question, answer, or keywords. A verbatim question repeat scores 1.
func overlapScore(terms []string, e Entry) float64 {
	doc := make(map[string]bool)
	for _, t := range tokenize(e.Question + " " + e.Answer + " " + e.Keywords) {
		doc[t] = true
	}
	hits := 0
	for _, t := range terms {
		if doc[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
