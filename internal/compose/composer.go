// Package compose decides the reply text for an inbound question: a
// confident knowledge-base answer verbatim, else a generated fallback,
// truncated to the transport length ceiling.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/proleads/SupportLine/internal/knowledge"
	"github.com/proleads/SupportLine/internal/models"
)

// Generator synthesizes a reply when no retrieved answer is confident
// enough to send verbatim.
type Generator interface {
	GenerateReply(ctx context.Context, contextBlock, userText string) (string, error)
}

// Defaults for composer configuration.
const (
	// DefaultMaxReplyLength is the transport-safe reply ceiling.
	DefaultMaxReplyLength = 700
	// DefaultSearchTimeout bounds the knowledge-store call.
	DefaultSearchTimeout = 15 * time.Second
)

// Opts holds configuration options for the composer.
type Opts struct {
	MaxReplyLength int
	SearchTimeout  time.Duration
}

// Option defines a configuration option for the composer.
type Option func(*Opts)

// WithMaxReplyLength sets the reply length ceiling.
func WithMaxReplyLength(n int) Option {
	return func(o *Opts) { o.MaxReplyLength = n }
}

// WithSearchTimeout bounds each knowledge-store call.
func WithSearchTimeout(d time.Duration) Option {
	return func(o *Opts) { o.SearchTimeout = d }
}

// Composer runs the retrieval-then-generate pipeline.
type Composer struct {
	searcher      knowledge.Searcher
	generator     Generator
	maxLen        int
	searchTimeout time.Duration
}

// NewComposer wires a composer over the given retrieval and generation services.
func NewComposer(searcher knowledge.Searcher, generator Generator, opts ...Option) *Composer {
	cfg := Opts{
		MaxReplyLength: DefaultMaxReplyLength,
		SearchTimeout:  DefaultSearchTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Composer{
		searcher:      searcher,
		generator:     generator,
		maxLen:        cfg.MaxReplyLength,
		searchTimeout: cfg.SearchTimeout,
	}
}

// Compose returns the reply for the inbound question.
//
// Retrieval failures degrade to "no candidates" and the generator decides
// the reply alone; a generator failure is fatal for the event.
func (c *Composer) Compose(ctx context.Context, question string) (string, error) {
	sctx, cancel := context.WithTimeout(ctx, c.searchTimeout)
	candidates, err := c.searcher.Search(sctx, question)
	cancel()
	if err != nil {
		// Retrieval is a soft dependency: a down corpus degrades answer
		// quality, it does not block answering.
		slog.Warn("Composer.Compose: retrieval failed, falling back to generation", "error", err)
		candidates = nil
	}

	if answer, ok := confidentAnswer(candidates); ok {
		slog.Debug("Composer.Compose: using confident corpus answer", "candidates", len(candidates))
		return TruncateAtSentence(answer, c.maxLen), nil
	}

	reply, err := c.generator.GenerateReply(ctx, ContextBlock(candidates), question)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrGeneration, err)
	}
	slog.Debug("Composer.Compose: using generated reply", "candidates", len(candidates))
	return TruncateAtSentence(reply, c.maxLen), nil
}

// confidentAnswer picks the first candidate at or above the confidence
// threshold. Candidates arrive ranked best-first; ties at the top keep the
// adapter's ordering.
func confidentAnswer(candidates []models.CandidateAnswer) (string, bool) {
	for _, ca := range candidates {
		if ca.Score >= models.ConfidenceThreshold {
			return ca.Answer, true
		}
	}
	return "", false
}

// ContextBlock concatenates all candidates as "Q: ... A: ..." lines for the
// generator's context. Empty when there are no candidates.
func ContextBlock(candidates []models.CandidateAnswer) string {
	lines := make([]string, 0, len(candidates))
	for _, ca := range candidates {
		lines = append(lines, fmt.Sprintf("Q: %s A: %s", ca.Question, ca.Answer))
	}
	return strings.Join(lines, "\n")
}
