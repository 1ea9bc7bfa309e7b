//go:build sqlite_fts5

package knowledge

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/proleads/SupportLine/internal/models"
)

func newTestSQLiteCorpus(t *testing.T) *SQLiteCorpus {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "knowledge.db")
	c, err := NewSQLiteCorpus(WithDSN(dbPath))
	if err != nil {
		t.Fatalf("NewSQLiteCorpus failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSQLiteCorpusSearchRoundTrip(t *testing.T) {
	c := newTestSQLiteCorpus(t)
	ctx := context.Background()

	entries := []Entry{
		{Question: "What are your store hours?", Answer: "We are open 9 AM to 5 PM on weekdays.", Keywords: "opening schedule"},
		{Question: "Do you ship internationally?", Answer: "We ship to the US and Canada only.", Keywords: "shipping delivery"},
	}
	for _, e := range entries {
		if err := c.Add(ctx, e); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}

	got, err := c.Search(ctx, "what are your store hours")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected at least one candidate")
	}
	if got[0].Question != "What are your store hours?" {
		t.Errorf("top candidate = %q, want the store hours entry", got[0].Question)
	}
	if got[0].Score < models.ConfidenceThreshold {
		t.Errorf("near-verbatim match score = %v, want >= %v", got[0].Score, models.ConfidenceThreshold)
	}
}

func TestSQLiteCorpusSearchNoMatch(t *testing.T) {
	c := newTestSQLiteCorpus(t)
	ctx := context.Background()
	if err := c.Add(ctx, Entry{Question: "store hours?", Answer: "9 to 5.", Keywords: ""}); err != nil {
		t.Fatal(err)
	}

	got, err := c.Search(ctx, "quantum entanglement")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("candidates = %v, want none", got)
	}
}

func TestSQLiteCorpusSearchPunctuationIsNotQuerySyntax(t *testing.T) {
	c := newTestSQLiteCorpus(t)
	ctx := context.Background()
	if err := c.Add(ctx, Entry{Question: "refund policy", Answer: "30 days.", Keywords: "returns"}); err != nil {
		t.Fatal(err)
	}

	// Raw FTS5 syntax characters in the inbound text must not break the query.
	if _, err := c.Search(ctx, `refund* AND ("policy"`); err != nil {
		t.Errorf("Search with punctuation failed: %v", err)
	}
}

func TestSQLiteCorpusSearchErrorIsRetrieval(t *testing.T) {
	c := newTestSQLiteCorpus(t)
	c.Close()

	_, err := c.Search(context.Background(), "anything")
	if !errors.Is(err, models.ErrRetrieval) {
		t.Errorf("expected ErrRetrieval from a closed corpus, got %v", err)
	}
}

func TestBM25Score(t *testing.T) {
	tests := []struct {
		rank float64
		want float64
	}{
		{0, 0},
		{1, 0},
		{-1, 0.5},
	}
	for _, tt := range tests {
		if got := bm25Score(tt.rank); got != tt.want {
			t.Errorf("bm25Score(%v) = %v, want %v", tt.rank, got, tt.want)
		}
	}
	// Stronger matches (more negative bm25) monotonically approach 1.
	if !(bm25Score(-5) > bm25Score(-1)) {
		t.Error("bm25Score should increase as bm25 rank improves")
	}
	if bm25Score(-100) >= 1 {
		t.Errorf("bm25Score(-100) = %v, want < 1", bm25Score(-100))
	}
}
