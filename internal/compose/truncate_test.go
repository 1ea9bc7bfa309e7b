package compose

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateAtSentenceShortTextUnchanged(t *testing.T) {
	text := "Your order ships tomorrow."
	if got := TruncateAtSentence(text, 700); got != text {
		t.Errorf("TruncateAtSentence() = %q, want unchanged input", got)
	}
}

func TestTruncateAtSentenceExactLimitUnchanged(t *testing.T) {
	text := strings.Repeat("a", 100)
	if got := TruncateAtSentence(text, 100); got != text {
		t.Errorf("text at exactly the limit should be unchanged, got %q", got)
	}
}

func TestTruncateAtSentenceCutsAtLastSentence(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third one is too long to fit."
	got := TruncateAtSentence(text, 50)
	want := "First sentence here. Second sentence follows."
	if got != want {
		t.Errorf("TruncateAtSentence() = %q, want %q", got, want)
	}
}

func TestTruncateAtSentenceHandlesQuestionMark(t *testing.T) {
	text := "Did that answer your question? Let me know if you need anything else from us today."
	got := TruncateAtSentence(text, 40)
	want := "Did that answer your question?"
	if got != want {
		t.Errorf("TruncateAtSentence() = %q, want %q", got, want)
	}
}

func TestTruncateAtSentenceFallsBackToWordBoundary(t *testing.T) {
	text := "no terminal punctuation anywhere in this text at all"
	got := TruncateAtSentence(text, 30)
	if len(got) > 30 {
		t.Fatalf("result length %d exceeds limit 30", len(got))
	}
	if strings.HasSuffix(got, " ") || !strings.HasPrefix(text, got) {
		t.Errorf("expected a clean word-boundary prefix, got %q", got)
	}
	if strings.Contains(got[len(got)-1:], " ") {
		t.Errorf("result should not end mid-space: %q", got)
	}
}

func TestTruncateAtSentenceHardCutWithoutSpaces(t *testing.T) {
	text := strings.Repeat("x", 900)
	got := TruncateAtSentence(text, 700)
	if len(got) != 700 {
		t.Errorf("expected hard cut to 700 bytes, got %d", len(got))
	}
}

func TestTruncateAtSentenceHardCutKeepsRunesIntact(t *testing.T) {
	text := strings.Repeat("é", 400) // two bytes per rune, no spaces
	for max := 699; max <= 701; max++ {
		got := TruncateAtSentence(text, max)
		if len(got) > max {
			t.Errorf("max=%d: result length %d exceeds limit", max, len(got))
		}
		if !utf8.ValidString(got) {
			t.Errorf("max=%d: hard cut produced invalid UTF-8: %q", max, got[len(got)-4:])
		}
	}
}

func TestTruncateAtSentenceNonPositiveLimit(t *testing.T) {
	text := "anything"
	if got := TruncateAtSentence(text, 0); got != text {
		t.Errorf("non-positive limit should return text unchanged, got %q", got)
	}
}
