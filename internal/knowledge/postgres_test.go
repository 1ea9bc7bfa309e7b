package knowledge

import (
	"testing"

	"github.com/proleads/SupportLine/internal/models"
)

func TestTSRankScore(t *testing.T) {
	if got := tsRankScore(0); got != 0 {
		t.Errorf("tsRankScore(0) = %v, want 0", got)
	}
	if got := tsRankScore(-1); got != 0 {
		t.Errorf("tsRankScore(-1) = %v, want 0", got)
	}

	// A multi-term near-verbatim match ranks around 0.3 under the default
	// 0.1 lexeme weight and must read as confident.
	if got := tsRankScore(0.3); got < models.ConfidenceThreshold {
		t.Errorf("tsRankScore(0.3) = %v, want >= %v", got, models.ConfidenceThreshold)
	}
	// A single shared term ranks around 0.06 and must not.
	if got := tsRankScore(0.06); got >= models.ConfidenceThreshold {
		t.Errorf("tsRankScore(0.06) = %v, want < %v", got, models.ConfidenceThreshold)
	}

	if !(tsRankScore(0.6) > tsRankScore(0.3)) {
		t.Error("tsRankScore should increase with rank")
	}
	if tsRankScore(100) >= 1 {
		t.Errorf("tsRankScore(100) = %v, want < 1", tsRankScore(100))
	}
}
