// Package escalation classifies composed replies that need a human agent.
package escalation

import "regexp"

// Detector decides whether a reply warrants a human handoff.
type Detector interface {
	NeedsHuman(text string) bool
}

// hedging/inability phrases; false positives and negatives are accepted
var escalationRegex = regexp.MustCompile(`(?i)unable to|cannot|can't|do not know|don't know|unsure|not sure|no information|not possible|impossible|help you with that`)

// LexicalDetector flags replies containing any fixed hedging phrase.
type LexicalDetector struct{}

func NewLexicalDetector() LexicalDetector {
	return LexicalDetector{}
}

func (LexicalDetector) NeedsHuman(text string) bool {
	return escalationRegex.MatchString(text)
}
