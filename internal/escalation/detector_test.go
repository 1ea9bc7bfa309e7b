package escalation

import "testing"

func TestLexicalDetectorMatchesUncertainty(t *testing.T) {
	d := NewLexicalDetector()
	positives := []string{
		"I'm unable to answer that question.",
		"Unfortunately I cannot verify your account balance.",
		"I can't find that order in our records.",
		"I do not know the answer to that.",
		"I don't know when the store opens.",
		"I'm unsure about our refund policy.",
		"I'm not sure which plan you are on.",
		"There is no information available about that product.",
		"That is not possible with the current plan.",
		"That would be impossible to change remotely.",
		"I can't help you with that request.",
		"I CANNOT ACCESS YOUR ACCOUNT.",
	}
	for _, text := range positives {
		if !d.NeedsHuman(text) {
			t.Errorf("NeedsHuman(%q) = false, want true", text)
		}
	}
}

func TestLexicalDetectorIgnoresConfidentReplies(t *testing.T) {
	d := NewLexicalDetector()
	negatives := []string{
		"Your order ships tomorrow and arrives within two business days.",
		"The store opens at 9 AM on weekdays.",
		"You can reset your password from the account settings page.",
		"",
	}
	for _, text := range negatives {
		if d.NeedsHuman(text) {
			t.Errorf("NeedsHuman(%q) = true, want false", text)
		}
	}
}
