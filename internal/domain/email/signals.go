package email

import "strings"

// ImportanceSignals are keyword hints shown next to a message. They need no
// model and are recomputed from the headers alone.
type ImportanceSignals struct {
	Automated   bool `json:"likely_automated"`
	Newsletter  bool `json:"likely_newsletter"`
	Promotional bool `json:"likely_promotional"`
	Important   bool `json:"potentially_important"`
}

var (
	automatedSenderWords = []string{"noreply", "no-reply", "donotreply", "notification"}
	newsletterWords      = []string{"newsletter", "digest", "weekly", "monthly", "unsubscribe"}
	promotionalWords     = []string{"sale", "off", "deal", "discount", "offer", "free"}
	importantWords       = []string{"invoice", "receipt", "confirm", "action required"}
)

// Signals matches the From header and subject against fixed keyword lists.
// Matching is case-insensitive substring matching.
func Signals(from, subject string) ImportanceSignals {
	from = strings.ToLower(from)
	subject = strings.ToLower(subject)
	return ImportanceSignals{
		Automated:   containsAny(from, automatedSenderWords),
		Newsletter:  containsAny(subject, newsletterWords),
		Promotional: containsAny(subject, promotionalWords),
		Important:   containsAny(subject, importantWords),
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
