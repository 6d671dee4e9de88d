package email

import (
	"html"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	snippetMaxRunes = 200
	noSubject       = "(No Subject)"
	unknownSender   = "unknown"
)

// Message is the metadata view of a Gmail message kept in the session working set.
type Message struct {
	ID           string    `json:"id"`
	ThreadID     string    `json:"thread_id"`
	From         string    `json:"from"`
	Sender       string    `json:"sender"`
	Subject      string    `json:"subject"`
	ReceivedAt   time.Time `json:"received_at"`
	Snippet      string    `json:"snippet"`
	Labels       []string  `json:"labels"`
	SizeEstimate int64     `json:"size_estimate"`
	Category     Category  `json:"category,omitempty"`

	Signals ImportanceSignals `json:"signals"`
}

func NewMessage(id, threadID, from, subject, snippet string, receivedAt time.Time) *Message {
	if strings.TrimSpace(subject) == "" {
		subject = noSubject
	}
	return &Message{
		ID:         id,
		ThreadID:   threadID,
		From:       from,
		Sender:     NormalizeSender(from),
		Subject:    subject,
		ReceivedAt: receivedAt,
		Snippet:    truncateSnippet(html.UnescapeString(snippet)),
		Signals:    Signals(from, subject),
	}
}

// AgeDays returns whole days elapsed between ReceivedAt and now.
func (m *Message) AgeDays(now time.Time) int {
	if m.ReceivedAt.IsZero() || now.Before(m.ReceivedAt) {
		return 0
	}
	return int(now.Sub(m.ReceivedAt) / (24 * time.Hour))
}

func (m *Message) Categorize(category Category) {
	m.Category = category
}

// NormalizeSender reduces a From header to a lowercase address.
// "Name <User@Example.com>" becomes "user@example.com".
func NormalizeSender(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return unknownSender
	}
	if addr, err := mail.ParseAddress(from); err == nil && addr.Address != "" {
		return strings.ToLower(addr.Address)
	}
	if open := strings.Index(from, "<"); open >= 0 {
		if end := strings.Index(from[open:], ">"); end > 1 {
			return strings.ToLower(strings.TrimSpace(from[open+1 : open+end]))
		}
	}
	return strings.ToLower(from)
}

func truncateSnippet(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= snippetMaxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:snippetMaxRunes-1]) + "…"
}
