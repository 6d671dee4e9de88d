package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "mailsweep/internal/domain/email"
)

const (
	highVolumeThreshold = 10
	recommendedSenders  = 5
	veryOldAgeDays      = 90
)

type RecommendationType string

const (
	RecommendBulkDelete     RecommendationType = "bulk_delete"
	RecommendCategoryDelete RecommendationType = "category_delete"
	RecommendOldEmails      RecommendationType = "old_emails"
)

type Recommendation struct {
	Type        RecommendationType `json:"type"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Action      string             `json:"action"`
	Priority    string             `json:"priority"`
	Senders     []string           `json:"senders,omitempty"`
	MessageIDs  []string           `json:"message_ids"`
}

// Recommend suggests cleanup selections for the working set. stats must be
// ranked as AggregateSenders returns them.
func Recommend(stats []domain.SenderStat, msgs []domain.Message, now time.Time) []Recommendation {
	var out []Recommendation

	var heavy []domain.SenderStat
	for _, s := range stats {
		if s.Count >= highVolumeThreshold {
			heavy = append(heavy, s)
		}
	}
	if len(heavy) > 0 {
		top := heavy[:min(recommendedSenders, len(heavy))]
		var ids []string
		for _, s := range top {
			ids = append(ids, s.MessageIDs...)
		}
		out = append(out, Recommendation{
			Type:        RecommendBulkDelete,
			Title:       "High-Volume Senders",
			Description: fmt.Sprintf("Found %d senders with %d+ unread emails each.", len(heavy), highVolumeThreshold),
			Action:      "Consider deleting all emails from these senders",
			Priority:    "high",
			Senders:     domain.Senders(top),
			MessageIDs:  ids,
		})
	}

	for _, cat := range []domain.Category{domain.CategoryNewsletter, domain.CategoryPromotional} {
		var (
			senders []string
			ids     []string
		)
		for _, s := range stats {
			if s.Category != cat {
				continue
			}
			senders = append(senders, s.Sender)
			ids = append(ids, s.MessageIDs...)
		}
		if len(ids) == 0 {
			continue
		}
		name := string(cat)
		out = append(out, Recommendation{
			Type:        RecommendCategoryDelete,
			Title:       strings.ToUpper(name[:1]) + name[1:] + " Emails",
			Description: fmt.Sprintf("Found %d emails from %s sources.", len(ids), name),
			Action:      fmt.Sprintf("Delete all %s emails", name),
			Priority:    "medium",
			Senders:     senders[:min(recommendedSenders, len(senders))],
			MessageIDs:  ids,
		})
	}

	var old []string
	for i := range msgs {
		if msgs[i].AgeDays(now) > veryOldAgeDays {
			old = append(old, msgs[i].ID)
		}
	}
	if len(old) > 0 {
		out = append(out, Recommendation{
			Type:        RecommendOldEmails,
			Title:       fmt.Sprintf("Very Old Emails (%d+ days)", veryOldAgeDays),
			Description: fmt.Sprintf("Found %d emails older than %d days.", len(old), veryOldAgeDays),
			Action:      fmt.Sprintf("Delete all emails older than %d days", veryOldAgeDays),
			Priority:    "medium",
			MessageIDs:  old,
		})
	}

	return out
}

// BasicSummary describes the pending deletion without a model.
func BasicSummary(total int, stats []domain.SenderStat) string {
	top, count := "Unknown", 0
	if len(stats) > 0 {
		top, count = stats[0].Sender, stats[0].Count
	}
	return fmt.Sprintf("Ready to delete %d unread emails from %d senders. Top sender: %s (%d emails).",
		total, len(stats), top, count)
}

// Summarize prefers the model summary and falls back to BasicSummary.
func Summarize(ctx context.Context, summarizer Summarizer, total int, stats []domain.SenderStat) string {
	if summarizer == nil {
		return BasicSummary(total, stats)
	}
	text, err := summarizer.Summarize(ctx, total, stats)
	if err != nil || strings.TrimSpace(text) == "" {
		return BasicSummary(total, stats)
	}
	return strings.TrimSpace(text)
}
