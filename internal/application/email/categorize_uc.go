package email

import (
	"context"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/rs/zerolog"

	domain "mailsweep/internal/domain/email"
)

const (
	maxBatchSenders   = 50
	maxBatchChars     = 6000
	subjectsPerSender = 2

	maxSubjectRunes = maxBatchChars / (maxBatchSenders * subjectsPerSender)
)

// Categorizer assigns a category to every sender in the working set.
type Categorizer struct {
	classifier Classifier
	cache      CategoryCache
	recorder   *Recorder
	log        zerolog.Logger
}

// NewCategorizer accepts a nil cache.
func NewCategorizer(classifier Classifier, cache CategoryCache, recorder *Recorder, log zerolog.Logger) *Categorizer {
	if classifier == nil {
		classifier = NoopClassifier{}
	}
	return &Categorizer{
		classifier: classifier,
		cache:      cache,
		recorder:   recorder,
		log:        log,
	}
}

// Categorize returns a category for every sender in stats. Classification
// failures degrade to uncategorized and are recorded, never returned.
func (c *Categorizer) Categorize(ctx context.Context, stats []domain.SenderStat, msgs []domain.Message) map[string]domain.Category {
	out := make(map[string]domain.Category, len(stats))
	if len(stats) == 0 {
		return out
	}

	pending := domain.Senders(stats)
	cached := 0
	if c.cache != nil {
		hits, err := c.cache.Get(ctx, pending)
		if err != nil {
			c.log.Warn().Err(err).Msg("category cache lookup failed")
		}
		var rest []string
		for _, s := range pending {
			if cat, ok := hits[s]; ok && cat.IsValid() {
				out[s] = cat
				cached++
				continue
			}
			rest = append(rest, s)
		}
		pending = rest
	}

	if len(pending) == 0 {
		return out
	}
	if !c.classifier.Available() {
		for _, s := range pending {
			out[s] = domain.CategoryUncategorized
		}
		return out
	}

	for _, s := range pending {
		out[s] = domain.CategoryUncategorized
	}

	fresh := make(map[string]domain.Category)
	failed := 0
	batches := batchSenders(senderContexts(pending, msgs))
	for i, batch := range batches {
		cats, err := c.classifier.ClassifySenders(ctx, batch)
		if err != nil {
			failed++
			c.recorder.Record(domain.ActionError, fmt.Sprintf("Categorize batch %d of %d", i+1, len(batches)), domain.StatusFailure, map[string]any{
				"senders": len(batch),
				"error":   err.Error(),
			})
		}
		for _, sc := range batch {
			cat := domain.CategoryUncategorized
			if err == nil {
				if got, ok := cats[sc.Sender]; ok && got.IsValid() {
					cat = got
				}
			}
			out[sc.Sender] = cat
			if cat != domain.CategoryUncategorized {
				fresh[sc.Sender] = cat
			}
		}
	}

	if c.cache != nil && len(fresh) > 0 {
		if err := c.cache.Put(ctx, fresh); err != nil {
			c.log.Warn().Err(err).Msg("category cache write failed")
		}
	}

	status := domain.StatusSuccess
	switch {
	case failed > 0 && failed == len(batches):
		status = domain.StatusFailure
	case failed > 0:
		status = domain.StatusPartial
	}
	c.recorder.Record(domain.ActionAnalysis, fmt.Sprintf("Categorized %d senders", len(out)), status, map[string]any{
		"senders":        len(out),
		"cached":         cached,
		"classified":     len(fresh),
		"batches":        len(batches),
		"failed_batches": failed,
	})

	return out
}

// ApplyCategories copies categories onto stats and messages in place.
func ApplyCategories(cats map[string]domain.Category, stats []domain.SenderStat, msgs []domain.Message) {
	for i := range stats {
		if cat, ok := cats[stats[i].Sender]; ok {
			stats[i].Category = cat
		}
	}
	for i := range msgs {
		if cat, ok := cats[msgs[i].Sender]; ok {
			msgs[i].Categorize(cat)
		}
	}
}

func senderContexts(senders []string, msgs []domain.Message) []SenderContext {
	subjects := make(map[string][]string, len(senders))
	for _, m := range msgs {
		list := subjects[m.Sender]
		subject := truncateRunes(m.Subject, maxSubjectRunes)
		if len(list) >= subjectsPerSender || slices.Contains(list, subject) {
			continue
		}
		subjects[m.Sender] = append(list, subject)
	}

	out := make([]SenderContext, len(senders))
	for i, s := range senders {
		out[i] = SenderContext{Sender: s, Subjects: subjects[s]}
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func contextSize(sc SenderContext) int {
	n := utf8.RuneCountInString(sc.Sender)
	for _, s := range sc.Subjects {
		n += utf8.RuneCountInString(s)
	}
	return n
}

// batchSenders splits senders so no batch exceeds the sender or character cap.
// A sender over the character cap is sent without subjects, or not at all when
// its address alone is over the cap.
func batchSenders(senders []SenderContext) [][]SenderContext {
	var (
		batches [][]SenderContext
		cur     []SenderContext
		size    int
	)
	for _, sc := range senders {
		n := contextSize(sc)
		if n > maxBatchChars {
			sc.Subjects = nil
			n = contextSize(sc)
			if n > maxBatchChars {
				continue
			}
		}
		if len(cur) > 0 && (len(cur) >= maxBatchSenders || size+n > maxBatchChars) {
			batches = append(batches, cur)
			cur, size = nil, 0
		}
		cur = append(cur, sc)
		size += n
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}
