package email

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	domain "mailsweep/internal/domain/email"
)

var ErrSessionClosed = errors.New("session closed")

type Deps struct {
	Provider   MessageProvider
	Classifier Classifier
	Summarizer Summarizer
	Cache      CategoryCache
}

type SessionConfig struct {
	MaxMessages int
	Concurrency int
}

// Snapshot is the working set after a fetch or delete.
type Snapshot struct {
	Query    string              `json:"query"`
	Messages []domain.Message    `json:"messages"`
	Senders  []domain.SenderStat `json:"senders"`
	Skipped  []string            `json:"skipped,omitempty"`
}

// Session holds the working set of one signed-in account. Operations are
// serialized so the working set has a single writer.
type Session struct {
	mu sync.Mutex

	account     string
	provider    MessageProvider
	summarizer  Summarizer
	recorder    *Recorder
	fetcher     *Fetcher
	categorizer *Categorizer
	deleter     *Deleter
	maxMessages int
	now         func() time.Time
	log         zerolog.Logger

	messages   []domain.Message
	senders    []domain.SenderStat
	categories map[string]domain.Category
	lastQuery  string
	closed     bool
}

func NewSession(account string, deps Deps, cfg SessionConfig, log zerolog.Logger) *Session {
	log = log.With().Str("account", account).Logger()
	recorder := NewRecorder(log)

	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}

	s := &Session{
		account:     account,
		provider:    deps.Provider,
		summarizer:  deps.Summarizer,
		recorder:    recorder,
		fetcher:     NewFetcher(deps.Provider, recorder, cfg.Concurrency, log),
		categorizer: NewCategorizer(deps.Classifier, deps.Cache, recorder, log),
		deleter:     NewDeleter(deps.Provider, recorder, log),
		maxMessages: cfg.MaxMessages,
		now:         time.Now,
		log:         log,
		categories:  make(map[string]domain.Category),
	}

	recorder.Record(domain.ActionAuth, "Signed in as "+account, domain.StatusSuccess, nil)
	return s
}

func (s *Session) Account() string { return s.account }

func (s *Session) Recorder() *Recorder { return s.recorder }

// Close drops the working set. The action log stays readable.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.messages = nil
	s.senders = nil
	s.categories = nil
	s.recorder.Record(domain.ActionAuth, "Signed out", domain.StatusSuccess, nil)
}

// Fetch replaces the working set with messages matching f. On error the
// previous working set is kept.
func (s *Session) Fetch(ctx context.Context, f domain.Filter) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	query := f.Query()
	res, err := s.fetcher.Fetch(ctx, query, s.maxMessages)
	if err != nil {
		return nil, fmt.Errorf("fetch emails: %w", err)
	}

	s.messages = res.Messages
	s.lastQuery = query
	s.senders = domain.AggregateSenders(s.messages)
	s.categories = s.categorizer.Categorize(ctx, s.senders, s.messages)
	ApplyCategories(s.categories, s.senders, s.messages)

	snap := s.snapshot()
	snap.Skipped = res.Skipped
	return snap, nil
}

// Delete trashes ids and drops the trashed ones from the working set.
func (s *Session) Delete(ctx context.Context, ids []string) (*domain.BatchResult, *Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil, ErrSessionClosed
	}

	res, err := s.deleter.Delete(ctx, ids)
	if res == nil {
		return nil, nil, err
	}

	if len(res.Succeeded) > 0 {
		gone := make(map[string]bool, len(res.Succeeded))
		for _, id := range res.Succeeded {
			gone[id] = true
		}
		kept := s.messages[:0]
		for _, m := range s.messages {
			if !gone[m.ID] {
				kept = append(kept, m)
			}
		}
		s.messages = kept
		s.senders = domain.AggregateSenders(s.messages)
		ApplyCategories(s.categories, s.senders, s.messages)
	}

	return res, s.snapshot(), err
}

func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// SelectBySender returns the ids of every working-set message from sender.
func (s *Session) SelectBySender(sender string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender = domain.NormalizeSender(sender)
	for _, st := range s.senders {
		if st.Sender == sender {
			return append([]string(nil), st.MessageIDs...)
		}
	}
	return []string{}
}

func (s *Session) Recommendations() []Recommendation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Recommend(s.senders, s.messages, s.now())
}

func (s *Session) Summary(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summarize(ctx, s.summarizer, len(s.messages), s.senders)
}

// Labels lists the account's user labels for the filter form.
func (s *Session) Labels(ctx context.Context) ([]domain.Label, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	labels, err := s.provider.ListLabels(ctx)
	if err != nil {
		s.recorder.Record(domain.ActionError, "List labels", domain.StatusFailure, map[string]any{"error": err.Error()})
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return domain.UserLabels(labels), nil
}

func (s *Session) snapshot() *Snapshot {
	msgs := make([]domain.Message, len(s.messages))
	copy(msgs, s.messages)
	senders := make([]domain.SenderStat, len(s.senders))
	copy(senders, s.senders)
	return &Snapshot{
		Query:    s.lastQuery,
		Messages: msgs,
		Senders:  senders,
	}
}
