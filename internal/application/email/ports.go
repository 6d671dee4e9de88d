package email

import (
	"context"

	domain "mailsweep/internal/domain/email"
)

// Page is one page of message ids from a provider listing.
type Page struct {
	IDs           []string
	NextPageToken string
}

// MessageProvider is the mailbox the session works against.
type MessageProvider interface {
	ListMessageIDs(ctx context.Context, query, pageToken string, pageSize int64) (Page, error)
	GetMessageMetadata(ctx context.Context, id string) (*domain.Message, error)
	BatchModify(ctx context.Context, ids, addLabels, removeLabels []string) error
	Modify(ctx context.Context, id string, addLabels, removeLabels []string) error
	ListLabels(ctx context.Context) ([]domain.Label, error)
}

// SenderContext is what the classifier sees for one sender.
type SenderContext struct {
	Sender   string   `json:"sender"`
	Subjects []string `json:"subjects,omitempty"`
}

type Classifier interface {
	Available() bool
	ClassifySenders(ctx context.Context, senders []SenderContext) (map[string]domain.Category, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, total int, stats []domain.SenderStat) (string, error)
}

type CategoryCache interface {
	Get(ctx context.Context, senders []string) (map[string]domain.Category, error)
	Put(ctx context.Context, categories map[string]domain.Category) error
}

// NoopClassifier stands in when no model credentials are configured.
type NoopClassifier struct{}

func (NoopClassifier) Available() bool { return false }

func (NoopClassifier) ClassifySenders(context.Context, []SenderContext) (map[string]domain.Category, error) {
	return nil, domain.ErrClassificationUnavailable
}
