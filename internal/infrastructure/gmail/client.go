package gmail

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	appemail "mailsweep/internal/application/email"
	domain "mailsweep/internal/domain/email"
)

const user = "me"

var metadataHeaders = []string{"From", "Subject", "Date"}

// Client is the Gmail adapter behind the session's MessageProvider port.
// Every call waits on the rate limiter and runs through the circuit breaker.
type Client struct {
	srv     *gmail.Service
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewService builds a Gmail service authorized by ts. Extra options are
// appended, so tests can point it at a local endpoint.
func NewService(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*gmail.Service, error) {
	opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return srv, nil
}

func NewClient(srv *gmail.Service, requestsPerSecond int, log zerolog.Logger) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}

	settings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !tripsBreaker(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}

	return &Client{
		srv:     srv,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		cb:      gobreaker.NewCircuitBreaker(settings),
		log:     log,
	}
}

func (c *Client) do(ctx context.Context, op string, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil {
		c.log.Debug().Err(err).Str("op", op).Str("breaker", c.cb.State().String()).Msg("gmail call failed")
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

func (c *Client) ListMessageIDs(ctx context.Context, query, pageToken string, pageSize int64) (appemail.Page, error) {
	call := c.srv.Users.Messages.List(user).Q(query).MaxResults(pageSize).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	var resp *gmail.ListMessagesResponse
	err := c.do(ctx, "list messages", func() error {
		var err error
		resp, err = call.Do()
		return err
	})
	if err != nil {
		return appemail.Page{}, err
	}

	page := appemail.Page{NextPageToken: resp.NextPageToken}
	for _, m := range resp.Messages {
		page.IDs = append(page.IDs, m.Id)
	}
	return page, nil
}

func (c *Client) GetMessageMetadata(ctx context.Context, id string) (*domain.Message, error) {
	var msg *gmail.Message
	err := c.do(ctx, "get message "+id, func() error {
		var err error
		msg, err = c.srv.Users.Messages.Get(user, id).
			Format("metadata").
			MetadataHeaders(metadataHeaders...).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	return toMessage(msg), nil
}

func (c *Client) BatchModify(ctx context.Context, ids, addLabels, removeLabels []string) error {
	req := &gmail.BatchModifyMessagesRequest{
		Ids:            ids,
		AddLabelIds:    addLabels,
		RemoveLabelIds: removeLabels,
	}
	return c.do(ctx, "batch modify", func() error {
		return c.srv.Users.Messages.BatchModify(user, req).Context(ctx).Do()
	})
}

func (c *Client) Modify(ctx context.Context, id string, addLabels, removeLabels []string) error {
	req := &gmail.ModifyMessageRequest{
		AddLabelIds:    addLabels,
		RemoveLabelIds: removeLabels,
	}
	return c.do(ctx, "modify message "+id, func() error {
		_, err := c.srv.Users.Messages.Modify(user, id, req).Context(ctx).Do()
		return err
	})
}

func (c *Client) ListLabels(ctx context.Context) ([]domain.Label, error) {
	var resp *gmail.ListLabelsResponse
	err := c.do(ctx, "list labels", func() error {
		var err error
		resp, err = c.srv.Users.Labels.List(user).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	labels := make([]domain.Label, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		labels = append(labels, domain.Label{ID: l.Id, Name: l.Name, Type: l.Type})
	}
	return labels, nil
}

// UserEmail returns the address of the authorized account.
func (c *Client) UserEmail(ctx context.Context) (string, error) {
	var profile *gmail.Profile
	err := c.do(ctx, "get profile", func() error {
		var err error
		profile, err = c.srv.Users.GetProfile(user).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}
	return profile.EmailAddress, nil
}

func toMessage(msg *gmail.Message) *domain.Message {
	var from, subject, date string
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch {
			case strings.EqualFold(h.Name, "From"):
				from = h.Value
			case strings.EqualFold(h.Name, "Subject"):
				subject = h.Value
			case strings.EqualFold(h.Name, "Date"):
				date = h.Value
			}
		}
	}

	m := domain.NewMessage(msg.Id, msg.ThreadId, from, subject, msg.Snippet, receivedAt(msg.InternalDate, date))
	m.Labels = msg.LabelIds
	m.SizeEstimate = msg.SizeEstimate
	return m
}

// receivedAt prefers Gmail's internal date and falls back to the Date header.
func receivedAt(internalMillis int64, dateHeader string) time.Time {
	if internalMillis > 0 {
		return time.UnixMilli(internalMillis).UTC()
	}
	if t, err := mail.ParseDate(dateHeader); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
