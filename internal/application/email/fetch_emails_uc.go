package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	domain "mailsweep/internal/domain/email"
)

const (
	DefaultMaxMessages = 500
	maxPageSize        = 500
	defaultConcurrency = 8
)

type FetchResult struct {
	Query    string           `json:"query"`
	Messages []domain.Message `json:"messages"`
	Skipped  []string         `json:"skipped"`
}

// Fetcher lists message ids for a query, then loads metadata for each.
type Fetcher struct {
	provider    MessageProvider
	recorder    *Recorder
	concurrency int
	log         zerolog.Logger
}

func NewFetcher(provider MessageProvider, recorder *Recorder, concurrency int, log zerolog.Logger) *Fetcher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Fetcher{
		provider:    provider,
		recorder:    recorder,
		concurrency: concurrency,
		log:         log,
	}
}

// Fetch returns at most limit messages matching query in provider order.
// Messages whose metadata cannot be loaded are skipped and logged; a
// listing failure or an expired credential aborts the whole fetch.
func (f *Fetcher) Fetch(ctx context.Context, query string, limit int) (*FetchResult, error) {
	if limit <= 0 {
		limit = DefaultMaxMessages
	}

	ids, err := f.listIDs(ctx, query, limit)
	if err != nil {
		f.recorder.Record(domain.ActionFetch, "Fetch emails", domain.StatusFailure, map[string]any{
			"query": query,
			"error": err.Error(),
		})
		return nil, fmt.Errorf("list messages: %w", err)
	}

	msgs, skipped, err := f.loadMetadata(ctx, ids)
	if err != nil {
		f.recorder.Record(domain.ActionFetch, "Fetch emails", domain.StatusFailure, map[string]any{
			"query": query,
			"error": err.Error(),
		})
		return nil, err
	}

	status := domain.StatusSuccess
	if len(skipped) > 0 {
		status = domain.StatusPartial
	}
	f.recorder.Record(domain.ActionFetch, fmt.Sprintf("Fetched %d emails", len(msgs)), status, map[string]any{
		"query":   query,
		"count":   len(msgs),
		"skipped": len(skipped),
	})

	return &FetchResult{Query: query, Messages: msgs, Skipped: skipped}, nil
}

func (f *Fetcher) listIDs(ctx context.Context, query string, limit int) ([]string, error) {
	var (
		ids       []string
		pageToken string
	)
	for len(ids) < limit {
		size := min(maxPageSize, limit-len(ids))
		page, err := f.provider.ListMessageIDs(ctx, query, pageToken, int64(size))
		if err != nil {
			return nil, err
		}
		ids = append(ids, page.IDs...)
		if page.NextPageToken == "" || len(page.IDs) == 0 {
			break
		}
		pageToken = page.NextPageToken
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	f.log.Debug().Str("query", query).Int("ids", len(ids)).Msg("listed messages")
	return ids, nil
}

func (f *Fetcher) loadMetadata(ctx context.Context, ids []string) ([]domain.Message, []string, error) {
	results := make([]*domain.Message, len(ids))
	failures := make([]error, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			m, err := f.provider.GetMessageMetadata(gctx, id)
			if err != nil {
				if errors.Is(err, domain.ErrAuthExpired) {
					return fmt.Errorf("get message %s: %w", id, err)
				}
				failures[i] = err
				return nil
			}
			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("get messages: %w", err)
	}

	msgs := make([]domain.Message, 0, len(ids))
	var skipped []string
	for i, m := range results {
		if m == nil {
			err := failures[i]
			if err == nil {
				err = errors.New("empty message")
			}
			skipped = append(skipped, ids[i])
			f.log.Warn().Err(err).Str("id", ids[i]).Msg("skipping message")
			f.recorder.Record(domain.ActionError, "Fetch message "+ids[i], domain.StatusFailure, map[string]any{
				"id":    ids[i],
				"error": err.Error(),
			})
			continue
		}
		msgs = append(msgs, *m)
	}
	return msgs, skipped, nil
}
