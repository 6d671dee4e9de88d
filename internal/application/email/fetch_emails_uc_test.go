package email

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nalgeon/be"
	"github.com/rs/zerolog"

	domain "mailsweep/internal/domain/email"
)

func TestFetchPreservesProviderOrder(t *testing.T) {
	provider := (&fakeProvider{}).withMessages(
		"m1", "a@example.com",
		"m2", "b@example.com",
		"m3", "c@example.com",
		"m4", "a@example.com",
	)
	rec := newTestRecorder()
	f := NewFetcher(provider, rec, 3, zerolog.Nop())

	res, err := f.Fetch(context.Background(), "older_than:30d is:unread", 0)
	be.Err(t, err, nil)

	var ids []string
	for _, m := range res.Messages {
		ids = append(ids, m.ID)
	}
	be.Equal(t, ids, []string{"m1", "m2", "m3", "m4"})
	be.Equal(t, len(res.Skipped), 0)

	be.Equal(t, len(provider.listCalls), 1)
	be.Equal(t, provider.listCalls[0].query, "older_than:30d is:unread")
	be.Equal(t, provider.listCalls[0].pageSize, int64(500))

	fetches := rec.ByKind(domain.ActionFetch)
	be.Equal(t, len(fetches), 1)
	be.Equal(t, fetches[0].Status, domain.StatusSuccess)
}

func TestFetchFollowsPagesUntilLimit(t *testing.T) {
	provider := &fakeProvider{metas: map[string]*domain.Message{}}
	var pageIDs [][]string
	for p := 0; p < 3; p++ {
		var ids []string
		for i := 0; i < 4; i++ {
			id := fmt.Sprintf("p%d-%d", p, i)
			provider.metas[id] = domain.NewMessage(id, "", "x@example.com", "s", "", time.Time{})
			ids = append(ids, id)
		}
		pageIDs = append(pageIDs, ids)
	}
	provider.pages = []Page{
		{IDs: pageIDs[0], NextPageToken: "t1"},
		{IDs: pageIDs[1], NextPageToken: "t2"},
		{IDs: pageIDs[2], NextPageToken: "t3"},
	}

	f := NewFetcher(provider, newTestRecorder(), 2, zerolog.Nop())
	res, err := f.Fetch(context.Background(), "q", 6)
	be.Err(t, err, nil)

	be.Equal(t, len(res.Messages), 6)
	be.Equal(t, len(provider.listCalls), 2)
	be.Equal(t, provider.listCalls[0].pageSize, int64(6))
	be.Equal(t, provider.listCalls[1].pageToken, "t1")
	be.Equal(t, provider.listCalls[1].pageSize, int64(2))
	be.Equal(t, res.Messages[5].ID, "p1-1")
}

func TestFetchSkipsFailedMessages(t *testing.T) {
	provider := (&fakeProvider{}).withMessages(
		"m1", "a@example.com",
		"m2", "b@example.com",
		"m3", "c@example.com",
	)
	provider.metaErr = map[string]error{"m2": domain.ErrProviderUnavailable}
	rec := newTestRecorder()
	f := NewFetcher(provider, rec, 4, zerolog.Nop())

	res, err := f.Fetch(context.Background(), "q", 10)
	be.Err(t, err, nil)

	be.Equal(t, len(res.Messages), 2)
	be.Equal(t, res.Messages[0].ID, "m1")
	be.Equal(t, res.Messages[1].ID, "m3")
	be.Equal(t, res.Skipped, []string{"m2"})

	errs := rec.ByKind(domain.ActionError)
	be.Equal(t, len(errs), 1)
	be.Equal(t, errs[0].Details["id"], any("m2"))

	fetches := rec.ByKind(domain.ActionFetch)
	be.Equal(t, fetches[0].Status, domain.StatusPartial)
}

func TestFetchOneOfTenFails(t *testing.T) {
	var pairs []string
	for i := 1; i <= 10; i++ {
		pairs = append(pairs, fmt.Sprintf("m%02d", i), fmt.Sprintf("s%d@example.com", i))
	}
	provider := (&fakeProvider{}).withMessages(pairs...)
	provider.metaErr = map[string]error{"m07": errBoom}
	rec := newTestRecorder()
	f := NewFetcher(provider, rec, 4, zerolog.Nop())

	res, err := f.Fetch(context.Background(), "older_than:30d is:unread", 0)
	be.Err(t, err, nil)

	be.Equal(t, len(res.Messages), 9)
	for i, m := range res.Messages {
		want := i + 1
		if want >= 7 {
			want++
		}
		be.Equal(t, m.ID, fmt.Sprintf("m%02d", want))
	}
	be.Equal(t, res.Skipped, []string{"m07"})

	errs := rec.ByKind(domain.ActionError)
	be.Equal(t, len(errs), 1)
	be.Equal(t, errs[0].Details["id"], any("m07"))
	be.Equal(t, errs[0].Status, domain.StatusFailure)
}

func TestFetchListingFailureAborts(t *testing.T) {
	provider := &fakeProvider{listErr: domain.ErrProviderUnavailable}
	rec := newTestRecorder()
	f := NewFetcher(provider, rec, 4, zerolog.Nop())

	res, err := f.Fetch(context.Background(), "q", 10)
	be.True(t, res == nil)
	be.True(t, errors.Is(err, domain.ErrProviderUnavailable))

	fetches := rec.ByKind(domain.ActionFetch)
	be.Equal(t, len(fetches), 1)
	be.Equal(t, fetches[0].Status, domain.StatusFailure)
}

func TestFetchAuthExpiredAborts(t *testing.T) {
	provider := (&fakeProvider{}).withMessages(
		"m1", "a@example.com",
		"m2", "b@example.com",
	)
	provider.metaErr = map[string]error{"m2": fmt.Errorf("get: %w", domain.ErrAuthExpired)}
	f := NewFetcher(provider, newTestRecorder(), 1, zerolog.Nop())

	_, err := f.Fetch(context.Background(), "q", 10)
	be.True(t, errors.Is(err, domain.ErrAuthExpired))
}

func TestFetchEmptyResult(t *testing.T) {
	f := NewFetcher(&fakeProvider{}, newTestRecorder(), 0, zerolog.Nop())
	res, err := f.Fetch(context.Background(), "q", 10)
	be.Err(t, err, nil)
	be.Equal(t, len(res.Messages), 0)
}
