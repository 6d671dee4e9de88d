package email

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nalgeon/be"
	"github.com/rs/zerolog"

	domain "mailsweep/internal/domain/email"
)

func TestDeleteBulkSuccess(t *testing.T) {
	provider := &fakeProvider{}
	rec := newTestRecorder()
	d := NewDeleter(provider, rec, zerolog.Nop())

	res, err := d.Delete(context.Background(), []string{"a", "b", "a", "c"})
	be.Err(t, err, nil)

	be.Equal(t, res.Requested, []string{"a", "b", "c"})
	be.Equal(t, res.Succeeded, []string{"a", "b", "c"})
	be.Equal(t, len(res.Failed), 0)
	be.Equal(t, res.UsedFallback, false)

	be.Equal(t, len(provider.batchCalls), 1)
	be.Equal(t, provider.batchCalls[0].add, []string{"TRASH"})
	be.Equal(t, provider.batchCalls[0].remove, []string{"INBOX"})
	be.Equal(t, len(provider.modifyCalls), 0)

	entries := rec.ByKind(domain.ActionDelete)
	be.Equal(t, len(entries), 1)
	be.Equal(t, entries[0].Status, domain.StatusSuccess)
	be.Equal(t, rec.DeletionStats(), DeletionStats{TotalDeleted: 3, Operations: 1})
}

func TestDeleteEmptyInput(t *testing.T) {
	provider := &fakeProvider{}
	d := NewDeleter(provider, newTestRecorder(), zerolog.Nop())

	res, err := d.Delete(context.Background(), nil)
	be.True(t, res == nil)
	be.True(t, errors.Is(err, domain.ErrNoMessages))
	be.Equal(t, len(provider.batchCalls), 0)
}

func TestDeleteChunksAtLimit(t *testing.T) {
	ids := make([]string, 2500)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%d", i)
	}
	provider := &fakeProvider{}
	d := NewDeleter(provider, newTestRecorder(), zerolog.Nop())

	res, err := d.Delete(context.Background(), ids)
	be.Err(t, err, nil)

	be.Equal(t, len(provider.batchCalls), 3)
	be.Equal(t, len(provider.batchCalls[0].ids), 1000)
	be.Equal(t, len(provider.batchCalls[1].ids), 1000)
	be.Equal(t, len(provider.batchCalls[2].ids), 500)
	be.Equal(t, len(res.Succeeded), 2500)
}

func TestDeleteFallbackPartial(t *testing.T) {
	provider := &fakeProvider{
		batchErr:  domain.ErrProviderUnavailable,
		modifyErr: map[string]error{"b": errBoom},
	}
	rec := newTestRecorder()
	d := NewDeleter(provider, rec, zerolog.Nop())

	res, err := d.Delete(context.Background(), []string{"a", "b", "c"})
	be.True(t, errors.Is(err, domain.ErrPartialDelete))

	be.Equal(t, res.UsedFallback, true)
	be.Equal(t, res.Succeeded, []string{"a", "c"})
	be.Equal(t, res.FailedIDs(), []string{"b"})
	be.Equal(t, res.Failed[0].Reason, "boom")
	be.Equal(t, len(provider.modifyCalls), 3)

	be.Equal(t, rec.ByKind(domain.ActionDelete)[0].Status, domain.StatusPartial)
}

func TestDeleteFallbackAllFail(t *testing.T) {
	provider := &fakeProvider{
		batchErr:  errBoom,
		modifyErr: map[string]error{"a": errBoom, "b": errBoom},
	}
	rec := newTestRecorder()
	d := NewDeleter(provider, rec, zerolog.Nop())

	res, err := d.Delete(context.Background(), []string{"a", "b"})
	be.True(t, errors.Is(err, domain.ErrPartialDelete))
	be.Equal(t, len(res.Succeeded), 0)
	be.Equal(t, rec.ByKind(domain.ActionDelete)[0].Status, domain.StatusFailure)
}

func TestDeleteBulkAuthExpiredSkipsFallback(t *testing.T) {
	ids := make([]string, 1200)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%d", i)
	}
	provider := &fakeProvider{batchErr: fmt.Errorf("batch: %w", domain.ErrAuthExpired)}
	d := NewDeleter(provider, newTestRecorder(), zerolog.Nop())

	res, err := d.Delete(context.Background(), ids)
	be.True(t, errors.Is(err, domain.ErrAuthExpired))

	be.Equal(t, len(provider.batchCalls), 1)
	be.Equal(t, len(provider.modifyCalls), 0)
	be.Equal(t, len(res.Failed), 1200)
	be.Equal(t, len(res.Succeeded), 0)
}

func TestDeleteFallbackAuthExpiredStops(t *testing.T) {
	provider := &fakeProvider{
		batchErr:  errBoom,
		modifyErr: map[string]error{"b": domain.ErrAuthExpired},
	}
	d := NewDeleter(provider, newTestRecorder(), zerolog.Nop())

	res, err := d.Delete(context.Background(), []string{"a", "b", "c", "d"})
	be.True(t, errors.Is(err, domain.ErrAuthExpired))

	be.Equal(t, len(provider.modifyCalls), 2)
	be.Equal(t, res.Succeeded, []string{"a"})
	be.Equal(t, res.FailedIDs(), []string{"b", "c", "d"})
}

func TestDeleteResultCoversEveryID(t *testing.T) {
	provider := &fakeProvider{
		batchErr:  errBoom,
		modifyErr: map[string]error{"x2": errBoom, "x5": errBoom},
	}
	d := NewDeleter(provider, newTestRecorder(), zerolog.Nop())

	ids := []string{"x1", "x2", "x3", "x4", "x5"}
	res, _ := d.Delete(context.Background(), ids)

	seen := make(map[string]int)
	for _, id := range res.Succeeded {
		seen[id]++
	}
	for _, id := range res.FailedIDs() {
		seen[id]++
	}
	be.Equal(t, len(seen), len(ids))
	for _, id := range ids {
		be.Equal(t, seen[id], 1)
	}
}
