package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	domain "mailsweep/internal/domain/email"
)

// batchModifyLimit is the most ids Gmail accepts in one batchModify call.
const batchModifyLimit = 1000

var (
	trashAdd    = []string{domain.LabelTrash}
	trashRemove = []string{domain.LabelInbox}
)

// Deleter moves messages to Trash, bulk first and per item when the bulk
// call fails.
type Deleter struct {
	provider MessageProvider
	recorder *Recorder
	log      zerolog.Logger
}

func NewDeleter(provider MessageProvider, recorder *Recorder, log zerolog.Logger) *Deleter {
	return &Deleter{
		provider: provider,
		recorder: recorder,
		log:      log,
	}
}

// Delete trashes ids. The result accounts for every distinct id. The error is
// ErrAuthExpired when the credential died part way, otherwise the result's Err.
func (d *Deleter) Delete(ctx context.Context, ids []string) (*domain.BatchResult, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, domain.ErrNoMessages
	}

	result := domain.NewBatchResult(ids)
	var fatal error
	for start := 0; start < len(ids); start += batchModifyLimit {
		chunk := ids[start:min(start+batchModifyLimit, len(ids))]
		if fatal != nil {
			for _, id := range chunk {
				result.Fail(id, fatal.Error())
			}
			continue
		}
		fatal = d.trashChunk(ctx, chunk, result)
	}

	d.recorder.Record(domain.ActionDelete, fmt.Sprintf("Moved %d emails to trash", len(result.Succeeded)), result.Status(), map[string]any{
		"requested": len(ids),
		"succeeded": len(result.Succeeded),
		"failed":    len(result.Failed),
		"fallback":  result.UsedFallback,
	})

	if fatal != nil {
		return result, fatal
	}
	return result, result.Err()
}

// trashChunk returns an error only when the credential expired.
func (d *Deleter) trashChunk(ctx context.Context, chunk []string, result *domain.BatchResult) error {
	err := d.provider.BatchModify(ctx, chunk, trashAdd, trashRemove)
	if err == nil {
		result.Succeed(chunk...)
		return nil
	}
	if errors.Is(err, domain.ErrAuthExpired) {
		for _, id := range chunk {
			result.Fail(id, err.Error())
		}
		return fmt.Errorf("batch modify: %w", err)
	}

	d.log.Warn().Err(err).Int("ids", len(chunk)).Msg("batch modify failed, trashing one by one")
	result.UsedFallback = true

	for i, id := range chunk {
		if err := d.provider.Modify(ctx, id, trashAdd, trashRemove); err != nil {
			if errors.Is(err, domain.ErrAuthExpired) {
				for _, rest := range chunk[i:] {
					result.Fail(rest, err.Error())
				}
				return fmt.Errorf("modify message %s: %w", id, err)
			}
			result.Fail(id, err.Error())
			continue
		}
		result.Succeed(id)
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
