package email

import "fmt"

type DeleteFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchResult reports the per-message outcome of one delete request.
// Every requested ID lands in exactly one of Succeeded or Failed.
type BatchResult struct {
	Requested    []string        `json:"requested"`
	Succeeded    []string        `json:"succeeded"`
	Failed       []DeleteFailure `json:"failed"`
	UsedFallback bool            `json:"used_fallback"`
}

func NewBatchResult(requested []string) *BatchResult {
	return &BatchResult{
		Requested: requested,
		Succeeded: []string{},
		Failed:    []DeleteFailure{},
	}
}

func (r *BatchResult) Succeed(ids ...string) {
	r.Succeeded = append(r.Succeeded, ids...)
}

func (r *BatchResult) Fail(id, reason string) {
	r.Failed = append(r.Failed, DeleteFailure{ID: id, Reason: reason})
}

func (r *BatchResult) FailedIDs() []string {
	ids := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		ids[i] = f.ID
	}
	return ids
}

// Status summarizes the outcome for the action log.
func (r *BatchResult) Status() Status {
	switch {
	case len(r.Failed) == 0:
		return StatusSuccess
	case len(r.Succeeded) == 0:
		return StatusFailure
	default:
		return StatusPartial
	}
}

// Err is nil when every requested message was trashed.
func (r *BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d messages not trashed", ErrPartialDelete, len(r.Failed), len(r.Requested))
}
