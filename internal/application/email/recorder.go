package email

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domain "mailsweep/internal/domain/email"
)

// Recorder is the append-only action log of a session.
type Recorder struct {
	mu      sync.Mutex
	entries []domain.ActionLogEntry
	now     func() time.Time
	newID   func() string
	log     zerolog.Logger
}

func NewRecorder(log zerolog.Logger) *Recorder {
	return &Recorder{
		now:   time.Now,
		newID: uuid.NewString,
		log:   log,
	}
}

func (r *Recorder) Record(kind domain.ActionKind, description string, status domain.Status, details map[string]any) domain.ActionLogEntry {
	entry := domain.ActionLogEntry{
		ID:          r.newID(),
		Timestamp:   r.now(),
		Kind:        kind,
		Description: description,
		Status:      status,
		Details:     details,
	}

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()

	ev := r.log.Info()
	if status == domain.StatusFailure {
		ev = r.log.Warn()
	}
	ev.Str("kind", string(kind)).Str("status", string(status)).Msg(description)

	return entry
}

// Entries returns a copy of the log, oldest first.
func (r *Recorder) Entries() []domain.ActionLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.ActionLogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Recent returns up to limit entries, newest first. limit <= 0 means all.
func (r *Recorder) Recent(limit int) []domain.ActionLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.ActionLogEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.entries[i])
	}
	return out
}

func (r *Recorder) ByKind(kind domain.ActionKind) []domain.ActionLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.ActionLogEntry
	for _, e := range r.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type DeletionStats struct {
	TotalDeleted int `json:"total_deleted"`
	Operations   int `json:"operations"`
}

func (r *Recorder) DeletionStats() DeletionStats {
	var stats DeletionStats
	for _, e := range r.ByKind(domain.ActionDelete) {
		stats.Operations++
		if n, ok := e.Details["succeeded"].(int); ok {
			stats.TotalDeleted += n
		}
	}
	return stats
}
