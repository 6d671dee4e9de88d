package email

import "time"

type ActionKind string

const (
	ActionFetch    ActionKind = "fetch"
	ActionDelete   ActionKind = "delete"
	ActionError    ActionKind = "error"
	ActionAuth     ActionKind = "auth"
	ActionAnalysis ActionKind = "analysis"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailure Status = "failure"
)

// ActionLogEntry is one line of the session's operation history.
type ActionLogEntry struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Kind        ActionKind     `json:"kind"`
	Description string         `json:"description"`
	Status      Status         `json:"status"`
	Details     map[string]any `json:"details,omitempty"`
}
