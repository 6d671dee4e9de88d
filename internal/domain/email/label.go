package email

import "strings"

const (
	LabelTrash = "TRASH"
	LabelInbox = "INBOX"
)

// systemLabels cannot be searched with the label: operator.
var systemLabels = map[string]bool{
	"UNREAD":    true,
	"INBOX":     true,
	"SENT":      true,
	"DRAFT":     true,
	"SPAM":      true,
	"TRASH":     true,
	"STARRED":   true,
	"IMPORTANT": true,
	"CHAT":      true,
}

type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func (l Label) IsSystem() bool {
	return l.Type == "system" || IsSystemLabel(l.Name)
}

func IsSystemLabel(name string) bool {
	upper := strings.ToUpper(strings.TrimSpace(name))
	return systemLabels[upper] || strings.HasPrefix(upper, "CATEGORY_")
}

// UserLabels drops system labels, keeping provider order.
func UserLabels(labels []Label) []Label {
	out := make([]Label, 0, len(labels))
	for _, l := range labels {
		if l.IsSystem() {
			continue
		}
		out = append(out, l)
	}
	return out
}
