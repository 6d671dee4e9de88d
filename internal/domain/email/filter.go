package email

import (
	"fmt"
	"strings"
)

const (
	DefaultAgeDays = 30
	veryOldDays    = 90
	allLabels      = "All"
)

// Filter is the user's search selection for one fetch.
type Filter struct {
	AgeDays    int      `json:"age_days"`
	UnreadOnly bool     `json:"unread_only"`
	Sender     string   `json:"sender,omitempty"`
	Subject    string   `json:"subject,omitempty"`
	Labels     []string `json:"labels,omitempty"`
}

func DefaultFilter() Filter {
	return Filter{AgeDays: DefaultAgeDays, UnreadOnly: true}
}

func (f Filter) Validate() error {
	if f.AgeDays < 0 {
		return fmt.Errorf("%w: age must be non-negative, got %d", ErrInvalidFilter, f.AgeDays)
	}
	return nil
}

// Query renders the filter as a Gmail search string. Predicates are
// space-joined, which Gmail treats as AND.
func (f Filter) Query() string {
	var parts []string

	if f.AgeDays > 0 {
		parts = append(parts, fmt.Sprintf("older_than:%dd", f.AgeDays))
	}
	if f.UnreadOnly {
		parts = append(parts, "is:unread")
	}
	if s := strings.TrimSpace(f.Sender); s != "" {
		parts = append(parts, "from:"+quote(s))
	}
	if s := strings.TrimSpace(f.Subject); s != "" {
		parts = append(parts, "subject:"+quote(s))
	}
	for _, l := range f.Labels {
		l = strings.TrimSpace(l)
		if l == "" || l == allLabels || IsSystemLabel(l) {
			continue
		}
		parts = append(parts, "label:"+quote(l))
	}

	return strings.Join(parts, " ")
}

// quote wraps multi-word phrases; parenthesized groups pass through.
func quote(s string) string {
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		return s
	}
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}

// Preset names the quick filters offered next to the filter form.
type Preset string

const (
	PresetNewsletters Preset = "newsletters"
	PresetPromotions  Preset = "promotions"
	PresetSocial      Preset = "social"
	PresetVeryOld     Preset = "very_old"
)

// Apply returns a copy of f with the preset's predicates substituted.
func (p Preset) Apply(f Filter) (Filter, error) {
	switch p {
	case PresetNewsletters:
		f.Subject = "(newsletter OR digest OR weekly)"
	case PresetPromotions:
		f.Subject = "(sale OR discount OR offer OR deal)"
	case PresetSocial:
		f.Sender = "(linkedin OR twitter OR facebook OR instagram)"
	case PresetVeryOld:
		f.AgeDays = veryOldDays
	default:
		return f, fmt.Errorf("%w: unknown preset %q", ErrInvalidFilter, p)
	}
	return f, nil
}
