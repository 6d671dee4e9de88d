package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/nalgeon/be"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"

	appemail "mailsweep/internal/application/email"
	domain "mailsweep/internal/domain/email"
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

type lastRequest struct {
	mu   sync.Mutex
	body string
}

func (l *lastRequest) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.body
}

func newTestClient(t *testing.T, status int, body string) (*Client, *lastRequest) {
	t.Helper()
	got := &lastRequest{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got.mu.Lock()
		got.body = string(b)
		got.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)

	c, err := NewClient("sk-test", "", zerolog.Nop(),
		option.WithBaseURL(ts.URL+"/"),
		option.WithMaxRetries(0),
	)
	be.Err(t, err, nil)
	return c, got
}

func TestClassifySenders(t *testing.T) {
	reply := "```json\n{\"newsletter\": [\"News@Example.com\"], \"social\": [\"linkedin@example.com\"], \"mystery\": [\"odd@example.com\"]}\n```"
	c, req := newTestClient(t, 200, completion(reply))

	got, err := c.ClassifySenders(context.Background(), []appemail.SenderContext{
		{Sender: "news@example.com", Subjects: []string{"Weekly digest"}},
		{Sender: "linkedin@example.com"},
		{Sender: "odd@example.com"},
	})
	be.Err(t, err, nil)

	be.Equal(t, got["news@example.com"], domain.CategoryNewsletter)
	be.Equal(t, got["linkedin@example.com"], domain.CategorySocial)
	be.Equal(t, got["odd@example.com"], domain.CategoryUncategorized)

	be.True(t, strings.Contains(req.String(), "gpt-4o-mini"))
	be.True(t, strings.Contains(req.String(), "Weekly digest"))
}

func TestClassifySendersMalformed(t *testing.T) {
	c, _ := newTestClient(t, 200, completion("I think these are newsletters."))

	_, err := c.ClassifySenders(context.Background(), []appemail.SenderContext{{Sender: "a@example.com"}})
	be.True(t, errors.Is(err, domain.ErrClassificationUnavailable))
}

func TestClassifySendersAPIError(t *testing.T) {
	c, _ := newTestClient(t, 500, `{"error":{"message":"boom","type":"server_error"}}`)

	_, err := c.ClassifySenders(context.Background(), []appemail.SenderContext{{Sender: "a@example.com"}})
	be.True(t, errors.Is(err, domain.ErrClassificationUnavailable))
}

func TestSummarize(t *testing.T) {
	c, req := newTestClient(t, 200, completion("  You are about to delete 12 emails, mostly newsletters.  "))

	got, err := c.Summarize(context.Background(), 12, []domain.SenderStat{
		{Sender: "news@example.com", Count: 10},
		{Sender: "a@example.com", Count: 2},
	})
	be.Err(t, err, nil)
	be.Equal(t, got, "You are about to delete 12 emails, mostly newsletters.")
	be.True(t, strings.Contains(req.String(), "Total emails: 12"))
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("", "", zerolog.Nop())
	be.Err(t, err, "api key")
}

func TestParseCategoriesSkipsEmptyGroups(t *testing.T) {
	got, err := parseCategories(`{"promotional": ["x@example.com"], "newsletter": []}`)
	be.Err(t, err, nil)
	be.Equal(t, got, map[string]domain.Category{"x@example.com": domain.CategoryPromotional})
}
