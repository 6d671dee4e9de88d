package email

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	domain "mailsweep/internal/domain/email"
)

var errBoom = errors.New("boom")

type listCall struct {
	query     string
	pageToken string
	pageSize  int64
}

type modifyCall struct {
	ids    []string
	add    []string
	remove []string
}

type fakeProvider struct {
	mu sync.Mutex

	pages   []Page
	listErr error
	metas   map[string]*domain.Message
	metaErr map[string]error

	batchErr  error
	modifyErr map[string]error
	labels    []domain.Label
	labelsErr error

	listCalls   []listCall
	batchCalls  []modifyCall
	modifyCalls []modifyCall
}

func (f *fakeProvider) ListMessageIDs(_ context.Context, query, pageToken string, pageSize int64) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls = append(f.listCalls, listCall{query: query, pageToken: pageToken, pageSize: pageSize})
	if f.listErr != nil {
		return Page{}, f.listErr
	}
	if len(f.pages) == 0 {
		return Page{}, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeProvider) GetMessageMetadata(_ context.Context, id string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.metaErr[id]; err != nil {
		return nil, err
	}
	m, ok := f.metas[id]
	if !ok {
		return nil, fmt.Errorf("message %s not found", id)
	}
	cp := *m
	return &cp, nil
}

func (f *fakeProvider) BatchModify(_ context.Context, ids, add, remove []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batchCalls = append(f.batchCalls, modifyCall{ids: append([]string(nil), ids...), add: add, remove: remove})
	return f.batchErr
}

func (f *fakeProvider) Modify(_ context.Context, id string, add, remove []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.modifyCalls = append(f.modifyCalls, modifyCall{ids: []string{id}, add: add, remove: remove})
	return f.modifyErr[id]
}

func (f *fakeProvider) ListLabels(context.Context) ([]domain.Label, error) {
	return f.labels, f.labelsErr
}

// withMessages registers one message per id/from pair, all on a single page.
func (f *fakeProvider) withMessages(pairs ...string) *fakeProvider {
	if f.metas == nil {
		f.metas = make(map[string]*domain.Message)
	}
	var ids []string
	for i := 0; i+1 < len(pairs); i += 2 {
		id, from := pairs[i], pairs[i+1]
		f.metas[id] = domain.NewMessage(id, "t"+id, from, "subject "+id, "", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		ids = append(ids, id)
	}
	f.pages = append(f.pages, Page{IDs: ids})
	return f
}

type fakeClassifier struct {
	mu        sync.Mutex
	available bool
	result    map[string]domain.Category
	errOn     map[int]error
	calls     [][]SenderContext
}

func (f *fakeClassifier) Available() bool { return f.available }

func (f *fakeClassifier) ClassifySenders(_ context.Context, senders []SenderContext) (map[string]domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, senders)
	if err := f.errOn[len(f.calls)]; err != nil {
		return nil, err
	}
	out := make(map[string]domain.Category)
	for _, sc := range senders {
		if c, ok := f.result[sc.Sender]; ok {
			out[sc.Sender] = c
		}
	}
	return out, nil
}

type memCache struct {
	data   map[string]domain.Category
	getErr error
	puts   int
}

func (c *memCache) Get(_ context.Context, senders []string) (map[string]domain.Category, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	out := make(map[string]domain.Category)
	for _, s := range senders {
		if cat, ok := c.data[s]; ok {
			out[s] = cat
		}
	}
	return out, nil
}

func (c *memCache) Put(_ context.Context, cats map[string]domain.Category) error {
	if c.data == nil {
		c.data = make(map[string]domain.Category)
	}
	for k, v := range cats {
		c.data[k] = v
	}
	c.puts++
	return nil
}

type stubSummarizer struct {
	text string
	err  error
}

func (s stubSummarizer) Summarize(context.Context, int, []domain.SenderStat) (string, error) {
	return s.text, s.err
}

func newTestRecorder() *Recorder {
	r := NewRecorder(zerolog.Nop())
	n := 0
	r.newID = func() string {
		n++
		return fmt.Sprintf("entry-%d", n)
	}
	r.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return r
}
