package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"

	appemail "mailsweep/internal/application/email"
	domain "mailsweep/internal/domain/email"
)

const summarySenders = 10

// Client classifies senders and writes deletion summaries with a chat model.
type Client struct {
	api   openai.Client
	model string
	log   zerolog.Logger
}

func NewClient(apiKey, model string, log zerolog.Logger, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is not set")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{
		api:   openai.NewClient(opts...),
		model: model,
		log:   log,
	}, nil
}

func (c *Client) Available() bool { return true }

// ClassifySenders returns a category for each sender the model placed.
// Senders the model leaves out are absent from the map.
func (c *Client) ClassifySenders(ctx context.Context, senders []appemail.SenderContext) (map[string]domain.Category, error) {
	if len(senders) == 0 {
		return map[string]domain.Category{}, nil
	}

	payload, err := json.MarshalIndent(senders, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode senders: %w", err)
	}

	prompt := fmt.Sprintf(`Analyze these email senders and categorize them into groups.
Each entry has the sender address and up to two sample subjects.

Senders:
%s

Categorize into these groups:
- newsletter: Regular newsletters and subscriptions
- promotional: Marketing, sales, deals, promotions
- social: Social media notifications (LinkedIn, Twitter, Facebook, etc.)
- automated: System notifications, alerts, no-reply addresses
- potentially_important: Might be from real people or important services

Return a JSON object with category names as keys and arrays of sender emails as values.
Only include senders in one category. Return ONLY valid JSON, without markdown and without backticks.`, payload)

	text, err := c.complete(ctx, prompt, 0.3, 0)
	if err != nil {
		return nil, err
	}

	cats, err := parseCategories(text)
	if err != nil {
		c.log.Warn().Err(err).Str("raw", text).Msg("cannot parse classification")
		return nil, err
	}
	return cats, nil
}

type senderCount struct {
	Sender string `json:"sender"`
	Count  int    `json:"count"`
}

func (c *Client) Summarize(ctx context.Context, total int, stats []domain.SenderStat) (string, error) {
	top := make([]senderCount, 0, summarySenders)
	for _, s := range stats[:min(summarySenders, len(stats))] {
		top = append(top, senderCount{Sender: s.Sender, Count: s.Count})
	}
	payload, err := json.MarshalIndent(top, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode senders: %w", err)
	}

	prompt := fmt.Sprintf(`Create a brief, friendly summary of emails about to be deleted.

Total emails: %d
Top senders:
%s

Write 2-3 sentences summarizing:
1. How many emails will be deleted
2. Main sources (group similar senders)
3. Any recommendation (e.g., if many are from newsletters, suggest unsubscribing)

Keep it concise and helpful.`, total, payload)

	return c.complete(ctx, prompt, 0.7, 200)
}

func (c *Client) complete(ctx context.Context, prompt string, temperature float64, maxTokens int64) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(temperature),
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(maxTokens)
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: openai api error: %w", domain.ErrClassificationUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty LLM response", domain.ErrClassificationUnavailable)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// parseCategories reads {"category": ["sender", ...]} and inverts it.
func parseCategories(text string) (map[string]domain.Category, error) {
	text = stripFences(text)

	var groups map[string][]string
	if err := json.Unmarshal([]byte(text), &groups); err != nil {
		return nil, fmt.Errorf("%w: cannot parse JSON: %w", domain.ErrClassificationUnavailable, err)
	}

	out := make(map[string]domain.Category)
	for name, senders := range groups {
		cat := domain.ParseCategory(name)
		for _, s := range senders {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			if _, seen := out[s]; !seen {
				out[s] = cat
			}
		}
	}
	return out, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
