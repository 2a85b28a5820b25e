package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"launch-radar/internal/domain"
)

// Sentiment labels attached to news items.
const (
	SentimentBullish = "bullish"
	SentimentBearish = "bearish"
	SentimentNeutral = "neutral"
)

const (
	defaultSentimentModel = "gpt-4o-mini"

	// One classification call labels at most this many headlines unless
	// the options say otherwise.
	defaultSentimentBatch = 20

	sentimentSystemPrompt = "You label crypto market headlines. For each numbered headline answer " +
		"with exactly one of: bullish, bearish, neutral. Respond with compact JSON only, " +
		`shaped {"labels":["bullish","neutral",...]}, one label per headline, same order.`
)

// AnnotatorOptions configures a sentiment Annotator.
type AnnotatorOptions struct {
	APIKey   string
	Model    string
	MaxItems int // per-call headline cap
	Logger   *slog.Logger
}

// Annotator labels headlines with market sentiment via a chat model.
// Without an API key it stays disabled and Annotate is a no-op; sentiment
// is garnish, never a reason to lose a headline.
type Annotator struct {
	client   openai.Client
	model    string
	maxItems int
	enabled  bool
	log      *slog.Logger
}

func NewAnnotator(opts AnnotatorOptions) *Annotator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "sentiment")

	model := opts.Model
	if model == "" {
		model = defaultSentimentModel
	}
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = defaultSentimentBatch
	}

	a := &Annotator{model: model, maxItems: maxItems, log: logger}
	if opts.APIKey == "" {
		logger.Info("sentiment annotation disabled: no api key")
		return a
	}
	a.client = openai.NewClient(option.WithAPIKey(opts.APIKey))
	a.enabled = true
	return a
}

// Enabled reports whether annotation will actually happen.
func (a *Annotator) Enabled() bool { return a.enabled }

// Annotate labels items in place, at most the configured cap of them.
// Failures leave sentiments empty and never fail the batch.
func (a *Annotator) Annotate(ctx context.Context, items []*domain.NewsItem) {
	if !a.enabled || len(items) == 0 {
		return
	}

	batch := items
	if len(batch) > a.maxItems {
		batch = batch[:a.maxItems]
	}

	labels, err := a.classify(ctx, batch)
	if err != nil {
		a.log.Warn("sentiment annotation failed", "error", err)
		return
	}

	for i, item := range batch {
		if i < len(labels) {
			item.Sentiment = labels[i]
		}
	}
}

func (a *Annotator) classify(ctx context.Context, items []*domain.NewsItem) ([]string, error) {
	var sb strings.Builder
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, item.Title)
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(sentimentSystemPrompt),
			openai.UserMessage(sb.String()),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sentiment request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("sentiment: empty response")
	}

	return parseSentimentLabels(resp.Choices[0].Message.Content, len(items))
}

// parseSentimentLabels extracts and normalizes the labels array from a
// model answer, tolerating markdown fences around the JSON.
func parseSentimentLabels(content string, want int) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var payload struct {
		Labels []string `json:"labels"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("parse sentiment answer: %w", err)
	}
	if len(payload.Labels) == 0 {
		return nil, fmt.Errorf("sentiment answer has no labels")
	}

	labels := make([]string, 0, want)
	for i, label := range payload.Labels {
		if i == want {
			break
		}
		labels = append(labels, normalizeSentiment(label))
	}
	return labels, nil
}

func normalizeSentiment(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case SentimentBullish, "positive":
		return SentimentBullish
	case SentimentBearish, "negative":
		return SentimentBearish
	default:
		return SentimentNeutral
	}
}
