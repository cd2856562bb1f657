package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"golang.org/x/time/rate"
)

// modelClient adapts a langchaingo model to Client.
type modelClient struct {
	model     llms.Model
	timeout   time.Duration
	maxTokens int
	limiter   *rate.Limiter
}

// NewOpenAI creates a client backed by langchaingo's OpenAI model. BaseURL
// may point at any OpenAI-compatible server.
func NewOpenAI(opts Options) (Client, error) {
	opts = opts.withDefaults()

	var lopts []openai.Option
	if opts.APIKey != "" {
		lopts = append(lopts, openai.WithToken(opts.APIKey))
	}
	if opts.BaseURL != "" {
		lopts = append(lopts, openai.WithBaseURL(opts.BaseURL))
	}

	m, err := openai.New(lopts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}
	return NewModelClient(m, opts), nil
}

// NewOllama creates a client backed by langchaingo's Ollama model.
func NewOllama(opts Options) (Client, error) {
	opts = opts.withDefaults()

	var lopts []ollama.Option
	if opts.BaseURL != "" {
		lopts = append(lopts, ollama.WithServerURL(opts.BaseURL))
	}

	m, err := ollama.New(lopts...)
	if err != nil {
		return nil, fmt.Errorf("creating Ollama client: %w", err)
	}
	return NewModelClient(m, opts), nil
}

// NewModelClient wraps any langchaingo model.
func NewModelClient(m llms.Model, opts Options) Client {
	opts = opts.withDefaults()
	return &modelClient{
		model:     m,
		timeout:   opts.Timeout,
		maxTokens: opts.MaxTokens,
		limiter:   opts.limiter(),
	}
}

func (c *modelClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	resp, err := c.model.GenerateContent(ctx, toMessageContent(req),
		llms.WithModel(req.Model),
		llms.WithTemperature(req.Temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}

func toMessageContent(req Request) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.System != "" {
		out = append(out, llms.TextParts(schema.ChatMessageTypeSystem, req.System))
	}
	for _, m := range req.Messages {
		out = append(out, llms.TextParts(messageType(m.Role), m.Content))
	}
	return out
}

func messageType(role string) schema.ChatMessageType {
	switch role {
	case RoleSystem:
		return schema.ChatMessageTypeSystem
	case RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}

var _ Client = (*modelClient)(nil)
