package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// fakeModel is an llms.Model that records what it was asked.
type fakeModel struct {
	reply    string
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.reply == "" {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestModelClient_Complete(t *testing.T) {
	m := &fakeModel{reply: `{"messages": []}`}
	c := NewModelClient(m, Options{MaxTokens: 512})

	text, err := c.Complete(context.Background(), Request{
		Model:  "mistral:latest",
		System: "sys",
		Messages: []Message{
			{Role: RoleUser, Content: "u"},
			{Role: RoleAssistant, Content: "a"},
		},
		Temperature: 0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"messages": []}`, text)

	assert.Equal(t, "mistral:latest", m.opts.Model)
	assert.InDelta(t, 0.9, m.opts.Temperature, 1e-9)
	assert.Equal(t, 512, m.opts.MaxTokens)

	require.Len(t, m.messages, 3)
	assert.Equal(t, schema.ChatMessageTypeSystem, m.messages[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, m.messages[1].Role)
	assert.Equal(t, schema.ChatMessageTypeAI, m.messages[2].Role)
}

func TestModelClient_RequestMaxTokensWins(t *testing.T) {
	m := &fakeModel{reply: "x"}
	c := NewModelClient(m, Options{MaxTokens: 512})

	_, err := c.Complete(context.Background(), Request{Model: "m", MaxTokens: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1000, m.opts.MaxTokens)
}

func TestModelClient_Errors(t *testing.T) {
	boom := errors.New("timeout talking to server")
	_, err := NewModelClient(&fakeModel{err: boom}, Options{}).Complete(context.Background(), Request{Model: "m"})
	assert.ErrorIs(t, err, boom)

	_, err = NewModelClient(&fakeModel{}, Options{}).Complete(context.Background(), Request{Model: "m"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewOllama(t *testing.T) {
	c, err := NewOllama(Options{BaseURL: "http://localhost:11434"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestNewOpenAI(t *testing.T) {
	c, err := NewOpenAI(Options{APIKey: "sk-test", BaseURL: "http://localhost:9999/v1"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}
