package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/promptwright/internal/config"
	"github.com/fyrsmithlabs/promptwright/internal/telemetry"
)

func TestRouter_DispatchesByProvider(t *testing.T) {
	ollama := NewScriptedClient(Texts("from ollama")...)
	openai := NewScriptedClient(Texts("from openai")...)
	r := NewRouter(nil, WithBackend("ollama", ollama), WithBackend("openai", openai))

	text, err := r.Complete(context.Background(), UserRequest("ollama/mistral:latest", "", "hi", 0.2))
	require.NoError(t, err)
	assert.Equal(t, "from ollama", text)

	text, err = r.Complete(context.Background(), UserRequest("OpenAI/gpt-4o", "", "hi", 0.2))
	require.NoError(t, err)
	assert.Equal(t, "from openai", text)

	require.Len(t, ollama.Calls(), 1)
	assert.Equal(t, "mistral:latest", ollama.Calls()[0].Model)
	assert.Equal(t, "gpt-4o", openai.Calls()[0].Model)
}

func TestRouter_InvalidModel(t *testing.T) {
	_, err := NewRouter(nil).Complete(context.Background(), UserRequest("mistral", "", "hi", 0))
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestRouter_UnknownProvider(t *testing.T) {
	_, err := NewRouter(nil).Complete(context.Background(), UserRequest("nope/x", "", "hi", 0))
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRouter_FactoryReceivesProviderConfig(t *testing.T) {
	cfg := config.Default()

	var (
		gotProvider string
		gotOpts     Options
		built       int
	)
	backend := NewScriptedClient(Texts("a", "b")...)
	r := NewRouter(cfg, WithFactory(func(provider string, opts Options) (Client, error) {
		gotProvider, gotOpts = provider, opts
		built++
		return backend, nil
	}))

	for range 2 {
		_, err := r.Complete(context.Background(), UserRequest("ollama/mistral:latest", "", "hi", 0))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, built)
	assert.Equal(t, "ollama", gotProvider)
	assert.Equal(t, "http://localhost:11434", gotOpts.BaseURL)
	assert.Equal(t, 1000, gotOpts.MaxTokens)
}

func TestRouter_Instrumented(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	backend := NewScriptedClient(Texts("a", "b", "c")...)
	r := NewRouter(nil,
		WithFactory(func(string, Options) (Client, error) { return backend, nil }),
		WithTelemetry(tt.Tracer("test"), tt.Metrics()),
	)

	_, err := r.Complete(context.Background(), UserRequest("ollama/m", "", "hi", 0.5))
	require.NoError(t, err)

	tt.AssertSpanExists(t, "llm.complete")
	tt.AssertSpanAttribute(t, "llm.complete", "llm.provider", attribute.StringValue("ollama"))
	tt.AssertSpanAttribute(t, "llm.complete", "llm.model", attribute.StringValue("m"))

	families, err := tt.Metrics().Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "promptwright_llm_completion_duration_seconds" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestInstrument_Batch(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	backend := NewScriptedClient(Texts("a", "b")...)
	c := Instrument(backend, "ollama", tt.Tracer("test"), tt.Metrics())

	out, err := BatchComplete(context.Background(), c, []Request{
		UserRequest("m", "", "1", 0),
		UserRequest("m", "", "2", 0),
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	tt.AssertSpanExists(t, "llm.batch_complete")
	tt.AssertSpanAttribute(t, "llm.batch_complete", "llm.batch_size", attribute.IntValue(2))
	assert.Empty(t, tt.SpansNamed("llm.complete"))
}

func TestRouter_BatchUsesInstrumentedBatcher(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	backend := NewScriptedClient(Texts("a", "b")...)
	r := NewRouter(nil,
		WithFactory(func(string, Options) (Client, error) { return backend, nil }),
		WithTelemetry(tt.Tracer("test"), tt.Metrics()),
	)

	out, err := BatchComplete(context.Background(), r, []Request{
		UserRequest("ollama/m", "", "1", 0),
		UserRequest("ollama/m", "", "2", 0),
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	tt.AssertSpanExists(t, "llm.batch_complete")
	tt.AssertSpanAttribute(t, "llm.batch_complete", "llm.provider", attribute.StringValue("ollama"))
	assert.Empty(t, tt.SpansNamed("llm.complete"))
	for _, call := range backend.Calls() {
		assert.Equal(t, "m", call.Model)
	}
}

func TestRouter_BatchMixedProviders(t *testing.T) {
	ollama := NewScriptedClient(Texts("from ollama")...)
	openai := NewScriptedClient(Texts("from openai")...)
	r := NewRouter(nil, WithBackend("ollama", ollama), WithBackend("openai", openai))

	out, err := r.BatchComplete(context.Background(), []Request{
		UserRequest("ollama/mistral", "", "1", 0),
		UserRequest("openai/gpt-4o", "", "2", 0),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"from ollama", "from openai"}, out)
}

func TestRouter_BatchInvalidModel(t *testing.T) {
	_, err := NewRouter(nil).BatchComplete(context.Background(), []Request{UserRequest("mistral", "", "1", 0)})
	assert.ErrorIs(t, err, ErrInvalidModel)
}
