package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/promptwright/internal/dataset"
	"github.com/fyrsmithlabs/promptwright/internal/llm"
	"github.com/fyrsmithlabs/promptwright/internal/prompts"
	"github.com/fyrsmithlabs/promptwright/internal/telemetry"
	"github.com/fyrsmithlabs/promptwright/internal/topictree"
)

const validSample = `{"messages": [{"role": "user", "content": "What is Go?"}, {"role": "assistant", "content": "A language."}]}`

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.SystemPrompt = "You are a helpful tutor."
	cfg.Instructions = "Keep answers short."
	cfg.Model = "ollama/mistral:latest"
	cfg.InterruptedPath = filepath.Join(dir, DefaultInterruptedPath)
	cfg.ErrorPath = filepath.Join(dir, DefaultErrorPath)
	return cfg
}

func newEngine(t *testing.T, client llm.Client, cfg Config, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	e, err := New(client, cfg, opts...)
	require.NoError(t, err)
	return e
}

func always(text string) *llm.ScriptedClient {
	return &llm.ScriptedClient{Handler: func(context.Context, llm.Request) (string, error) {
		return text, nil
	}}
}

func treeOf(n int) *topictree.Tree {
	t := &topictree.Tree{}
	for i := range n {
		t.Paths = append(t.Paths, []string{"root", fmt.Sprintf("topic-%02d", i)})
	}
	return t
}

type recordingObserver struct {
	mu       sync.Mutex
	total    int
	progress int
	errors   int
}

func (r *recordingObserver) OnStart(total int) { r.total = total }
func (r *recordingObserver) OnProgress(added int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress += added
}
func (r *recordingObserver) OnStepError(int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors++
}

func TestNew_RequiresModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Model = "   "
	_, err := New(always(validSample), cfg)
	assert.ErrorIs(t, err, ErrModelRequired)
}

func TestCreateData_RequiresNumSteps(t *testing.T) {
	client := always(validSample)
	e := newEngine(t, client, testConfig(t))

	_, err := e.CreateData(context.Background(), CreateOptions{BatchSize: 2})
	assert.ErrorIs(t, err, ErrNumStepsRequired)
	assert.EqualError(t, err, "num_steps must be specified")
	assert.Zero(t, client.CallCount())
}

func TestCreateData_OverCapacityFailsBeforeAnyCall(t *testing.T) {
	client := always(validSample)
	e := newEngine(t, client, testConfig(t))

	ds, err := e.CreateData(context.Background(), CreateOptions{
		NumSteps:  5,
		BatchSize: 2,
		Tree:      treeOf(9),
	})
	assert.Nil(t, ds)
	require.ErrorIs(t, err, ErrExceedsTreePaths)
	assert.EqualError(t, err, "required samples (10) exceeds available tree paths (9)")
	assert.Zero(t, client.CallCount())
}

func TestCreateData_BatchOfN(t *testing.T) {
	for _, n := range []int{1, 3, 8} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			client := always(validSample)
			e := newEngine(t, client, testConfig(t))

			ds, err := e.CreateData(context.Background(), CreateOptions{NumSteps: 1, BatchSize: n})
			require.NoError(t, err)
			assert.Equal(t, n, ds.Len())
			assert.Equal(t, n, client.CallCount())
			assert.Zero(t, e.Summary().Total)
		})
	}
}

func TestCreateData_SystemMessage(t *testing.T) {
	cfg := testConfig(t)
	e := newEngine(t, always("Here you go:\n```json\n"+validSample+"\n```"), cfg)

	ds, err := e.CreateData(context.Background(), CreateOptions{NumSteps: 1, BatchSize: 1})
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	msgs := ds.At(0).Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, dataset.RoleSystem, msgs[0].Role)
	assert.Equal(t, cfg.SystemPrompt, msgs[0].Content)
	assert.Equal(t, dataset.RoleUser, msgs[1].Role)
}

func TestCreateData_SystemMessageNotDuplicated(t *testing.T) {
	withSys := `{"messages": [{"role": "user", "content": "q"}, {"role": "system", "content": "own"}, {"role": "assistant", "content": "a"}]}`
	e := newEngine(t, always(withSys), testConfig(t))

	ds, err := e.CreateData(context.Background(), CreateOptions{NumSteps: 1, BatchSize: 1})
	require.NoError(t, err)
	msgs := ds.At(0).Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, dataset.RoleUser, msgs[0].Role)
	assert.Equal(t, "own", msgs[1].Content)
}

func TestCreateData_SysMsgOverride(t *testing.T) {
	off := false
	e := newEngine(t, always(validSample), testConfig(t))

	ds, err := e.CreateData(context.Background(), CreateOptions{NumSteps: 1, BatchSize: 1, SysMsg: &off})
	require.NoError(t, err)
	assert.False(t, ds.At(0).HasRole(dataset.RoleSystem))
}

func TestCreateData_RequestShape(t *testing.T) {
	cfg := testConfig(t)
	cfg.Temperature = 0.9
	client := always(validSample)
	e := newEngine(t, client, cfg)

	_, err := e.CreateData(context.Background(), CreateOptions{NumSteps: 1, BatchSize: 1, Model: " openai/gpt-4o "})
	require.NoError(t, err)

	req := client.Calls()[0]
	assert.Equal(t, "openai/gpt-4o", req.Model)
	assert.InDelta(t, 0.9, req.Temperature, 1e-9)
	require.Len(t, req.Messages, 1)

	p := req.Messages[0].Content
	assert.Contains(t, p, prompts.EngineJSONInstructions+cfg.SystemPrompt)
	assert.Contains(t, p, "<instructions>\nKeep answers short.\n</instructions>")
	assert.NotContains(t, p, "<examples>")
	assert.NotContains(t, p, "following subtopics")
}

func TestCreateData_TreePathsDrawnWithoutReplacement(t *testing.T) {
	client := always(validSample)
	obs := &recordingObserver{}
	e := newEngine(t, client, testConfig(t), WithObserver(obs))

	ds, err := e.CreateData(context.Background(), CreateOptions{
		NumSteps:  3,
		BatchSize: 2,
		Tree:      treeOf(10),
	})
	require.NoError(t, err)
	assert.Equal(t, 6, ds.Len())
	assert.Equal(t, 6, obs.total)
	assert.Equal(t, 6, obs.progress)

	seen := map[string]bool{}
	for _, req := range client.Calls() {
		p := req.Messages[0].Content
		i := strings.Index(p, "following subtopics: ")
		require.GreaterOrEqual(t, i, 0)
		topic := p[i+len("following subtopics: "):]
		topic = topic[:strings.IndexByte(topic, '\n')]
		assert.True(t, strings.HasPrefix(topic, "root -> topic-"), topic)
		assert.False(t, seen[topic], "path %q used twice", topic)
		seen[topic] = true
	}
	assert.Len(t, seen, 6)
}

func TestCreateData_TreeExactCapacity(t *testing.T) {
	client := always(validSample)
	e := newEngine(t, client, testConfig(t))

	ds, err := e.CreateData(context.Background(), CreateOptions{NumSteps: 3, BatchSize: 3, Tree: treeOf(9)})
	require.NoError(t, err)
	assert.Equal(t, 9, ds.Len())
	assert.Equal(t, 9, client.CallCount())
}

func TestCreateData_RetriesFailedCall(t *testing.T) {
	client := llm.NewScriptedClient(llm.Reply{Err: errors.New("connection reset")}, llm.Reply{Text: validSample})
	obs := &recordingObserver{}
	e := newEngine(t, client, testConfig(t), WithObserver(obs))

	ds, err := e.CreateData(context.Background(), CreateOptions{NumSteps: 1, BatchSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, 2, client.CallCount())
	assert.Equal(t, 1, obs.errors)
	assert.Zero(t, e.Summary().Total)
}

func TestCreateData_ExhaustedRetriesAreRecorded(t *testing.T) {
	client := &llm.ScriptedClient{Handler: func(context.Context, llm.Request) (string, error) {
		return "", errors.New("request timeout")
	}}
	cfg := testConfig(t)
	cfg.MaxRetries = 2
	e := newEngine(t, client, cfg)

	ds, err := e.CreateData(context.Background(), CreateOptions{NumSteps: 3, BatchSize: 1})
	require.NoError(t, err)
	assert.Zero(t, ds.Len())
	assert.Equal(t, 6, client.CallCount())

	s := e.Summary()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 3, s.ByCategory[CategoryAPI])
	assert.Contains(t, s.Examples[CategoryAPI][0], "request timeout")
}

func TestCreateData_InvalidSamplesDoNotRetry(t *testing.T) {
	responses := []string{
		"",
		"Sorry, I cannot do that.",
		`{"messages": [ {"role": "user"`,
		`{"messages": [{"role": "bot", "content": "x"}]}`,
		`{}`,
		validSample,
	}
	var n atomic.Int32
	client := &llm.ScriptedClient{Handler: func(context.Context, llm.Request) (string, error) {
		return responses[int(n.Add(1))-1], nil
	}}
	e := newEngine(t, client, testConfig(t))

	ds, err := e.CreateData(context.Background(), CreateOptions{NumSteps: 1, BatchSize: len(responses)})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, len(responses), client.CallCount())

	s := e.Summary()
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 1, s.ByCategory[CategoryEmpty])
	assert.Equal(t, 1, s.ByCategory[CategoryMalformed])
	assert.Equal(t, 2, s.ByCategory[CategoryJSONParsing])
	assert.Equal(t, 1, s.ByCategory[CategoryInvalidSchema])
	assert.True(t, strings.HasPrefix(s.Examples[CategoryInvalidSchema][0], "Invalid sample format: "))
	assert.Len(t, ds.Failed(), 1)
}

func TestCreateData_Examples(t *testing.T) {
	pool := dataset.New()
	for i := range 3 {
		require.NoError(t, pool.Append(dataset.Sample{Messages: []dataset.Message{
			{Role: dataset.RoleUser, Content: fmt.Sprintf("example question %d", i)},
		}}))
	}
	cfg := testConfig(t)
	cfg.ExampleData = pool
	cfg.NumExampleDemonstrations = 2
	client := always(validSample)
	e := newEngine(t, client, cfg)

	_, err := e.CreateData(context.Background(), CreateOptions{NumSteps: 1, BatchSize: 1})
	require.NoError(t, err)

	p := client.Calls()[0].Messages[0].Content
	assert.Contains(t, p, "<examples>")
	assert.Contains(t, p, "Example 1:")
	assert.Contains(t, p, "Example 2:")
	assert.NotContains(t, p, "Example 3:")
	assert.Equal(t, 2, strings.Count(p, "example question"))
}

func TestCreateData_TooFewExamplesIsFatal(t *testing.T) {
	pool := dataset.New()
	require.NoError(t, pool.Append(dataset.Sample{Messages: []dataset.Message{{Role: dataset.RoleUser, Content: "x"}}}))
	cfg := testConfig(t)
	cfg.ExampleData = pool
	cfg.NumExampleDemonstrations = 3
	client := always(validSample)
	e := newEngine(t, client, cfg)

	ds, err := e.CreateData(context.Background(), CreateOptions{NumSteps: 1, BatchSize: 1})
	require.ErrorIs(t, err, ErrNotEnoughExamples)
	require.NotNil(t, ds)
	assert.Zero(t, client.CallCount())

	_, statErr := os.Stat(cfg.ErrorPath)
	assert.NoError(t, statErr)
}

func TestCreateData_PanicIsFatal(t *testing.T) {
	cfg := testConfig(t)
	e := newEngine(t, always(validSample), cfg, WithObserver(&panicOnSecondProgress{}))

	ds, err := e.CreateData(context.Background(), CreateOptions{NumSteps: 3, BatchSize: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation panicked")
	assert.Equal(t, 2, ds.Len())

	saved, err := dataset.FromJSONL(cfg.ErrorPath)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Len())
}

type panicOnSecondProgress struct {
	NopObserver
	calls int
}

func (p *panicOnSecondProgress) OnProgress(int) {
	p.calls++
	if p.calls == 2 {
		panic("observer exploded")
	}
}

func TestCreateData_InterruptSavesAndReturns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	client := &llm.ScriptedClient{Handler: func(ctx context.Context, _ llm.Request) (string, error) {
		if calls.Add(1) == 2 {
			cancel()
			return "", ctx.Err()
		}
		return validSample, nil
	}}
	cfg := testConfig(t)
	e := newEngine(t, client, cfg)

	ds, err := e.CreateData(ctx, CreateOptions{NumSteps: 4, BatchSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, 2, client.CallCount())
	assert.Zero(t, e.Summary().Total)

	saved, err := dataset.FromJSONL(cfg.InterruptedPath)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Len())
}

func TestCreateData_Telemetry(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	e := newEngine(t, always(validSample), testConfig(t), WithTelemetry(tt.Tracer("test"), tt.Metrics()))

	_, err := e.CreateData(context.Background(), CreateOptions{NumSteps: 2, BatchSize: 1})
	require.NoError(t, err)

	tt.AssertSpanExists(t, "engine.create_data")
	assert.Len(t, tt.SpansNamed("engine.step"), 2)
}

func TestCreateData_FreshRegistryPerRun(t *testing.T) {
	var n atomic.Int32
	client := &llm.ScriptedClient{Handler: func(context.Context, llm.Request) (string, error) {
		if n.Add(1) == 1 {
			return "nope", nil
		}
		return validSample, nil
	}}
	e := newEngine(t, client, testConfig(t))

	_, err := e.CreateData(context.Background(), CreateOptions{NumSteps: 1, BatchSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, e.Summary().Total)

	_, err = e.CreateData(context.Background(), CreateOptions{NumSteps: 1, BatchSize: 1})
	require.NoError(t, err)
	assert.Zero(t, e.Summary().Total)
}

func TestCreateData_DefaultBatchSize(t *testing.T) {
	client := always(validSample)
	e := newEngine(t, client, testConfig(t))

	ds, err := e.CreateData(context.Background(), CreateOptions{NumSteps: 1})
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, ds.Len())
}
