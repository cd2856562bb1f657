package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
system_prompt: "You are a helpful assistant."
topic_tree:
  args:
    root_prompt: "Creative writing prompts"
    model_system_prompt: "<system_prompt_placeholder>"
    tree_degree: 5
    tree_depth: 3
    temperature: 0.6
    provider: openai
    model: gpt-4o-mini
  save_as: tree.jsonl
data_engine:
  args:
    instructions: "Write short stories."
    system_prompt: "<system_prompt_placeholder> Be creative."
    provider: ollama
    model: llama3
    temperature: 0.8
    max_retries: 4
dataset:
  creation:
    num_steps: 10
    batch_size: 2
    provider: ollama
    model: llama3
    sys_msg: false
  save_as: out.jsonl
huggingface:
  repository: user/stories
  token: hf_secretsecret
  tags: [fiction, synthetic]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "You are a helpful assistant.", cfg.SystemPrompt)
	assert.Equal(t, 5, cfg.TopicTree.Args.TreeDegree)
	assert.Equal(t, 3, cfg.TopicTree.Args.TreeDepth)
	assert.Equal(t, "tree.jsonl", cfg.TopicTree.SaveAs)
	assert.Equal(t, 4, cfg.DataEngine.Args.MaxRetries)
	assert.False(t, cfg.Dataset.Creation.SysMsg)
	assert.Equal(t, "user/stories", cfg.HuggingFace.Repository)
	assert.Equal(t, "hf_secretsecret", cfg.HuggingFace.Token.Value())
	assert.Equal(t, []string{"fiction", "synthetic"}, cfg.HuggingFace.Tags)

	// Providers block is untouched by the file and keeps its defaults.
	assert.Equal(t, "http://localhost:11434", cfg.Provider("ollama").BaseURL)
	assert.Equal(t, 120*time.Second, cfg.Provider("ollama").Timeout.Duration())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.yaml", "system_prompt: hi\n"))
	require.NoError(t, err)

	a := cfg.TopicTree.Args
	assert.Equal(t, 3, a.TreeDegree)
	assert.Equal(t, 2, a.TreeDepth)
	assert.Equal(t, 0.7, a.Temperature)
	assert.Equal(t, "ollama", a.Provider)
	assert.Equal(t, "mistral:latest", a.Model)
	assert.Equal(t, 0.9, cfg.DataEngine.Args.Temperature)
	assert.Equal(t, 2, cfg.DataEngine.Args.MaxRetries)
	assert.Equal(t, 5, cfg.Dataset.Creation.NumSteps)
	assert.Equal(t, 1, cfg.Dataset.Creation.BatchSize)
	assert.True(t, cfg.Dataset.Creation.SysMsg)
	assert.Equal(t, "dataset.jsonl", cfg.Dataset.SaveAs)
	assert.Equal(t, "topic_tree.jsonl", cfg.TopicTree.SaveAs)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_TOML(t *testing.T) {
	content := `
system_prompt = "Teach Go."

[topic_tree]
save_as = "tree.jsonl"

[topic_tree.args]
root_prompt = "Go concurrency"
tree_degree = 4
tree_depth = 1

[dataset.creation]
num_steps = 2
batch_size = 2
`
	cfg, err := Load(writeFile(t, "config.toml", content))
	require.NoError(t, err)
	assert.Equal(t, "Teach Go.", cfg.SystemPrompt)
	assert.Equal(t, "Go concurrency", cfg.TopicTree.Args.RootPrompt)
	assert.Equal(t, 4, cfg.TopicTree.Args.TreeDegree)
	assert.Equal(t, 1, cfg.TopicTree.Args.TreeDepth)
	assert.Equal(t, 2, cfg.Dataset.Creation.NumSteps)
	assert.True(t, cfg.Dataset.Creation.SysMsg)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PROMPTWRIGHT_DATASET__CREATION__NUM_STEPS", "42")
	t.Setenv("PROMPTWRIGHT_TOPIC_TREE__ARGS__MODEL", "llama3.1")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(writeFile(t, "config.yaml", sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Dataset.Creation.NumSteps)
	assert.Equal(t, "llama3.1", cfg.TopicTree.Args.Model)
	assert.Equal(t, "sk-test", cfg.Provider("openai").APIKey.Value())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")

	_, err = Load(writeFile(t, "bad.yaml", "topic_tree: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")

	_, err = Load(writeFile(t, "invalid.yaml", "dataset:\n  creation:\n    batch_size: 0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size")

	_, err = Load(t.TempDir())
	require.Error(t, err)
}

func TestResolve_PlaceholderAndOverrides(t *testing.T) {
	cfg, err := LoadBytes([]byte(sampleYAML))
	require.NoError(t, err)

	tree := cfg.Tree(Overrides{})
	assert.Equal(t, "You are a helpful assistant.", tree.SystemPrompt)
	assert.Equal(t, "openai/gpt-4o-mini", tree.Model)
	assert.Equal(t, 0.6, tree.Temperature)

	engine := cfg.Engine(Overrides{})
	assert.Equal(t, "You are a helpful assistant. Be creative.", engine.SystemPrompt)
	assert.Equal(t, "ollama/llama3", engine.Model)
	assert.False(t, engine.SysMsg)

	o := Overrides{Provider: "anthropic", Model: "claude-x", Temperature: 0.1, TreeDegree: 2, TreeDepth: 1, NumSteps: 7, BatchSize: 3}
	tree = cfg.Tree(o)
	assert.Equal(t, "anthropic/claude-x", tree.Model)
	assert.Equal(t, 2, tree.Degree)
	assert.Equal(t, 1, tree.Depth)
	assert.Equal(t, 0.1, tree.Temperature)

	engine = cfg.Engine(o)
	assert.Equal(t, "anthropic/claude-x", engine.Model)
	assert.Equal(t, 0.1, engine.Temperature)

	creation := cfg.Creation(o)
	assert.Equal(t, DatasetSettings{NumSteps: 7, BatchSize: 3, Model: "anthropic/claude-x"}, creation)

	// A provider alone does not replace the dataset model.
	creation = cfg.Creation(Overrides{Provider: "openai"})
	assert.Equal(t, "ollama/llama3", creation.Model)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "ollama/mistral:latest", cfg.Creation(Overrides{}).Model)
}

func TestSecret(t *testing.T) {
	s := Secret("hf_abc")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "hf_abc", s.Value())
	assert.True(t, s.IsSet())
	assert.False(t, Secret("").IsSet())
	assert.Equal(t, "", Secret("").String())
	assert.Equal(t, "[REDACTED]", s.Mask())
	assert.Equal(t, "hf_a****", Secret("hf_abcdefghij").Mask())

	b, err := json.Marshal(struct{ Token Secret }{s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Token":"[REDACTED]"}`, string(b))
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())
	assert.Error(t, d.UnmarshalText([]byte("-1s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestTOMLParser_RoundTrip(t *testing.T) {
	p := TOML()
	out, err := p.Marshal(map[string]interface{}{"system_prompt": "x"})
	require.NoError(t, err)
	m, err := p.Unmarshal(out)
	require.NoError(t, err)
	assert.Equal(t, "x", m["system_prompt"])
}

func TestLoad_Examples(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "examples", "*.*"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, p := range paths {
		t.Run(filepath.Base(p), func(t *testing.T) {
			cfg, err := Load(p)
			require.NoError(t, err)
			tree := cfg.Tree(Overrides{})
			assert.NotEmpty(t, tree.RootPrompt)
			assert.NotContains(t, tree.SystemPrompt, SystemPromptPlaceholder)
			assert.NotContains(t, cfg.Engine(Overrides{}).SystemPrompt, SystemPromptPlaceholder)
		})
	}
}
