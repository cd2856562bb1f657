// Package config loads promptwright run configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/promptwright/internal/logging"
	"github.com/fyrsmithlabs/promptwright/internal/telemetry"
)

// SystemPromptPlaceholder is replaced by the top-level system_prompt in
// topic_tree.args.model_system_prompt and data_engine.args.system_prompt.
const SystemPromptPlaceholder = "<system_prompt_placeholder>"

// Config is the full run configuration.
type Config struct {
	SystemPrompt string                    `koanf:"system_prompt"`
	TopicTree    TopicTreeConfig           `koanf:"topic_tree"`
	DataEngine   DataEngineConfig          `koanf:"data_engine"`
	Dataset      DatasetConfig             `koanf:"dataset"`
	HuggingFace  HuggingFaceConfig         `koanf:"huggingface"`
	Providers    map[string]ProviderConfig `koanf:"providers"`
	Logging      logging.Config            `koanf:"logging"`
	Telemetry    telemetry.Config          `koanf:"telemetry"`
}

// TopicTreeConfig configures topic tree construction.
type TopicTreeConfig struct {
	Args   TopicTreeArgs `koanf:"args"`
	SaveAs string        `koanf:"save_as"`
}

// TopicTreeArgs mirrors the topic_tree.args block.
type TopicTreeArgs struct {
	RootPrompt        string  `koanf:"root_prompt"`
	ModelSystemPrompt string  `koanf:"model_system_prompt"`
	TreeDegree        int     `koanf:"tree_degree"`
	TreeDepth         int     `koanf:"tree_depth"`
	Temperature       float64 `koanf:"temperature"`
	Provider          string  `koanf:"provider"`
	Model             string  `koanf:"model"`
}

// DataEngineConfig configures sample generation.
type DataEngineConfig struct {
	Args DataEngineArgs `koanf:"args"`
}

// DataEngineArgs mirrors the data_engine.args block.
type DataEngineArgs struct {
	Instructions string  `koanf:"instructions"`
	SystemPrompt string  `koanf:"system_prompt"`
	Provider     string  `koanf:"provider"`
	Model        string  `koanf:"model"`
	Temperature  float64 `koanf:"temperature"`
	MaxRetries   int     `koanf:"max_retries"`
}

// DatasetConfig configures dataset creation and output.
type DatasetConfig struct {
	Creation DatasetCreation `koanf:"creation"`
	SaveAs   string          `koanf:"save_as"`
}

// DatasetCreation mirrors the dataset.creation block.
type DatasetCreation struct {
	NumSteps  int    `koanf:"num_steps"`
	BatchSize int    `koanf:"batch_size"`
	Provider  string `koanf:"provider"`
	Model     string `koanf:"model"`
	SysMsg    bool   `koanf:"sys_msg"`
}

// HuggingFaceConfig configures the optional Hub upload.
type HuggingFaceConfig struct {
	Repository string   `koanf:"repository"`
	Token      Secret   `koanf:"token"`
	Tags       []string `koanf:"tags"`
	// Endpoint is the Hub base URL.
	Endpoint string `koanf:"endpoint"`
}

// ProviderConfig holds connection settings for one completion backend.
type ProviderConfig struct {
	BaseURL           string   `koanf:"base_url"`
	APIKey            Secret   `koanf:"api_key"`
	Timeout           Duration `koanf:"timeout"`
	RequestsPerMinute float64  `koanf:"requests_per_minute"`
	Burst             int      `koanf:"burst"`
	MaxTokens         int      `koanf:"max_tokens"`
}

// Overrides carries command-line overrides. Zero values mean "not set".
type Overrides struct {
	Provider    string
	Model       string
	Temperature float64
	TreeDegree  int
	TreeDepth   int
	NumSteps    int
	BatchSize   int
}

// TreeSettings is the resolved input for topic tree construction.
type TreeSettings struct {
	RootPrompt   string
	SystemPrompt string
	Degree       int
	Depth        int
	Temperature  float64
	Model        string
}

// EngineSettings is the resolved input for the data engine.
type EngineSettings struct {
	Instructions string
	SystemPrompt string
	Model        string
	Temperature  float64
	MaxRetries   int
	SysMsg       bool
}

// DatasetSettings is the resolved input for a create-data call.
type DatasetSettings struct {
	NumSteps  int
	BatchSize int
	Model     string
}

// ModelString joins provider and model as "provider/model".
func ModelString(provider, model string) string {
	return provider + "/" + model
}

// Tree resolves topic tree settings, applying o on top of the file values.
func (c *Config) Tree(o Overrides) TreeSettings {
	a := c.TopicTree.Args
	s := TreeSettings{
		RootPrompt:   a.RootPrompt,
		SystemPrompt: c.substitute(a.ModelSystemPrompt),
		Degree:       a.TreeDegree,
		Depth:        a.TreeDepth,
		Temperature:  a.Temperature,
		Model:        ModelString(pick(o.Provider, a.Provider), pick(o.Model, a.Model)),
	}
	if o.Temperature != 0 {
		s.Temperature = o.Temperature
	}
	if o.TreeDegree != 0 {
		s.Degree = o.TreeDegree
	}
	if o.TreeDepth != 0 {
		s.Depth = o.TreeDepth
	}
	return s
}

// Engine resolves data engine settings. sys_msg comes from dataset.creation.
func (c *Config) Engine(o Overrides) EngineSettings {
	a := c.DataEngine.Args
	s := EngineSettings{
		Instructions: a.Instructions,
		SystemPrompt: c.substitute(a.SystemPrompt),
		Model:        ModelString(pick(o.Provider, a.Provider), pick(o.Model, a.Model)),
		Temperature:  a.Temperature,
		MaxRetries:   a.MaxRetries,
		SysMsg:       c.Dataset.Creation.SysMsg,
	}
	if o.Temperature != 0 {
		s.Temperature = o.Temperature
	}
	return s
}

// Creation resolves the create-data parameters. The model comes from the
// overrides only when both provider and model were given.
func (c *Config) Creation(o Overrides) DatasetSettings {
	d := c.Dataset.Creation
	s := DatasetSettings{
		NumSteps:  d.NumSteps,
		BatchSize: d.BatchSize,
		Model:     ModelString(d.Provider, d.Model),
	}
	if o.Provider != "" && o.Model != "" {
		s.Model = ModelString(o.Provider, o.Model)
	}
	if o.NumSteps != 0 {
		s.NumSteps = o.NumSteps
	}
	if o.BatchSize != 0 {
		s.BatchSize = o.BatchSize
	}
	return s
}

// Provider returns settings for a named provider, or the zero value.
func (c *Config) Provider(name string) ProviderConfig {
	return c.Providers[strings.ToLower(name)]
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	a := c.TopicTree.Args
	if a.TreeDegree < 1 {
		return fmt.Errorf("topic_tree.args.tree_degree must be >= 1, got %d", a.TreeDegree)
	}
	if a.TreeDepth < 0 {
		return fmt.Errorf("topic_tree.args.tree_depth must be >= 0, got %d", a.TreeDepth)
	}
	if a.Temperature < 0 || c.DataEngine.Args.Temperature < 0 {
		return fmt.Errorf("temperature must be >= 0")
	}
	if c.DataEngine.Args.MaxRetries < 1 {
		return fmt.Errorf("data_engine.args.max_retries must be >= 1, got %d", c.DataEngine.Args.MaxRetries)
	}
	if c.Dataset.Creation.NumSteps < 1 {
		return fmt.Errorf("dataset.creation.num_steps must be >= 1, got %d", c.Dataset.Creation.NumSteps)
	}
	if c.Dataset.Creation.BatchSize < 1 {
		return fmt.Errorf("dataset.creation.batch_size must be >= 1, got %d", c.Dataset.Creation.BatchSize)
	}
	if c.Dataset.SaveAs == "" || c.TopicTree.SaveAs == "" {
		return fmt.Errorf("dataset.save_as and topic_tree.save_as must be set")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

func (c *Config) substitute(s string) string {
	return strings.ReplaceAll(s, SystemPromptPlaceholder, c.SystemPrompt)
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
