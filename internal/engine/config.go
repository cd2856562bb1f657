package engine

import (
	"github.com/fyrsmithlabs/promptwright/internal/config"
	"github.com/fyrsmithlabs/promptwright/internal/dataset"
	"github.com/fyrsmithlabs/promptwright/internal/topictree"
)

const (
	DefaultTemperature              = 0.2
	DefaultMaxRetries               = 3
	DefaultNumExampleDemonstrations = 3
	DefaultBatchSize                = 10
	DefaultInterruptedPath          = "interrupted_dataset.jsonl"
	DefaultErrorPath                = "error_dataset.jsonl"
)

// Config holds the engine settings that stay fixed across runs.
type Config struct {
	Instructions string
	// SystemPrompt is the prompt of the model being trained. It is placed
	// in generated samples as is and prefixed with JSON instructions when
	// sent to the generating model.
	SystemPrompt             string
	Model                    string
	Temperature              float64
	MaxRetries               int
	NumExampleDemonstrations int
	ExampleData              *dataset.Dataset
	SysMsg                   bool
	InterruptedPath          string
	ErrorPath                string
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	return Config{
		Temperature:              DefaultTemperature,
		MaxRetries:               DefaultMaxRetries,
		NumExampleDemonstrations: DefaultNumExampleDemonstrations,
		SysMsg:                   true,
		InterruptedPath:          DefaultInterruptedPath,
		ErrorPath:                DefaultErrorPath,
	}
}

// ConfigFromSettings builds a Config from resolved file settings.
func ConfigFromSettings(s config.EngineSettings) Config {
	c := DefaultConfig()
	c.Instructions = s.Instructions
	c.SystemPrompt = s.SystemPrompt
	c.Model = s.Model
	c.Temperature = s.Temperature
	if s.MaxRetries > 0 {
		c.MaxRetries = s.MaxRetries
	}
	c.SysMsg = s.SysMsg
	return c
}

// CreateOptions are the per-run parameters of CreateData.
type CreateOptions struct {
	// NumSteps is required.
	NumSteps int
	// BatchSize defaults to DefaultBatchSize.
	BatchSize int
	// Tree binds every prompt to a distinct randomly drawn path.
	Tree *topictree.Tree
	// Model overrides Config.Model.
	Model string
	// SysMsg overrides Config.SysMsg.
	SysMsg *bool
}
