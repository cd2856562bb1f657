package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables that override file values.
// Nesting uses a double underscore:
//
//	PROMPTWRIGHT_DATASET__CREATION__NUM_STEPS -> dataset.creation.num_steps
const EnvPrefix = "PROMPTWRIGHT_"

const maxConfigFileSize = 1024 * 1024

//go:embed defaults.yaml
var defaultsYAML []byte

// Load reads a YAML or TOML config file, applies PROMPTWRIGHT_* environment
// overrides on top, and validates the result.
//
// Precedence (highest first): environment, file, built-in defaults.
func Load(path string) (*Config, error) {
	content, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	return load(content, parserFor(path))
}

// LoadBytes parses an in-memory YAML document. Used by tests and for
// configs piped on stdin.
func LoadBytes(content []byte) (*Config, error) {
	return load(content, yaml.Parser())
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := load(nil, yaml.Parser())
	if err != nil {
		panic(fmt.Sprintf("config: built-in defaults are invalid: %v", err))
	}
	return cfg
}

func load(content []byte, parser koanf.Parser) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultsYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if len(bytes.TrimSpace(content)) > 0 {
		if err := k.Load(rawbytes.Provider(content), parser); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyProviderEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// applyProviderEnv fills unset API keys from the conventional vendor variables.
func (c *Config) applyProviderEnv() {
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	for name, envVar := range map[string]string{
		"openai":    "OPENAI_API_KEY",
		"anthropic": "ANTHROPIC_API_KEY",
	} {
		p := c.Providers[name]
		if !p.APIKey.IsSet() {
			p.APIKey = Secret(os.Getenv(envVar))
		}
		c.Providers[name] = p
	}
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path is a directory: %s", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return io.ReadAll(f)
}

func parserFor(path string) koanf.Parser {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return TOML()
	}
	return yaml.Parser()
}

// TOMLParser implements koanf.Parser on top of BurntSushi/toml.
type TOMLParser struct{}

// TOML returns a TOML parser for koanf.
func TOML() *TOMLParser {
	return &TOMLParser{}
}

// Unmarshal parses TOML bytes into a nested map.
func (p *TOMLParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if _, err := toml.Decode(string(b), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Marshal encodes a nested map as TOML.
func (p *TOMLParser) Marshal(m map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
