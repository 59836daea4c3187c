package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"chatgate/pkg/types"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// Backend selects the engine implementation: "openai" or "llama".
	Backend string `json:"backend" yaml:"backend" toml:"backend"`
	// CatalogPath points at a model catalog file (yaml/json/toml).
	CatalogPath string `json:"catalog_path" yaml:"catalog_path" toml:"catalog_path"`
	// ModelsDir is scanned for *.gguf files when CatalogPath is unset.
	ModelsDir    string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`
	// Silent suppresses user-facing notifications; logs are unaffected.
	Silent bool `json:"silent" yaml:"silent" toml:"silent"`
	// MaxAttempts is the total generation attempts (0 = package default).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" toml:"max_attempts"`

	OpenAI OpenAI `json:"openai" yaml:"openai" toml:"openai"`
	Llama  Llama  `json:"llama" yaml:"llama" toml:"llama"`

	DefaultParams types.CompletionParams `json:"default_params" yaml:"default_params" toml:"default_params"`
}

// OpenAI configures the OpenAI-compatible server backend.
type OpenAI struct {
	BaseURL           string `json:"base_url" yaml:"base_url" toml:"base_url"`
	APIKey            string `json:"api_key" yaml:"api_key" toml:"api_key"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec" toml:"request_timeout_sec"`
}

// Llama configures the in-process llama.cpp backend.
type Llama struct {
	CtxSize int `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	Threads int `json:"threads" yaml:"threads" toml:"threads"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
