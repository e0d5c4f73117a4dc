// Package config holds settings shared by the picmeta tools.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tstromberg/picmeta/pkg/generate"
	"github.com/tstromberg/picmeta/pkg/watch"
	"github.com/tstromberg/picmeta/schemas"
)

// Config holds configuration for picmeta.
type Config struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	// BaseURL points a provider at an alternate endpoint, such as a proxy or local server.
	BaseURL string `yaml:"base_url"`
	MaxEdge int    `yaml:"max_edge"`

	Schema    string `yaml:"schema"`
	Snapshot  string `yaml:"snapshot"`
	Gallery   string `yaml:"gallery"`
	Generator string `yaml:"generator"`
	Log       string `yaml:"log"`

	Debounce time.Duration `yaml:"debounce"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider:  generate.ProviderOpenAI,
		MaxEdge:   generate.DefaultMaxEdge,
		Schema:    schemas.SidecarPath,
		Snapshot:  "schemas/.latest_schema_snapshot.json",
		Gallery:   "static/gallery",
		Generator: "pkg/generate/sidecar.go",
		Log:       "logs/validation_failures.log",
		Debounce:  watch.DefaultDebounce,
		Interval:  watch.DefaultInterval,
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(bs, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if c.Debounce < 0 || c.Interval < 0 {
		return nil, fmt.Errorf("parse config %s: negative duration", path)
	}
	return c, nil
}

// ApplyEnv overrides the provider and model from PICMETA_PROVIDER and PICMETA_MODEL.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PICMETA_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("PICMETA_MODEL"); v != "" {
		c.Model = v
	}
}

// APIKey returns the credential for the configured provider.
func (c *Config) APIKey() string {
	switch c.Provider {
	case "", generate.ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case generate.ProviderGemini:
		return os.Getenv("GOOGLE_AI_API_KEY")
	}
	return ""
}

// ModelName is the configured model, or the provider's default.
func (c *Config) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	return generate.DefaultModel(c.Provider)
}

// GenerateConfig returns the settings for generate.New.
func (c *Config) GenerateConfig() generate.Config {
	return generate.Config{
		Provider: c.Provider,
		APIKey:   c.APIKey(),
		BaseURL:  c.BaseURL,
		MaxEdge:  c.MaxEdge,
	}
}
