// Package generate asks a multimodal model to describe an image and turns the answer into a
// sidecar record.
package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tstromberg/picmeta/pkg/safeio"
)

// Generator produces a sidecar record for an image.
type Generator interface {
	Generate(ctx context.Context, imagePath, model string) (map[string]any, error)
}

// ErrNoOutput is returned when the model answered with nothing usable.
var ErrNoOutput = errors.New("model returned no output")

// Supported providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

var defaultModels = map[string]string{
	ProviderOpenAI: "gpt-4o-mini",
	ProviderGemini: "gemini-2.5-flash",
	ProviderOllama: "llava",
}

const (
	// DefaultMaxEdge bounds the longest side of images sent to a model.
	DefaultMaxEdge = 1024
	temperature    = 0.4
	maxTokens      = 500
)

// DefaultModel returns the model used when none is given for provider.
func DefaultModel(provider string) string {
	if provider == "" {
		provider = ProviderOpenAI
	}
	return defaultModels[provider]
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	// BaseURL overrides the provider endpoint (OLLAMA_HOST for ollama).
	BaseURL string
	MaxEdge int
}

// New returns the Generator for cfg.Provider. An empty provider means OpenAI.
func New(ctx context.Context, cfg Config) (Generator, error) {
	switch cfg.Provider {
	case "", ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai: API key is required")
		}
		o := NewOpenAI(cfg.APIKey, cfg.BaseURL)
		o.MaxEdge = cfg.MaxEdge
		return o, nil
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini: API key is required")
		}
		g, err := NewGemini(ctx, cfg.APIKey, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		g.MaxEdge = cfg.MaxEdge
		return g, nil
	case ProviderOllama:
		o, err := NewOllama(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		o.MaxEdge = cfg.MaxEdge
		return o, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// clock is embedded by providers so tests can pin detected_at.
type clock struct {
	Now func() time.Time
}

func (c clock) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func modelOr(model, provider string) string {
	if model != "" {
		return model
	}
	return DefaultModel(provider)
}

// parseObject extracts the first JSON object from model text, tolerating markdown fences
// and chatter around it.
func parseObject(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoOutput
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in %q", ErrNoOutput, truncate(text, 300))
	}

	m, err := safeio.DecodeObject(bytes.TrimSpace([]byte(text[start : end+1])))
	if err != nil {
		return nil, fmt.Errorf("parse model output %q: %w", truncate(text, 300), err)
	}
	return m, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
