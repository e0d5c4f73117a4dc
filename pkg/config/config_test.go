package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tstromberg/picmeta/pkg/generate"
)

func TestLoadEmptyPathIsDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, 60*time.Second, c.Debounce)
	assert.Equal(t, "gpt-4o-mini", c.ModelName())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picmeta.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: ollama
base_url: http://localhost:11434
gallery: photos
debounce: 90s
interval: 2s
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, generate.ProviderOllama, c.Provider)
	assert.Equal(t, "photos", c.Gallery)
	assert.Equal(t, 90*time.Second, c.Debounce)
	assert.Equal(t, 2*time.Second, c.Interval)
	assert.Equal(t, Default().Schema, c.Schema, "unset keys keep their default")
	assert.Equal(t, "llava", c.ModelName())

	g := c.GenerateConfig()
	assert.Equal(t, "http://localhost:11434", g.BaseURL)
	assert.Equal(t, generate.DefaultMaxEdge, g.MaxEdge)
	assert.Empty(t, g.APIKey)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("provider: [unclosed"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	neg := filepath.Join(dir, "neg.yaml")
	require.NoError(t, os.WriteFile(neg, []byte("debounce: -5s\n"), 0o644))
	_, err = Load(neg)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PICMETA_PROVIDER", "gemini")
	t.Setenv("PICMETA_MODEL", "gemini-2.5-pro")
	t.Setenv("GOOGLE_AI_API_KEY", "g-key")
	t.Setenv("OPENAI_API_KEY", "o-key")

	c := Default()
	assert.Equal(t, "o-key", c.APIKey())

	c.ApplyEnv()
	assert.Equal(t, generate.ProviderGemini, c.Provider)
	assert.Equal(t, "gemini-2.5-pro", c.ModelName())
	assert.Equal(t, "g-key", c.APIKey())
}
