package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("OPENWEATHER_API_KEY", "")
	t.Setenv("QUILL_BROWSER_DEBUG_URL", "")
	t.Setenv("QUILL_SYSTEM_PROMPT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.APIKey)
	assert.True(t, cfg.UseStream(), "streaming defaults to on")
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", root)
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("OPENWEATHER_API_KEY", "")
	t.Setenv("QUILL_BROWSER_DEBUG_URL", "")
	t.Setenv("QUILL_SYSTEM_PROMPT", "")

	dir := filepath.Join(root, "quill")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	yaml := "api_key: file-key\nbase_url: https://example.com/v1\nstream: false\nauto_speak: true\nsystem_prompt: answer in French\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.APIKey, "environment beats the file")
	assert.Equal(t, "https://example.com/v1", cfg.BaseURL)
	assert.False(t, cfg.UseStream())
	assert.True(t, cfg.AutoSpeak)
	assert.Equal(t, "answer in French", cfg.SystemPrompt)
}
