package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds everything read from config.yaml plus environment
// overrides. All fields have workable zero values except APIKey.
type Config struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`

	// Stream toggles incremental answers. Defaults to true.
	Stream *bool `yaml:"stream,omitempty"`
	// AutoSpeak reads finished answers aloud through the system TTS.
	AutoSpeak bool `yaml:"auto_speak,omitempty"`
	// HistoryPaused stops finished turns from being persisted.
	HistoryPaused bool `yaml:"history_paused,omitempty"`

	// SystemPrompt is prepended to every request, before the model
	// config's own prompt.
	SystemPrompt string `yaml:"system_prompt,omitempty"`

	WeatherAPIKey string `yaml:"weather_api_key,omitempty"`

	// BrowserDebugURL is the DevTools endpoint of a running browser,
	// e.g. "127.0.0.1:9222". Empty means browser content is unavailable.
	BrowserDebugURL string `yaml:"browser_debug_url,omitempty"`
}

// Dir returns the quill config directory, creating it if needed.
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, herr := os.UserHomeDir()
		if herr != nil {
			return "", err
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	dir := filepath.Join(configDir, "quill")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// Load reads config.yaml from the quill config directory and applies
// environment overrides. A missing file is not an error.
func Load() (Config, error) {
	var cfg Config

	dir, err := Dir()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err == nil {
		if uerr := yaml.Unmarshal(data, &cfg); uerr != nil {
			return cfg, uerr
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		cfg.WeatherAPIKey = v
	}
	if v := os.Getenv("QUILL_BROWSER_DEBUG_URL"); v != "" {
		cfg.BrowserDebugURL = v
	}
	if v := os.Getenv("QUILL_SYSTEM_PROMPT"); v != "" {
		cfg.SystemPrompt = v
	}

	return cfg, nil
}

// UseStream reports the streaming preference, defaulting to true.
func (c Config) UseStream() bool {
	if c.Stream == nil {
		return true
	}
	return *c.Stream
}
