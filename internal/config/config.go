// Package config loads process configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config is the full environment-driven configuration surface.
type Config struct {
	// Language model providers, tried in order: OpenAI, then Yandex.
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL"`
	OpenAIModel      string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string `env:"YANDEX_FOLDER_ID"`

	// Speech-to-text.
	DeepgramAPIKey string `env:"DEEPGRAM_API_KEY"`
	Language       string `env:"LANGUAGE" envDefault:"en-US"`

	// Devices.
	AudioInput    string `env:"AUDIO_INPUT" envDefault:"default"`
	AudioFallback string `env:"AUDIO_FALLBACK" envDefault:"default"`
	CameraDevice  string `env:"CAMERA_DEVICE" envDefault:"/dev/video0"`

	// Remote record store. All three must be set for remote persistence;
	// otherwise the process runs anonymously against local state.
	StoreURL    string `env:"STORE_URL"`
	StoreAPIKey string `env:"STORE_API_KEY"`
	AccessToken string `env:"ACCESS_TOKEN"`

	// Local state directory override. Empty means the XDG default.
	StateDir string `env:"STATE_DIR"`
}

// Load parses configuration from the environment. When envFile is non-empty
// it is loaded first; variables already set in the environment win.
func Load(envFile string) (*Config, error) {
	if strings.TrimSpace(envFile) != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %q: %w", envFile, err)
		}
	} else {
		// Best-effort default: a .env in the working directory.
		_ = godotenv.Load()
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// HasOpenAI reports whether the OpenAI provider is configured.
func (c *Config) HasOpenAI() bool {
	return strings.TrimSpace(c.OpenAIAPIKey) != ""
}

// HasYandex reports whether the Yandex provider is configured.
func (c *Config) HasYandex() bool {
	return strings.TrimSpace(c.YandexOAuthToken) != "" && strings.TrimSpace(c.YandexFolderID) != ""
}

// HasDeepgram reports whether live speech recognition is configured.
func (c *Config) HasDeepgram() bool {
	return strings.TrimSpace(c.DeepgramAPIKey) != ""
}

// HasRecordStore reports whether remote persistence is fully configured.
func (c *Config) HasRecordStore() bool {
	return strings.TrimSpace(c.StoreURL) != "" &&
		strings.TrimSpace(c.StoreAPIKey) != "" &&
		strings.TrimSpace(c.AccessToken) != ""
}

// Warnings lists configuration gaps worth surfacing at startup. None of
// them are fatal; each degrades one capability.
func (c *Config) Warnings() []string {
	var warnings []string
	if !c.HasOpenAI() && !c.HasYandex() {
		warnings = append(warnings, "no language model provider configured; scoring falls back to heuristics and questions come from stored templates")
	}
	if !c.HasDeepgram() {
		warnings = append(warnings, "DEEPGRAM_API_KEY is not set; recording commands will fail")
	}
	if !c.HasRecordStore() {
		warnings = append(warnings, "record store not configured; running anonymously with local persistence")
	}
	return warnings
}
