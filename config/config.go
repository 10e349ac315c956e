package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const DefaultConfigFilename = "textdeck.toml"

// Config structure
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
	Workspace WorkspaceConfig `toml:"workspace"`
	LLM       LLMConfig       `toml:"llm"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Host           string `toml:"host"`
	Port           string `toml:"port"`
	MaxUploadMB    int64  `toml:"max_upload_mb"`    // Template + form size limit
	MaxConcurrent  int64  `toml:"max_concurrent"`   // 0 means unbounded
	ShutdownGraceS int    `toml:"shutdown_grace_s"` // Graceful shutdown window
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level"`
	Dir   string `toml:"dir"` // Empty disables the file sink
}

// WorkspaceConfig controls per-request temporary directories.
type WorkspaceConfig struct {
	TempDir string `toml:"temp_dir"` // Empty means os.TempDir()
}

// ProviderConfig is the per-vendor model selection.
type ProviderConfig struct {
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// LLMConfig holds the generation parameters shared by every provider.
type LLMConfig struct {
	Temperature    float32        `toml:"temperature"`
	MaxTokens      int            `toml:"max_tokens"`
	TimeoutSeconds int            `toml:"timeout_seconds"` // 0 means no timeout
	OpenAI         ProviderConfig `toml:"openai"`
	Anthropic      ProviderConfig `toml:"anthropic"`
	Gemini         ProviderConfig `toml:"gemini"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           "8000",
			MaxUploadMB:    32,
			MaxConcurrent:  0,
			ShutdownGraceS: 5,
		},
		Log: LogConfig{Level: "info"},
		LLM: LLMConfig{
			Temperature: 0.7,
			MaxTokens:   2000,
			OpenAI:      ProviderConfig{Model: "gpt-3.5-turbo"},
			Anthropic:   ProviderConfig{Model: "claude-3-sonnet-20240229"},
			Gemini:      ProviderConfig{Model: "gemini-1.5-flash-latest"},
		},
	}
}

// Load decodes the TOML file at filePath over the defaults and then applies
// TEXTDECK_* environment overrides. A missing file is not an error when
// filePath is empty (the default name is tried instead).
func Load(filePath string) (*Config, error) {
	cfg := Default()

	explicit := filePath != ""
	if !explicit {
		filePath = DefaultConfigFilename
	}

	data, err := os.ReadFile(filePath)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML configuration '%s': %w", filePath, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, fmt.Errorf("failed to open config file '%s': %w", filePath, err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Addr returns host:port for the listener.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("TEXTDECK_HOST", &c.Server.Host)
	str("TEXTDECK_PORT", &c.Server.Port)
	str("TEXTDECK_LOG_LEVEL", &c.Log.Level)
	str("TEXTDECK_LOG_DIR", &c.Log.Dir)
	str("TEXTDECK_TEMP_DIR", &c.Workspace.TempDir)
	str("TEXTDECK_OPENAI_MODEL", &c.LLM.OpenAI.Model)
	str("TEXTDECK_OPENAI_BASE_URL", &c.LLM.OpenAI.BaseURL)
	str("TEXTDECK_ANTHROPIC_MODEL", &c.LLM.Anthropic.Model)
	str("TEXTDECK_ANTHROPIC_BASE_URL", &c.LLM.Anthropic.BaseURL)
	str("TEXTDECK_GEMINI_MODEL", &c.LLM.Gemini.Model)
	str("TEXTDECK_GEMINI_BASE_URL", &c.LLM.Gemini.BaseURL)

	if v, ok := lookup("TEXTDECK_MAX_CONCURRENT"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid TEXTDECK_MAX_CONCURRENT %q", v)
		}
		c.Server.MaxConcurrent = n
	}
	if v, ok := lookup("TEXTDECK_TIMEOUT_SECONDS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid TEXTDECK_TIMEOUT_SECONDS %q", v)
		}
		c.LLM.TimeoutSeconds = n
	}
	return nil
}
