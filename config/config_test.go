package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "textdeck.toml")
	content := `
[server]
port = "9090"
max_concurrent = 4

[llm]
max_tokens = 1500

[llm.gemini]
model = "gemini-2.0-flash"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "unset keys keep their default")
	assert.EqualValues(t, 4, cfg.Server.MaxConcurrent)
	assert.Equal(t, 1500, cfg.LLM.MaxTokens)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Gemini.Model)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.OpenAI.Model)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport="), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TEXTDECK_PORT":            "7000",
		"TEXTDECK_OPENAI_MODEL":    "gpt-4o-mini",
		"TEXTDECK_MAX_CONCURRENT":  "2",
		"TEXTDECK_TIMEOUT_SECONDS": "30",
		"TEXTDECK_LOG_DIR":         "  ",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.applyEnv(lookup))

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.OpenAI.Model)
	assert.EqualValues(t, 2, cfg.Server.MaxConcurrent)
	assert.Equal(t, 30, cfg.LLM.TimeoutSeconds)
	assert.Empty(t, cfg.Log.Dir, "blank values are ignored")
	assert.Equal(t, "0.0.0.0:7000", cfg.Addr())
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) {
		if k == "TEXTDECK_MAX_CONCURRENT" {
			return "-1", true
		}
		return "", false
	})
	assert.Error(t, err)
}
