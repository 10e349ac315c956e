package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"textdeck/config"
)

// Provider names accepted on the wire. Matching is case-insensitive.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Provider turns a prompt into a raw text completion using per-request credentials.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt, apiKey string) (string, error)
}

// Settings are the generation parameters shared by every provider.
type Settings struct {
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

func (s Settings) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout > 0 {
		return context.WithTimeout(ctx, s.Timeout)
	}
	return context.WithCancel(ctx)
}

// SettingsFor derives the settings of one provider from the LLM config.
func SettingsFor(cfg config.LLMConfig, provider string) Settings {
	s := Settings{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
	var pc config.ProviderConfig
	switch provider {
	case ProviderOpenAI:
		pc = cfg.OpenAI
	case ProviderAnthropic:
		pc = cfg.Anthropic
	case ProviderGemini:
		pc = cfg.Gemini
	}
	s.Model = pc.Model
	s.BaseURL = pc.BaseURL
	return s
}

// NewDefaultProviders builds the three vendor strategies from configuration.
func NewDefaultProviders(cfg config.LLMConfig, logger *zap.Logger) []Provider {
	return []Provider{
		NewOpenAIProvider(SettingsFor(cfg, ProviderOpenAI), logger),
		NewAnthropicProvider(SettingsFor(cfg, ProviderAnthropic), logger),
		NewGeminiProvider(SettingsFor(cfg, ProviderGemini), logger),
	}
}

// ProviderSet indexes providers by normalized name.
type ProviderSet struct {
	byName map[string]Provider
}

// NewProviderSet indexes the given providers. Later duplicates win.
func NewProviderSet(providers ...Provider) *ProviderSet {
	set := &ProviderSet{byName: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		set.byName[normalizeProviderName(p.Name())] = p
	}
	return set
}

// Lookup resolves a provider name, reporting ErrUnsupportedProvider when unknown.
func (s *ProviderSet) Lookup(name string) (Provider, error) {
	p, ok := s.byName[normalizeProviderName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
	return p, nil
}

// Names lists the registered provider names in sorted order.
func (s *ProviderSet) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeProviderName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
