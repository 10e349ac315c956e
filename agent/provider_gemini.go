package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiProvider completes prompts with the Gemini API through the genai SDK.
type GeminiProvider struct {
	settings Settings
	logger   *zap.Logger
}

// NewGeminiProvider creates the Gemini strategy.
func NewGeminiProvider(settings Settings, logger *zap.Logger) *GeminiProvider {
	return &GeminiProvider{settings: settings, logger: logger}
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

// Complete sends the prompt as a single user turn.
func (p *GeminiProvider) Complete(ctx context.Context, prompt, apiKey string) (string, error) {
	ctx, cancel := p.settings.withTimeout(ctx)
	defer cancel()

	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.settings.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.settings.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(p.settings.Temperature),
	}
	if p.settings.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(p.settings.MaxTokens)
	}

	resp, err := client.Models.GenerateContent(ctx, p.settings.Model, genai.Text(prompt), genCfg)
	if err != nil {
		return "", improveProviderError("Gemini", err)
	}

	content := strings.TrimSpace(resp.Text())
	if content == "" {
		return "", ErrEmptyCompletion
	}
	p.logger.Debug("gemini completion received",
		zap.String("model", p.settings.Model),
		zap.Int("chars", len(content)))
	return content, nil
}
