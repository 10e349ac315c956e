package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// chatModelFactory builds an eino chat model bound to one request's API key.
type chatModelFactory func(ctx context.Context, apiKey string) (model.BaseChatModel, error)

// OpenAIProvider completes prompts with the OpenAI chat completions API through eino.
type OpenAIProvider struct {
	settings Settings
	newModel chatModelFactory
	logger   *zap.Logger
}

// NewOpenAIProvider creates the OpenAI strategy.
func NewOpenAIProvider(settings Settings, logger *zap.Logger) *OpenAIProvider {
	p := &OpenAIProvider{settings: settings, logger: logger}
	p.newModel = p.openAIChatModel
	return p
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

func (p *OpenAIProvider) openAIChatModel(ctx context.Context, apiKey string) (model.BaseChatModel, error) {
	temperature := p.settings.Temperature
	maxTokens := p.settings.MaxTokens
	cfg := &openai.ChatModelConfig{
		APIKey:      apiKey,
		BaseURL:     p.settings.BaseURL,
		Model:       p.settings.Model,
		Temperature: &temperature,
		Timeout:     p.settings.Timeout,
	}
	if maxTokens > 0 {
		cfg.MaxTokens = &maxTokens
	}
	return openai.NewChatModel(ctx, cfg)
}

// Complete sends the system instruction and the prompt as one chat turn.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt, apiKey string) (string, error) {
	ctx, cancel := p.settings.withTimeout(ctx)
	defer cancel()

	chatModel, err := p.newModel(ctx, apiKey)
	if err != nil {
		return "", fmt.Errorf("failed to create OpenAI chat model: %w", err)
	}

	resp, err := chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(SystemInstruction),
		schema.UserMessage(prompt),
	})
	if err != nil {
		return "", improveProviderError("OpenAI", err)
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	p.logger.Debug("openai completion received",
		zap.String("model", p.settings.Model),
		zap.Int("chars", len(content)))
	return content, nil
}
