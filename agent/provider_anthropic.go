package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

const (
	anthropicDefaultURL = "https://api.anthropic.com"
	anthropicVersion    = "2023-06-01"
)

// AnthropicConfig configures one Messages API chat model.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	HTTPClient *http.Client
}

// AnthropicChatModel speaks the Anthropic Messages API behind the eino chat model contract.
type AnthropicChatModel struct {
	config *AnthropicConfig
}

var _ model.BaseChatModel = (*AnthropicChatModel)(nil)

func NewAnthropicChatModel(config *AnthropicConfig) *AnthropicChatModel {
	return &AnthropicChatModel{config: config}
}

// messagesURL accepts either a bare host or a full /v1/messages endpoint.
func (m *AnthropicChatModel) messagesURL() string {
	base := m.config.BaseURL
	if base == "" {
		base = anthropicDefaultURL
	}
	if strings.HasSuffix(strings.TrimSuffix(base, "/"), "/messages") {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/v1/messages"
}

func (m *AnthropicChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	maxTokens := m.config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	reqBody := map[string]interface{}{
		"model":      m.config.Model,
		"max_tokens": maxTokens,
	}

	var messages []map[string]interface{}
	var systemPrompt string
	for _, msg := range input {
		switch msg.Role {
		case schema.System:
			systemPrompt += msg.Content + "\n"
		case schema.User, schema.Assistant:
			messages = append(messages, map[string]interface{}{
				"role":    string(msg.Role),
				"content": msg.Content,
			})
		}
	}
	if systemPrompt != "" {
		reqBody["system"] = strings.TrimSpace(systemPrompt)
	}
	reqBody["messages"] = messages

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.messagesURL(), bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", m.config.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	client := m.config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Anthropic API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	responseMsg := &schema.Message{Role: schema.Assistant}
	for _, block := range result.Content {
		if block.Type == "text" || block.Type == "" {
			responseMsg.Content += block.Text
		}
	}
	return responseMsg, nil
}

func (m *AnthropicChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not supported")
}

// AnthropicProvider completes prompts with the Anthropic Messages API.
type AnthropicProvider struct {
	settings   Settings
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAnthropicProvider creates the Anthropic strategy.
func NewAnthropicProvider(settings Settings, logger *zap.Logger) *AnthropicProvider {
	return &AnthropicProvider{settings: settings, logger: logger}
}

func (p *AnthropicProvider) Name() string { return ProviderAnthropic }

// Complete sends the prompt as a single user message.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt, apiKey string) (string, error) {
	ctx, cancel := p.settings.withTimeout(ctx)
	defer cancel()

	chatModel := NewAnthropicChatModel(&AnthropicConfig{
		APIKey:     apiKey,
		BaseURL:    p.settings.BaseURL,
		Model:      p.settings.Model,
		MaxTokens:  p.settings.MaxTokens,
		HTTPClient: p.httpClient,
	})

	resp, err := chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", improveProviderError("Anthropic", err)
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	p.logger.Debug("anthropic completion received",
		zap.String("model", p.settings.Model),
		zap.Int("chars", len(content)))
	return content, nil
}
