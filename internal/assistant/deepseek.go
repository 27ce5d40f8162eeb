package assistant

import (
	"context"
	"errors"
	"fmt"
	"pharmacist/internal/config"

	"github.com/go-deepseek/deepseek"
	"github.com/go-deepseek/deepseek/request"
)

var ErrEmptyReply = errors.New("assistant returned an empty reply")

// DeepSeekProvider implements Provider for DeepSeek API.
type DeepSeekProvider struct {
	client deepseek.Client
	config config.AssistantConfig
}

// NewDeepSeekProvider creates a new DeepSeek provider.
func NewDeepSeekProvider(cfg config.AssistantConfig) (*DeepSeekProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("DeepSeek API key is required")
	}

	client, err := deepseek.NewClient(cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create DeepSeek client: %w", err)
	}

	return &DeepSeekProvider{
		client: client,
		config: cfg,
	}, nil
}

func (p *DeepSeekProvider) Name() string {
	return config.ProviderDeepSeek
}

// SendMessage sends a message to DeepSeek API and returns the response.
func (p *DeepSeekProvider) SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	chatReq := buildChatRequest(req, p.config)

	resp, err := p.client.CallChatCompletionsChat(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("DeepSeek API request failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, ErrEmptyReply
	}

	return &MessageResponse{
		Content:    resp.Choices[0].Message.Content,
		StopReason: resp.Choices[0].FinishReason,
		Model:      chatReq.Model,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// buildChatRequest fills request defaults from the configuration
func buildChatRequest(req MessageRequest, cfg config.AssistantConfig) *request.ChatCompletionsRequest {
	model := req.Model
	if model == "" {
		model = cfg.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = cfg.MaxTokens
	}
	temperature := float32(req.Temperature)
	if req.Temperature == 0 {
		temperature = float32(cfg.Temperature)
	}
	system := req.System
	if system == "" {
		system = cfg.SystemPrompt
	}

	messages := make([]*request.Message, 0, len(req.Messages)+1)
	if system != "" {
		messages = append(messages, &request.Message{
			Role:    RoleSystem,
			Content: system,
		})
	}
	for _, msg := range req.Messages {
		messages = append(messages, &request.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	return &request.ChatCompletionsRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
		Stream:      false,
	}
}
