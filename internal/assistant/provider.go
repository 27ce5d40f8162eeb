// Package assistant talks to the remote language model behind the pharmacist chatbot.
package assistant

import (
	"context"
	"fmt"
	"pharmacist/internal/config"
)

// Provider defines the interface for AI chat providers.
type Provider interface {
	// SendMessage sends the conversation and returns the assistant's reply.
	SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)

	// Name returns the provider name (e.g., "deepseek").
	Name() string
}

// NewProvider creates a Provider based on the configuration.
func NewProvider(cfg config.AssistantConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderDeepSeek:
		p, err := NewDeepSeekProvider(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown assistant provider: %s (supported: %s)", cfg.Provider, config.ProviderDeepSeek)
	}
}
