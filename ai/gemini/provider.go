package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/enrichit/ai"
	"google.golang.org/api/option"
)

// Provider implements ai.Provider using the Gemini API.
type Provider struct {
	client  *genai.Client
	invoker *Invoker
	logger  *slog.Logger
}

var _ ai.Provider = (*Provider)(nil)

// NewProvider creates a Gemini provider. The config is validated before use.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction.
func NewProvider(ctx context.Context, config *ai.Config, opts ...option.ClientOption) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Backend != ai.BackendGemini {
		return nil, fmt.Errorf("%w: backend %q is not %s", ai.ErrInvalidConfig, config.Backend, ai.BackendGemini)
	}

	opts = append([]option.ClientOption{option.WithAPIKey(config.APIKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Provider{
		client: client,
		invoker: &Invoker{
			gen:    &clientGenerator{client: client},
			model:  config.Model,
			logger: slog.Default().With("component", "gemini-invoker"),
		},
		logger: slog.Default().With("component", "gemini-provider"),
	}, nil
}

// Invoker returns the structured inference service.
func (p *Provider) Invoker() ai.StructuredInvoker {
	return p.invoker
}

// Name returns "gemini".
func (p *Provider) Name() string {
	return ai.BackendGemini
}

// Close releases the underlying client connections.
func (p *Provider) Close() error {
	p.logger.Debug("closing Gemini provider")
	return p.client.Close()
}
