package openai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/enrichit/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// classify maps client errors onto the ai error taxonomy.
// Rate limits, timeouts and unavailable servers are transient; everything else is not.
func classify(err error) error {
	if errors.Is(err, openai.ErrEmptyResponse) {
		return fmt.Errorf("%w: %w", ai.ErrEmptyResponse, err)
	}

	mapped := openai.MapError(err)
	switch {
	case llms.IsRateLimitError(mapped),
		llms.IsTimeoutError(mapped),
		llms.IsProviderUnavailableError(mapped),
		isGatewayError(err):
		return fmt.Errorf("%w: %w", ai.ErrTransient, mapped)
	default:
		return mapped
	}
}

func isGatewayError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "status code: 502") || strings.Contains(msg, "status code: 504")
}
