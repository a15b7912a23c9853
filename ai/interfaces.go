package ai

import "context"

// StructuredInvoker runs one structured inference call.
// Implementations must be thread-safe for concurrent use.
type StructuredInvoker interface {
	// InvokeStructured sends the prompts to the model, constrained to req.Schema,
	// and returns the validated result. Lists come back as []string, numbers as
	// float64 and enum values in their canonical spelling.
	// Returns an error if the call fails or the response does not satisfy the schema.
	InvokeStructured(ctx context.Context, req StructuredRequest) (map[string]any, error)
}

// StructuredRequest describes one inference call.
type StructuredRequest struct {
	// ToolName names the forced tool or response object, e.g. "sentiment_analysis".
	ToolName string

	SystemPrompt string
	UserPrompt   string

	// Schema constrains and validates the response. Required.
	Schema *Schema

	// Temperature is passed through to the model.
	Temperature float64
}

// Provider owns a configured inference backend.
// A provider hands out invokers that share its client and configuration.
type Provider interface {
	// Invoker returns the structured inference service.
	// The returned invoker is safe for concurrent use.
	Invoker() StructuredInvoker

	// Name identifies the backend, e.g. "openai" or "gemini".
	Name() string

	// Close releases resources held by the provider.
	// After Close is called, the provider and its invoker should not be used.
	Close() error
}
