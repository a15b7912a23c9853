package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/enrichit/ai"
)

// generator is the slice of *genai.Client the invoker needs.
type generator interface {
	generate(ctx context.Context, model *modelSettings, prompt string) (*genai.GenerateContentResponse, error)
}

// modelSettings is the per-request model configuration.
type modelSettings struct {
	name        string
	system      string
	temperature float32
	schema      *genai.Schema
}

// clientGenerator adapts a real Gemini client.
type clientGenerator struct {
	client *genai.Client
}

func (g *clientGenerator) generate(ctx context.Context, m *modelSettings, prompt string) (*genai.GenerateContentResponse, error) {
	// GenerativeModel values are cheap and not safe to mutate concurrently, so build one per call.
	model := g.client.GenerativeModel(m.name)
	model.SetTemperature(m.temperature)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = m.schema
	if m.system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(m.system))
	}
	return model.GenerateContent(ctx, genai.Text(prompt))
}

// Invoker implements ai.StructuredInvoker using Gemini.
type Invoker struct {
	gen    generator
	model  string
	logger *slog.Logger
}

var _ ai.StructuredInvoker = (*Invoker)(nil)

// InvokeStructured implements ai.StructuredInvoker.
func (i *Invoker) InvokeStructured(ctx context.Context, req ai.StructuredRequest) (map[string]any, error) {
	if req.Schema == nil || req.ToolName == "" {
		return nil, fmt.Errorf("%w: schema and tool name are required", ai.ErrInvalidRequest)
	}

	resp, err := i.gen.generate(ctx, &modelSettings{
		name:        i.model,
		system:      req.SystemPrompt,
		temperature: float32(req.Temperature),
		schema:      responseSchema(req.Schema),
	}, req.UserPrompt)
	if err != nil {
		i.logger.Debug("failed to generate content", "tool", req.ToolName, "err", err)
		return nil, classify(err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("%w: no text in %s response", ai.ErrEmptyResponse, req.ToolName)
	}
	raw, err := ai.DecodeObject(text)
	if err != nil {
		return nil, err
	}
	return req.Schema.Validate(raw)
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range c.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}
