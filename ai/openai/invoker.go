// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/poiesic/enrichit/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Invoker implements ai.StructuredInvoker using OpenAI-compatible chat APIs.
type Invoker struct {
	client    llms.Model
	forceTool bool
	logger    *slog.Logger
}

var _ ai.StructuredInvoker = (*Invoker)(nil)

// newInvoker is an internal constructor that returns the concrete type.
func newInvoker(config *ai.Config) (*Invoker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Local OpenAI-compatible services accept any token.
	token := config.APIKey
	if token == "" {
		token = "none"
	}
	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(token),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	return &Invoker{
		client:    client,
		forceTool: config.ForceTool,
		logger:    slog.Default().With("component", "openai-invoker"),
	}, nil
}

// NewInvoker creates a structured invoker using the provided configuration.
//
// Returns ai.StructuredInvoker interface to enforce abstraction.
func NewInvoker(config *ai.Config) (ai.StructuredInvoker, error) {
	return newInvoker(config)
}

// InvokeStructured implements ai.StructuredInvoker.
func (i *Invoker) InvokeStructured(ctx context.Context, req ai.StructuredRequest) (map[string]any, error) {
	if req.Schema == nil || req.ToolName == "" {
		return nil, fmt.Errorf("%w: schema and tool name are required", ai.ErrInvalidRequest)
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(i.systemPrompt(req))},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(req.UserPrompt)},
		},
	}

	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if i.forceTool {
		opts = append(opts,
			llms.WithTools([]llms.Tool{{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        req.ToolName,
					Description: req.Schema.Description,
					Parameters:  req.Schema.JSONSchema(),
				},
			}}),
			llms.WithToolChoice(llms.ToolChoice{
				Type:     "function",
				Function: &llms.FunctionReference{Name: req.ToolName},
			}),
		)
	} else {
		opts = append(opts, llms.WithJSONMode())
	}

	response, err := i.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		i.logger.Debug("failed to generate content", "tool", req.ToolName, "err", err)
		return nil, classify(err)
	}
	if len(response.Choices) < 1 {
		return nil, fmt.Errorf("%w: no choices returned", ai.ErrEmptyResponse)
	}

	raw, err := i.decodeChoice(response.Choices[0], req.ToolName)
	if err != nil {
		return nil, err
	}
	return req.Schema.Validate(raw)
}

// decodeChoice prefers the arguments of the forced tool call and falls back to message content.
func (i *Invoker) decodeChoice(choice *llms.ContentChoice, toolName string) (map[string]any, error) {
	for _, call := range choice.ToolCalls {
		if call.FunctionCall == nil {
			continue
		}
		if call.FunctionCall.Name != toolName {
			i.logger.Debug("ignoring unexpected tool call", "want", toolName, "got", call.FunctionCall.Name)
			continue
		}
		return ai.DecodeObject(call.FunctionCall.Arguments)
	}

	if choice.Content == "" {
		return nil, fmt.Errorf("%w: no tool call or content (stop reason %q)", ai.ErrEmptyResponse, choice.StopReason)
	}
	if i.forceTool {
		i.logger.Debug("server ignored tool choice, decoding content", "tool", toolName)
	}
	return ai.DecodeObject(choice.Content)
}

// systemPrompt adds the schema to the prompt when the response is not constrained by a tool.
func (i *Invoker) systemPrompt(req ai.StructuredRequest) string {
	if i.forceTool {
		return req.SystemPrompt
	}
	schema, err := json.Marshal(req.Schema.JSONSchema())
	if err != nil {
		return req.SystemPrompt
	}
	return fmt.Sprintf("%s\n\nOutput ONLY valid JSON which complies with this schema. "+
		"Do not include any preamble or explanation.\n\n%s", req.SystemPrompt, schema)
}
