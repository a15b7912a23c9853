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


package enrichment

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/enrichit/ai"
	"github.com/poiesic/enrichit/core"
)

var _ Module = (*inferenceModule)(nil)

// inferenceModule holds what the four inference-backed modules share.
type inferenceModule struct {
	name         core.ModuleName
	invoker      ai.StructuredInvoker
	schema       *ai.Schema
	systemPrompt string
	temperature  float64
	prompt       func(*core.CanonicalRecord) string
	decode       func(map[string]any) core.ModuleResult
	empty        func() core.ModuleResult
}

func (m *inferenceModule) Name() core.ModuleName { return m.name }

func (m *inferenceModule) Empty() core.ModuleResult { return m.empty() }

// Enrich prompts the backend and decodes its validated response.
// Blank text yields Empty without a call.
func (m *inferenceModule) Enrich(ctx context.Context, rec *core.CanonicalRecord, _ *BatchContext) (core.ModuleResult, error) {
	if strings.TrimSpace(rec.Text) == "" {
		return m.empty(), nil
	}

	out, err := m.invoker.InvokeStructured(ctx, ai.StructuredRequest{
		ToolName:     m.schema.Name,
		SystemPrompt: m.systemPrompt,
		UserPrompt:   m.prompt(rec),
		Schema:       m.schema,
		Temperature:  m.temperature,
	})
	if err != nil {
		return nil, &core.ModuleError{Module: m.name, Key: rec.Key(), Err: err}
	}

	result := m.decode(out)
	if err := core.ValidateResult(result); err != nil {
		return nil, &core.ModuleError{Module: m.name, Key: rec.Key(), Err: err}
	}
	return result, nil
}

func str(out map[string]any, key string) string {
	s, _ := out[key].(string)
	return s
}

func num(out map[string]any, key string) float64 {
	f, _ := out[key].(float64)
	return f
}

func flag(out map[string]any, key string) bool {
	b, _ := out[key].(bool)
	return b
}

func list(out map[string]any, key string) []string {
	switch v := out[key].(type) {
	case []string:
		return v
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
		return items
	}
	return []string{}
}
