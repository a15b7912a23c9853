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


// Package ai provides the structured-inference contract used by enrichment modules.
//
// Modules describe the object they expect with a Schema and call a
// StructuredInvoker. Invokers return either a map that satisfies the schema or
// an error; they never hand back partially valid output.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible chat APIs via langchaingo, using a forced tool call
//     with JSON mode as the fallback
//   - ai/gemini: Google Gemini with a JSON response schema
//   - ai/mock: scriptable test double
//
// Public constructors (openai.NewProvider, gemini.NewProvider) return the
// ai.Provider interface. The mock constructor returns its concrete type so tests
// can script responses and read call counts.
//
// # Retries
//
// RetryingInvoker wraps any invoker with a per-attempt timeout and retries
// failures wrapped with ErrTransient. Schema violations, authentication and
// invalid-request errors are returned immediately.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithHost("http://localhost:11434"), ai.WithModel("qwen2.5:7b"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	invoker := ai.NewRetryingInvoker(provider.Invoker(), config)
//	out, err := invoker.InvokeStructured(ctx, ai.StructuredRequest{
//	    ToolName:   "sentiment_analysis",
//	    UserPrompt: "Analyze: I love this!",
//	    Schema:     schema,
//	})
package ai
