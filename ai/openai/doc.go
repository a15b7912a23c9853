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


// Package openai implements ai.StructuredInvoker over OpenAI-compatible chat APIs.
//
// It uses the langchaingo client, so it works against OpenAI itself and local
// servers such as Ollama, LocalAI or vLLM. Each request declares the schema as a
// single tool and forces the model to call it. Servers that ignore tool calls
// answer in JSON mode instead; that content is fence-stripped and repaired
// before validation.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"),  // /v1 added automatically
//	    ai.WithModel("qwen2.5:7b"),
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	out, err := provider.Invoker().InvokeStructured(ctx, req)
package openai
