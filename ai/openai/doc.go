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


// Package openai implements ai.Provider for OpenAI-compatible chat APIs
// using langchaingo.
//
// Any server that speaks the OpenAI chat completion protocol works: OpenAI
// itself, Ollama, LocalAI, vLLM. Requests are sent at the configured
// temperature (0 by default) and in JSON mode when the caller asks for it.
// Errors from the client are wrapped with ai.Classify so callers can decide
// whether to retry.
package openai
