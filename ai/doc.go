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


// Package ai provides abstractions for the language model used by codemine.
//
// The pipeline never talks to a model SDK directly. It depends on the Model
// interface defined here, and on the error classification that tells the
// extraction client whether a failure may be retried.
//
// # Interfaces
//
//   - Model: completes a single prompt and returns the raw text
//   - Provider: owns a Model and its lifecycle
//
// # Implementation Packages
//
//   - ai/openai: langchaingo client for any OpenAI-compatible API
//   - ai/mock: scripted test double for unit tests
//
// # Error Classification
//
// Backend failures are wrapped in *ModelError with one of three kinds:
//
//   - KindRateLimited: HTTP 429 or a "rate limit" message
//   - KindFatal: authentication failures, malformed requests, context too long
//   - KindTransient: everything else, including per-attempt timeouts
//
// Use KindOf to inspect any error; unclassified errors are classified from
// their message.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithModel("gpt-4o-mini"), ai.WithToken(key))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	text, err := provider.Model().Complete(ctx, ai.Request{Prompt: "...", JSON: true})
//	if err != nil && ai.KindOf(err).Retryable() {
//	    // back off and try again
//	}
package ai
