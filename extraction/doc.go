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


// Package extraction drives the language model for one chunk at a time.
//
// A Client builds a deterministic prompt from the chunk, sends it to an
// ai.Model under a per-attempt timeout, and retries rate-limited and
// transient failures with exponential backoff and jitter. Fatal failures are
// surfaced immediately. Every attempt is appended to an optional audit log
// before Extract returns, and counted in Metrics.
//
// The client never parses the model's reply; that is the repair package's job.
//
// # Backoff
//
// The delay before attempt k+1 is
//
//	min(MaxDelay, BaseDelay·2^(k-1) + jitter)
//
// with jitter drawn uniformly from [0, JitterFraction·BaseDelay·2^(k-1)).
// JitterFraction is at most 1, so successive delays never decrease.
//
// # Errors
//
// Extract returns *Error, which matches ErrGaveUp, ErrFatal or ErrCanceled
// with errors.Is, and also unwraps to the last model error (or to the
// context error when canceled).
package extraction
