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


// Package repair turns raw model output into validated JSON.
//
// Models asked for JSON still wrap it in code fences, add a sentence of
// prose, use typographic quotes, forget an opening quote on a key, or leave
// a trailing comma. A Repairer runs an ordered chain of small rules over the
// text, each guarded by a cheap precondition, then parses the result strictly
// and validates it against a JSON schema.
//
// Failures are reported as *Error, which matches ErrUnparseable or
// ErrSchemaInvalid and carries the cleaned text for the audit log.
//
// Output is canonical compact JSON with sorted keys, so repairing an already
// repaired document returns it unchanged.
package repair
