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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidConfig indicates a configuration value is out of range.
	// Raised before any work starts.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidDocument indicates a KnowledgeDocument failed validation.
	ErrInvalidDocument = errors.New("invalid knowledge document")

	// ErrDuplicatePath indicates the same file appears twice in a document.
	ErrDuplicatePath = errors.New("duplicate file path")

	// ErrUnsortedFiles indicates document files are not ordered by path.
	ErrUnsortedFiles = errors.New("files not sorted by path")

	// ErrRecordOrder indicates records within a file are not in chunk order.
	ErrRecordOrder = errors.New("records not in chunk order")

	// ErrStatusMismatch indicates a file status disagrees with its missing chunks.
	ErrStatusMismatch = errors.New("file status does not match missing chunks")

	// ErrEmptyPath indicates a file summary without a path.
	ErrEmptyPath = errors.New("file path cannot be empty")
)
