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

import (
	"fmt"
	"sort"
)

// ValidateDocument validates a KnowledgeDocument before it is written.
//
// Validation rules:
//   - every file has a non-empty path
//   - paths are unique and sorted
//   - records within a file are ordered by strictly increasing chunk index
//   - status is partial exactly when missing chunks are listed
//
// NOT validated:
//   - semantic content of overviews or methods
//   - Summary counts (computed by the aggregator)
func ValidateDocument(doc *KnowledgeDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	seen := make(map[string]struct{}, len(doc.Files))
	for i := range doc.Files {
		f := &doc.Files[i]
		if f.Path == "" {
			return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyPath)
		}
		if _, dup := seen[f.Path]; dup {
			return fmt.Errorf("%w: %w: %s", ErrInvalidDocument, ErrDuplicatePath, f.Path)
		}
		seen[f.Path] = struct{}{}

		if err := ValidateFileSummary(f); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	}

	if !sort.SliceIsSorted(doc.Files, func(i, j int) bool { return doc.Files[i].Path < doc.Files[j].Path }) {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrUnsortedFiles)
	}

	return nil
}

// ValidateFileSummary checks record order and status consistency of one file.
func ValidateFileSummary(f *FileSummary) error {
	for i := 1; i < len(f.Records); i++ {
		if f.Records[i].Index <= f.Records[i-1].Index {
			return fmt.Errorf("%w: %s", ErrRecordOrder, f.Path)
		}
	}

	partial := f.Status == FileStatusPartial
	if partial != (len(f.MissingChunks) > 0) {
		return fmt.Errorf("%w: %s is %s with %d missing", ErrStatusMismatch, f.Path, f.Status, len(f.MissingChunks))
	}
	if f.Status != FileStatusComplete && f.Status != FileStatusPartial {
		return fmt.Errorf("%w: %s has status %q", ErrStatusMismatch, f.Path, f.Status)
	}
	return nil
}
