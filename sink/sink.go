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


// Package sink writes knowledge documents to disk as JSON.
package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/poiesic/codemine/core"
)

// DefaultPath is where the CLI writes the document unless told otherwise.
const DefaultPath = "output/extracted_knowledge.json"

type options struct {
	stripRaw bool
	indent   string
}

// Option configures how a document is written.
type Option func(*options)

// WithoutRawText omits the raw model text from every record.
func WithoutRawText() Option {
	return func(o *options) {
		o.stripRaw = true
	}
}

// WithIndent sets the indentation. An empty string writes compact JSON.
func WithIndent(indent string) Option {
	return func(o *options) {
		o.indent = indent
	}
}

func buildOptions(opts []Option) options {
	o := options{indent: "  "}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Encode validates doc and writes it to w.
func Encode(w io.Writer, doc *core.KnowledgeDocument, opts ...Option) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}
	o := buildOptions(opts)
	if o.stripRaw {
		doc = withoutRawText(doc)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if o.indent != "" {
		enc.SetIndent("", o.indent)
	}
	return enc.Encode(doc)
}

// WriteJSON validates doc and writes it to path, creating parent
// directories. The file is replaced atomically; on failure any existing
// file is left untouched.
func WriteJSON(path string, doc *core.KnowledgeDocument, opts ...Option) (err error) {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("output path %s is a symlink", path)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err = Encode(tmp, doc, opts...); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync output: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to finalize output: %w", err)
	}
	return nil
}

// ReadJSON loads a document written by WriteJSON and validates it.
func ReadJSON(path string) (*core.KnowledgeDocument, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc core.KnowledgeDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidDocument, err)
	}
	if err := core.ValidateDocument(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// withoutRawText returns a copy of doc with raw text cleared. doc is not
// modified.
func withoutRawText(doc *core.KnowledgeDocument) *core.KnowledgeDocument {
	out := *doc
	out.Files = make([]core.FileSummary, len(doc.Files))
	for i, f := range doc.Files {
		f.Records = append([]core.ChunkKnowledge(nil), f.Records...)
		for j := range f.Records {
			f.Records[j].RawText = ""
		}
		out.Files[i] = f
	}
	return &out
}
