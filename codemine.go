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


package codemine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/codemine/ai"
	"github.com/poiesic/codemine/ai/openai"
	"github.com/poiesic/codemine/core"
	"github.com/poiesic/codemine/pipeline"
	"github.com/poiesic/codemine/storage"
	"github.com/poiesic/codemine/storage/badger"
)

// Extractor owns the model provider and the audit log, and creates
// pipelines wired to both.
type Extractor struct {
	backend  *badger.Backend
	audit    storage.AuditRepository
	provider ai.Provider
	logger   *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*extractorOptions)

type extractorOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
	auditDir string
	inMemory bool
	logger   *slog.Logger
}

// WithAIConfig sets the model backend configuration.
func WithAIConfig(config *ai.Config) ExtractorOption {
	return func(o *extractorOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of creating an OpenAI-compatible one.
// The Extractor closes it.
func WithProvider(provider ai.Provider) ExtractorOption {
	return func(o *extractorOptions) {
		o.provider = provider
	}
}

// WithAuditDir persists the audit log in dir.
func WithAuditDir(dir string) ExtractorOption {
	return func(o *extractorOptions) {
		o.auditDir = dir
		o.inMemory = false
	}
}

// WithInMemoryAudit keeps the audit log in memory for the Extractor's
// lifetime.
func WithInMemoryAudit() ExtractorOption {
	return func(o *extractorOptions) {
		o.auditDir = ""
		o.inMemory = true
	}
}

// WithLogger sets the logger handed to pipelines.
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(o *extractorOptions) {
		o.logger = logger
	}
}

// NewExtractor opens the audit log and the model provider. Without
// WithAuditDir or WithInMemoryAudit no audit log is kept.
func NewExtractor(opts ...ExtractorOption) (*Extractor, error) {
	options := &extractorOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	e := &Extractor{logger: options.logger}

	if options.auditDir != "" || options.inMemory {
		backend, err := badger.OpenBackend(options.auditDir, options.inMemory)
		if err != nil {
			return nil, err
		}
		audit, err := badger.NewAuditRepository(backend)
		if err != nil {
			backend.Close()
			return nil, err
		}
		e.backend = backend
		e.audit = audit
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			e.closeStorage()
			return nil, err
		}
	}
	e.provider = provider

	return e, nil
}

// Close releases the provider and the audit log.
func (e *Extractor) Close() error {
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}
	return e.closeStorage()
}

func (e *Extractor) closeStorage() error {
	var errs []error
	if e.audit != nil {
		if err := e.audit.Close(); err != nil {
			e.logger.Error("error closing audit repository", "err", err)
			errs = append(errs, err)
		}
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AuditRepository returns the audit log, or nil when none is kept.
func (e *Extractor) AuditRepository() storage.AuditRepository {
	return e.audit
}

// Provider returns the model provider.
func (e *Extractor) Provider() ai.Provider {
	return e.provider
}

// NewPipeline creates a pipeline using the Extractor's model, audit log and
// logger. opts are applied after those.
func (e *Extractor) NewPipeline(opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	base := []pipeline.Option{pipeline.WithLogger(e.logger)}
	if e.audit != nil {
		base = append(base, pipeline.WithAudit(e.audit))
	}
	return pipeline.NewPipeline(e.provider.Model(), append(base, opts...)...)
}

// Extract runs one pipeline over files and releases it.
func (e *Extractor) Extract(ctx context.Context, files []core.SourceFile, readme string, opts ...pipeline.Option) (*pipeline.Result, error) {
	p, err := e.NewPipeline(opts...)
	if err != nil {
		return nil, err
	}
	defer p.Release()
	return p.Run(ctx, files, readme)
}
