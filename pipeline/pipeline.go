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


package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/codemine/aggregate"
	"github.com/poiesic/codemine/ai"
	"github.com/poiesic/codemine/chunker"
	"github.com/poiesic/codemine/core"
	"github.com/poiesic/codemine/extraction"
	"github.com/poiesic/codemine/repair"
	"github.com/poiesic/codemine/storage"
)

// readmeRef identifies the project synthesis call in logs and the audit log.
var readmeRef = core.ChunkRef{File: "README", Index: 0}

// Pipeline extracts knowledge from source files with a bounded worker pool.
type Pipeline struct {
	model      ai.Model
	config     Config
	pool       *ants.Pool
	records    *repair.Repairer
	project    *repair.Repairer
	audit      storage.AuditRepository
	progress   io.Writer
	clientOpts []extraction.Option
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(p *Pipeline) error {
		p.config = cfg
		return nil
	}
}

// WithPoolSize sets the number of concurrent workers.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.config.Workers = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithAudit records every model attempt and repair failure in repo.
func WithAudit(repo storage.AuditRepository) Option {
	return func(p *Pipeline) error {
		p.audit = repo
		return nil
	}
}

// WithProgress writes progress lines to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithExtractionOptions passes extra options to each run's extraction
// client, after the pipeline's own.
func WithExtractionOptions(opts ...extraction.Option) Option {
	return func(p *Pipeline) error {
		p.clientOpts = append(p.clientOpts, opts...)
		return nil
	}
}

// NewPipeline creates a pipeline for model.
func NewPipeline(model ai.Model, opts ...Option) (*Pipeline, error) {
	if model == nil {
		return nil, ErrModelRequired
	}

	p := &Pipeline{
		model:  model,
		config: DefaultConfig(),
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if err := p.config.Validate(); err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(p.config.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	p.pool = pool

	p.logger = p.logger.With("component", "pipeline")
	p.records = repair.NewRecordRepairer(repair.WithLogger(p.logger))
	p.project = repair.NewProjectRepairer(repair.WithLogger(p.logger))
	return p, nil
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Result is the outcome of one run.
type Result struct {
	Document *core.KnowledgeDocument
	Summary  core.RunSummary
	Metrics  extraction.MetricsSnapshot
}

type task struct {
	chunk core.Chunk
	total int
}

// Run extracts knowledge from files. readme may be empty; when it is not
// and SynthesizeProject is set, a project summary is added to the document.
//
// A failed chunk only marks its file partial. Run returns an error when ctx
// ends, or ErrSystemicFailure when fatal errors across files show that the
// model cannot be reached at all.
func (p *Pipeline) Run(ctx context.Context, files []core.SourceFile, readme string) (*Result, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run", runID)

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	metrics := &extraction.Metrics{}
	clientOpts := []extraction.Option{
		extraction.WithConfig(p.config.Extraction),
		extraction.WithMetrics(metrics),
		extraction.WithLogger(logger),
	}
	if p.audit != nil {
		clientOpts = append(clientOpts, extraction.WithAudit(p.audit, runID))
	}
	client, err := extraction.NewClient(p.model, append(clientOpts, p.clientOpts...)...)
	if err != nil {
		return nil, err
	}

	agg := aggregate.New()
	var pending []task
	chunkedFiles := 0
	for _, file := range files {
		chunks, err := chunker.Split(file, p.config.MaxChunkSize, p.config.Overlap)
		if err != nil {
			return nil, err
		}
		agg.Expect(aggregate.FileManifest{Path: file.Path, Language: file.Language, TotalChunks: len(chunks)})
		if len(chunks) == 0 {
			logger.Debug("skipping empty file", "path", file.Path)
			continue
		}
		chunkedFiles++
		for _, c := range chunks {
			pending = append(pending, task{chunk: c, total: len(chunks)})
		}
	}

	logger.Info("starting extraction", "files", len(files), "chunks", len(pending), "workers", p.config.Workers)

	state := newRunState(p.config.FatalAbortThreshold, chunkedFiles)
	r := &run{
		pipeline: p,
		id:       runID,
		ctx:      runCtx,
		cancel:   cancel,
		client:   client,
		agg:      agg,
		state:    state,
		logger:   logger,
	}
	if p.progress != nil {
		r.tracker = NewProgressTracker(p.progress, p.config.ReportInterval)
	}

	sweeps := 0
	for pass := 0; ; pass++ {
		label := "Extracting"
		if pass > 0 {
			label = fmt.Sprintf("Sweep %d", pass)
		}
		failed := r.dispatch(label, pending)

		if cause := context.Cause(runCtx); errors.Is(cause, ErrSystemicFailure) {
			logger.Error("aborting run", "err", cause)
			return nil, cause
		}
		if err := ctx.Err(); err != nil {
			logger.Warn("run canceled", "err", err)
			return nil, err
		}

		retry := state.sweepable(failed)
		if len(retry) == 0 || pass >= p.config.Sweeps {
			break
		}
		sweeps++
		logger.Info("sweeping failed chunks", "sweep", sweeps, "chunks", len(retry))
		pending = retry
	}

	doc := agg.Document()
	doc.RunID = runID
	doc.GeneratedAt = p.now().UTC()

	if p.config.SynthesizeProject && strings.TrimSpace(readme) != "" {
		doc.Project = r.synthesize(readme)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	state.fillSummary(&doc.Summary)
	doc.Summary.Sweeps = sweeps

	logger.Info("extraction finished",
		"files", doc.Summary.TotalFiles,
		"failedFiles", doc.Summary.FailedFiles,
		"chunks", doc.Summary.TotalChunks,
		"failedChunks", doc.Summary.FailedChunks)

	return &Result{
		Document: doc,
		Summary:  doc.Summary,
		Metrics:  metrics.Snapshot(),
	}, nil
}

// run holds what one Run shares with its workers.
type run struct {
	pipeline *Pipeline
	id       string
	ctx      context.Context
	cancel   context.CancelCauseFunc
	client   *extraction.Client
	agg      *aggregate.Aggregator
	state    *runState
	tracker  *ProgressTracker
	logger   *slog.Logger
}

// dispatch processes tasks on the pool and waits for all of them. It
// returns the tasks that did not produce a record.
func (r *run) dispatch(label string, tasks []task) []task {
	if r.tracker != nil {
		r.tracker.Start(label, len(tasks))
		defer r.tracker.Finish()
	}

	outcomes := make([]core.Outcome, len(tasks))
	var wg sync.WaitGroup
	for i, t := range tasks {
		if r.ctx.Err() != nil {
			for j := i; j < len(tasks); j++ {
				outcomes[j] = core.OutcomeCanceled
				r.state.fail(tasks[j].chunk.Ref(), core.OutcomeCanceled)
			}
			break
		}

		wg.Add(1)
		err := r.pipeline.pool.Submit(func() {
			defer wg.Done()
			outcomes[i] = r.process(t)
		})
		if err != nil {
			wg.Done()
			r.logger.Error("failed to submit chunk", "chunk", t.chunk.Ref().String(), "err", err)
			outcomes[i] = core.OutcomeCanceled
			r.state.fail(t.chunk.Ref(), core.OutcomeCanceled)
		}
	}
	wg.Wait()

	var failed []task
	for i, outcome := range outcomes {
		if outcome != core.OutcomeSuccess {
			failed = append(failed, tasks[i])
		}
	}
	return failed
}

// process extracts and repairs one chunk. It owns the chunk until the
// record is handed to the aggregator.
func (r *run) process(t task) core.Outcome {
	ref := t.chunk.Ref()
	logger := r.logger.With("chunk", ref.String())

	outcome := r.extract(t, logger)
	if r.tracker != nil {
		r.tracker.Done(outcome == core.OutcomeSuccess)
	}
	return outcome
}

func (r *run) extract(t task, logger *slog.Logger) core.Outcome {
	ref := t.chunk.Ref()

	raw, err := r.client.ExtractPart(r.ctx, t.chunk, t.total)
	if err != nil {
		outcome := extraction.OutcomeOf(err)
		r.state.fail(ref, outcome)
		if outcome == core.OutcomeFatal && r.state.fatal(ref) {
			r.cancel(fmt.Errorf("%w: %w", ErrSystemicFailure, err))
		}
		if outcome != core.OutcomeCanceled {
			logger.Error("chunk extraction failed", "outcome", outcome.String(), "err", err)
		}
		return outcome
	}

	fields, err := r.pipeline.records.DecodeRecord(raw)
	if err != nil {
		outcome := outcomeOfRepair(err)
		r.state.fail(ref, outcome)
		r.auditRepair(ref, t.chunk.ID(), outcome, raw, err)
		logger.Error("chunk response could not be repaired", "outcome", outcome.String(), "err", err)
		return outcome
	}

	r.agg.Add(core.ExtractionRecord{Chunk: ref, Fingerprint: t.chunk.ID(), RecordFields: fields, RawText: raw})
	r.state.succeed(ref)
	return core.OutcomeSuccess
}

// auditRepair logs a repair failure with the cleaned text, or the raw text
// when cleaning never ran.
func (r *run) auditRepair(ref core.ChunkRef, fp core.ID, outcome core.Outcome, raw string, err error) {
	audit := r.pipeline.audit
	if audit == nil {
		return
	}

	text := raw
	var rerr *repair.Error
	if errors.As(err, &rerr) && rerr.Cleaned != "" {
		text = rerr.Cleaned
	}
	entry := &core.AuditEntry{
		RunID:       r.id,
		Chunk:       ref,
		Fingerprint: fp,
		Outcome:     outcome,
		Text:        text,
		Error:       err.Error(),
		Timestamp:   r.pipeline.now().UTC(),
	}
	if _, aerr := audit.Append(context.WithoutCancel(r.ctx), entry); aerr != nil {
		r.logger.Warn("failed to write audit entry", "chunk", ref.String(), "err", aerr)
	}
}

// synthesize asks the model for a project summary. Failures leave the
// document without one.
func (r *run) synthesize(readme string) *core.ProjectInfo {
	raw, err := r.client.Complete(r.ctx, readmeRef, extraction.BuildProjectPrompt(readme))
	if err != nil {
		r.logger.Warn("project synthesis failed", "err", err)
		return nil
	}

	info, err := repair.DecodeProject(r.pipeline.project, raw)
	if err != nil {
		r.logger.Warn("project synthesis response could not be repaired", "err", err)
		r.auditRepair(readmeRef, 0, outcomeOfRepair(err), raw, err)
		return nil
	}
	return info
}

func outcomeOfRepair(err error) core.Outcome {
	if errors.Is(err, repair.ErrSchemaInvalid) {
		return core.OutcomeSchemaInvalid
	}
	return core.OutcomeUnparseable
}
