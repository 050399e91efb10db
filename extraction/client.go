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


package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"github.com/poiesic/codemine/ai"
	"github.com/poiesic/codemine/core"
	"github.com/poiesic/codemine/storage"
)

// Sleeper waits for d or until ctx is done, returning ctx's error in the latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client calls a model for one chunk at a time with retries.
// It is safe for concurrent use.
type Client struct {
	model   ai.Model
	config  Config
	limiter *rate.Limiter
	audit   storage.AuditRepository
	runID   string
	metrics *Metrics
	logger  *slog.Logger
	sleep   Sleeper
	jitter  func() float64
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithConfig sets retry, pacing and timeout configuration.
func WithConfig(cfg Config) Option {
	return func(c *Client) {
		c.config = cfg
	}
}

// WithAudit appends every attempt to repo under runID.
func WithAudit(repo storage.AuditRepository, runID string) Option {
	return func(c *Client) {
		c.audit = repo
		c.runID = runID
	}
}

// WithMetrics counts attempts into m instead of a private instance.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSleeper replaces the backoff timer. Tests use it to observe delays
// without waiting.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		c.sleep = s
	}
}

// WithJitterSource replaces the uniform [0, 1) source used for jitter.
func WithJitterSource(fn func() float64) Option {
	return func(c *Client) {
		c.jitter = fn
	}
}

// NewClient creates a Client for model.
func NewClient(model ai.Model, opts ...Option) (*Client, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: model is required", core.ErrInvalidConfig)
	}

	c := &Client{
		model:  model,
		config: DefaultConfig(),
		logger: slog.Default(),
		sleep:  sleepContext,
		jitter: rand.Float64,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.config.Validate(); err != nil {
		return nil, err
	}
	if c.metrics == nil {
		c.metrics = &Metrics{}
	}
	if c.config.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(c.config.RequestsPerSecond), c.config.Burst)
	}
	c.logger = c.logger.With("component", "extraction")
	return c, nil
}

// Metrics returns the client's counters.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// Extract sends chunk to the model and returns the raw reply text.
func (c *Client) Extract(ctx context.Context, chunk core.Chunk) (string, error) {
	return c.ExtractPart(ctx, chunk, 0)
}

// ExtractPart is Extract with the number of chunks in the file, which is
// included in the prompt.
func (c *Client) ExtractPart(ctx context.Context, chunk core.Chunk, total int) (string, error) {
	return c.complete(ctx, chunk.Ref(), chunk.ID(), BuildPrompt(chunk, total))
}

// Complete sends req with the client's retry policy. ref identifies the
// request in logs and the audit log.
func (c *Client) Complete(ctx context.Context, ref core.ChunkRef, req ai.Request) (string, error) {
	return c.complete(ctx, ref, 0, req)
}

// complete runs the retry loop. fp is recorded with every attempt.
func (c *Client) complete(ctx context.Context, ref core.ChunkRef, fp core.ID, req ai.Request) (string, error) {
	logger := c.logger.With("chunk", ref.String())

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", c.canceled(ctx, ref, fp, attempt-1, err)
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", c.canceled(ctx, ref, fp, attempt-1, err)
			}
		}

		text, err := c.attempt(ctx, req)
		if err == nil {
			c.record(ctx, core.ExtractionAttempt{Chunk: ref, Fingerprint: fp, Number: attempt, Outcome: core.OutcomeSuccess, RawText: text})
			if attempt > 1 {
				logger.Debug("extraction succeeded after retry", "attempt", attempt)
			}
			return text, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			c.record(ctx, core.ExtractionAttempt{Chunk: ref, Fingerprint: fp, Number: attempt, Outcome: core.OutcomeCanceled, Err: err})
			return "", &Error{Chunk: ref, Attempts: attempt, Outcome: core.OutcomeCanceled, Err: ctxErr}
		}

		kind := ai.KindOf(err)
		outcome := outcomeForKind(kind)
		c.record(ctx, core.ExtractionAttempt{Chunk: ref, Fingerprint: fp, Number: attempt, Outcome: outcome, Err: err})

		if !kind.Retryable() {
			logger.Error("fatal model error", "attempt", attempt, "err", err)
			return "", &Error{Chunk: ref, Attempts: attempt, Outcome: core.OutcomeFatal, Err: err}
		}

		lastErr = err

		// Don't sleep after the last attempt
		if attempt == c.config.MaxAttempts {
			break
		}

		delay := c.Delay(attempt)
		logger.Warn("model call failed, will retry",
			"attempt", attempt,
			"maxAttempts", c.config.MaxAttempts,
			"outcome", outcome.String(),
			"delay", delay,
			"err", err)

		if err := c.sleep(ctx, delay); err != nil {
			return "", &Error{Chunk: ref, Attempts: attempt, Outcome: core.OutcomeCanceled, Err: err}
		}
	}

	c.metrics.gaveUp.Add(1)
	logger.Error("giving up on chunk", "attempts", c.config.MaxAttempts, "err", lastErr)
	return "", &Error{Chunk: ref, Attempts: c.config.MaxAttempts, Outcome: outcomeForKind(ai.KindOf(lastErr)), Err: lastErr}
}

// attempt runs one model call under the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, req ai.Request) (string, error) {
	actx, cancel := context.WithTimeout(ctx, c.config.AttemptTimeout)
	defer cancel()

	text, err := c.model.Complete(actx, req)
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		return "", ai.NewModelError(ai.KindTransient,
			fmt.Errorf("attempt timed out after %s: %w", c.config.AttemptTimeout, err))
	}
	return text, err
}

// Delay returns the backoff after failed attempt number attempt (1-based).
func (c *Client) Delay(attempt int) time.Duration {
	return backoff(c.config, attempt, c.jitter())
}

func backoff(cfg Config, attempt int, u float64) time.Duration {
	step := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt-1))
	d := step + u*cfg.JitterFraction*step
	if d >= float64(cfg.MaxDelay) {
		return cfg.MaxDelay
	}
	return time.Duration(d)
}

// canceled builds the error for a context that ended before a model call.
// No attempt was made, so only the canceled counter moves.
func (c *Client) canceled(ctx context.Context, ref core.ChunkRef, fp core.ID, attempts int, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	c.metrics.canceled.Add(1)
	c.appendAudit(ctx, core.ExtractionAttempt{Chunk: ref, Fingerprint: fp, Number: attempts + 1, Outcome: core.OutcomeCanceled, Err: err})
	return &Error{Chunk: ref, Attempts: attempts, Outcome: core.OutcomeCanceled, Err: err}
}

// record counts the attempt and appends it to the audit log.
func (c *Client) record(ctx context.Context, a core.ExtractionAttempt) {
	c.metrics.observe(a.Outcome)
	c.appendAudit(ctx, a)
}

// appendAudit writes a to the audit log. Failures are logged and otherwise
// ignored; the entry is written even when ctx is already canceled.
func (c *Client) appendAudit(ctx context.Context, a core.ExtractionAttempt) {
	if c.audit == nil {
		return
	}
	a.Timestamp = c.now().UTC()
	entry := core.AuditEntryFromAttempt(c.runID, a)
	if _, err := c.audit.Append(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.Warn("failed to write audit entry", "chunk", a.Chunk.String(), "attempt", a.Number, "err", err)
	}
}

func outcomeForKind(kind ai.ErrorKind) core.Outcome {
	switch kind {
	case ai.KindRateLimited:
		return core.OutcomeRateLimited
	case ai.KindFatal:
		return core.OutcomeFatal
	default:
		return core.OutcomeTransient
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
