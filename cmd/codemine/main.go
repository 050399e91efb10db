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


package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/codemine"
	"github.com/poiesic/codemine/ai/openai"
	"github.com/poiesic/codemine/chunker"
	"github.com/poiesic/codemine/config"
	"github.com/poiesic/codemine/core"
	"github.com/poiesic/codemine/pipeline"
	"github.com/poiesic/codemine/sink"
	"github.com/poiesic/codemine/source"
	"github.com/poiesic/codemine/storage/badger"
)

// newProvider creates the model provider. Tests replace it.
var newProvider = openai.NewProvider

// logFile is the open --log-file, closed by closeLogger.
var logFile *os.File

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "codemine",
		Usage: "Extract structured knowledge from a source repository with a language model",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "Also write logs to this file",
				EnvVars: []string{"LOG_FILE"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file",
				EnvVars: []string{"CODEMINE_CONFIG"},
			},
		},
		Before: setupLogger,
		After:  closeLogger,
		Commands: []*cli.Command{
			{
				Name:   "extract",
				Usage:  "Extract knowledge from a repository and write it as JSON",
				Action: extractCommand,
				Flags:  append(sourceFlags(), extractFlags()...),
			},
			{
				Name:   "plan",
				Usage:  "Show how a repository would be chunked without calling the model",
				Action: planCommand,
				Flags:  append(sourceFlags(), chunkFlags()...),
			},
			{
				Name:   "audit",
				Usage:  "List runs or the attempts recorded for a run",
				Action: auditCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "audit-dir",
						Aliases: []string{"d"},
						Usage:   "Path to the audit log directory",
					},
					&cli.StringFlag{
						Name:  "run",
						Usage: "Run ID to show; lists runs when empty",
					},
					&cli.StringFlag{
						Name:  "chunk",
						Usage: "Only show attempts for this chunk (file#index)",
					},
					&cli.BoolFlag{
						Name:  "text",
						Usage: "Include the recorded model text",
					},
				},
			},
		},
	}
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "repo-url",
			Usage:   "Repository to clone; the target directory is used as is when empty",
			EnvVars: []string{"REPO_URL"},
		},
		&cli.StringFlag{
			Name:    "target-dir",
			Aliases: []string{"t"},
			Usage:   "Directory holding the repository",
			EnvVars: []string{"TARGET_DIR"},
		},
		&cli.Int64Flag{
			Name:  "max-file-size",
			Usage: "Skip files larger than this many bytes (0 for no limit)",
		},
	}
}

func chunkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "max-chunk-size",
			Usage: "Largest chunk in characters",
		},
		&cli.IntFlag{
			Name:  "overlap",
			Usage: "Characters shared by adjacent chunks",
		},
	}
}

func extractFlags() []cli.Flag {
	return append(chunkFlags(),
		&cli.StringFlag{
			Name:    "host",
			Usage:   "OpenAI-compatible API host URL",
			EnvVars: []string{"CODEMINE_HOST", "OPENAI_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "model",
			Aliases: []string{"m"},
			Usage:   "Chat model name",
			EnvVars: []string{"CODEMINE_MODEL"},
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "API key",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Where to write the knowledge document",
		},
		&cli.StringFlag{
			Name:  "audit-dir",
			Usage: "Where to keep the audit log of model attempts",
		},
		&cli.BoolFlag{
			Name:  "no-audit",
			Usage: "Do not keep an audit log",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Number of chunks extracted concurrently",
		},
		&cli.IntFlag{
			Name:  "max-attempts",
			Usage: "Maximum model calls per chunk",
		},
		&cli.DurationFlag{
			Name:  "base-delay",
			Usage: "Backoff before the second attempt",
		},
		&cli.DurationFlag{
			Name:  "attempt-timeout",
			Usage: "Time limit for one model call",
		},
		&cli.Float64Flag{
			Name:  "requests-per-second",
			Usage: "Throttle model calls (0 for no limit)",
		},
		&cli.IntFlag{
			Name:  "sweeps",
			Usage: "Extra passes over chunks that failed",
		},
		&cli.BoolFlag{
			Name:  "no-project",
			Usage: "Skip the README summary",
		},
		&cli.BoolFlag{
			Name:  "strip-raw",
			Usage: "Leave raw model text out of the document",
		},
	)
}

// loadConfig layers the config file and the command's flags over the
// defaults. Flags set through their environment variables count as set.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}

	if c.IsSet("repo-url") {
		cfg.Source.RepoURL = c.String("repo-url")
	}
	if c.IsSet("target-dir") {
		cfg.Source.TargetDir = c.String("target-dir")
	}
	if c.IsSet("max-file-size") {
		cfg.Source.MaxFileSize = c.Int64("max-file-size")
	}
	if c.IsSet("max-chunk-size") {
		cfg.Pipeline.MaxChunkSize = c.Int("max-chunk-size")
	}
	if c.IsSet("overlap") {
		cfg.Pipeline.Overlap = c.Int("overlap")
	}
	if c.IsSet("host") {
		cfg.Model.Host = c.String("host")
	}
	if c.IsSet("model") {
		cfg.Model.Name = c.String("model")
	}
	if c.IsSet("token") {
		cfg.Model.Token = c.String("token")
	}
	if c.IsSet("output") {
		cfg.Output.Path = c.String("output")
	}
	if c.IsSet("audit-dir") {
		cfg.Output.AuditDir = c.String("audit-dir")
	}
	if c.Bool("no-audit") {
		cfg.Output.AuditDir = ""
	}
	if c.IsSet("workers") {
		cfg.Pipeline.Workers = c.Int("workers")
	}
	if c.IsSet("max-attempts") {
		cfg.Model.MaxAttempts = c.Int("max-attempts")
	}
	if c.IsSet("base-delay") {
		cfg.Model.BaseDelay = config.Duration{Duration: c.Duration("base-delay")}
	}
	if c.IsSet("attempt-timeout") {
		cfg.Model.AttemptTimeout = config.Duration{Duration: c.Duration("attempt-timeout")}
	}
	if c.IsSet("requests-per-second") {
		cfg.Model.RequestsPerSecond = c.Float64("requests-per-second")
	}
	if c.IsSet("sweeps") {
		cfg.Pipeline.Sweeps = c.Int("sweeps")
	}
	if c.Bool("no-project") {
		cfg.Pipeline.SynthesizeProject = false
	}
	if c.Bool("strip-raw") {
		cfg.Output.StripRawText = true
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// readSource clones the repository when a URL is configured and reads its
// source files and README.
func readSource(ctx context.Context, cfg config.Config) ([]core.SourceFile, string, error) {
	dir := cfg.Source.TargetDir
	if dir == "" {
		return nil, "", fmt.Errorf("target directory is required")
	}

	if cfg.Source.RepoURL != "" {
		if _, err := source.NewCloner().Clone(ctx, cfg.Source.RepoURL, dir); err != nil {
			return nil, "", fmt.Errorf("failed to clone repository: %w", err)
		}
	}

	walker := source.NewWalker(
		source.WithExtensions(cfg.Source.Extensions),
		source.WithMaxFileSize(cfg.Source.MaxFileSize),
	)
	files, err := walker.Walk(ctx, dir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read source files: %w", err)
	}

	readme, err := source.ReadReadme(dir)
	if err != nil {
		slog.Warn("failed to read README", "err", err)
	}
	return files, readme, nil
}

func extractCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	files, readme, err := readSource(ctx, cfg)
	if err != nil {
		return err
	}

	provider, err := newProvider(cfg.AI())
	if err != nil {
		return fmt.Errorf("failed to create model provider: %w", err)
	}

	opts := []codemine.ExtractorOption{
		codemine.WithProvider(provider),
		codemine.WithLogger(slog.Default()),
	}
	if cfg.Output.AuditDir != "" {
		opts = append(opts, codemine.WithAuditDir(cfg.Output.AuditDir))
	}
	extractor, err := codemine.NewExtractor(opts...)
	if err != nil {
		provider.Close()
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer extractor.Close()

	errw := c.App.ErrWriter
	fmt.Fprintf(errw, "Source: %s (%d files)\n", cfg.Source.TargetDir, len(files))
	fmt.Fprintf(errw, "Model: %s at %s\n", cfg.Model.Name, cfg.AI().Host)
	fmt.Fprintln(errw)

	start := time.Now()
	result, err := extractor.Extract(ctx, files, readme,
		pipeline.WithConfig(cfg.PipelineConfig()),
		pipeline.WithProgress(errw),
	)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	var sinkOpts []sink.Option
	if cfg.Output.StripRawText {
		sinkOpts = append(sinkOpts, sink.WithoutRawText())
	}
	if err := sink.WriteJSON(cfg.Output.Path, result.Document, sinkOpts...); err != nil {
		return fmt.Errorf("failed to write knowledge document: %w", err)
	}

	printSummary(c.App.Writer, result, cfg.Output.Path, time.Since(start))
	return nil
}

func printSummary(w io.Writer, result *pipeline.Result, path string, elapsed time.Duration) {
	s := result.Summary
	fmt.Fprintf(w, "Run: %s\n", result.Document.RunID)
	fmt.Fprintf(w, "Files: %d (%d partial)\n", s.TotalFiles, s.FailedFiles)
	fmt.Fprintf(w, "Chunks: %d (%d failed)\n", s.TotalChunks, s.FailedChunks)
	if s.FailedChunks > 0 {
		fmt.Fprintf(w, "Failures: gave up %d, fatal %d, unparseable %d, schema invalid %d, canceled %d\n",
			s.GaveUp, s.Fatal, s.Unparseable, s.SchemaInvalid, s.Canceled)
	}
	fmt.Fprintf(w, "Model calls: %d (%d rate limited, %d transient errors)\n",
		result.Metrics.Attempts, result.Metrics.RateLimited, result.Metrics.Transient)
	fmt.Fprintf(w, "Wrote %s in %s\n", path, elapsed.Round(time.Millisecond))
}

func planCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	files, _, err := readSource(c.Context, cfg)
	if err != nil {
		return err
	}

	w := c.App.Writer
	total := 0
	for _, f := range files {
		chunks, err := chunker.Split(f, cfg.Pipeline.MaxChunkSize, cfg.Pipeline.Overlap)
		if err != nil {
			return err
		}
		total += len(chunks)
		fmt.Fprintf(w, "%s\t%s\t%d\n", f.Path, f.Language, len(chunks))
	}
	fmt.Fprintf(w, "%d files, %d chunks\n", len(files), total)
	return nil
}

func auditCommand(c *cli.Context) error {
	dir := c.String("audit-dir")
	if dir == "" {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}
		dir = cfg.Output.AuditDir
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("audit log not found: %w", err)
	}

	backend, err := badger.OpenBackend(dir, false)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer backend.Close()

	repo, err := badger.NewAuditRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	ctx := c.Context
	w := c.App.Writer

	runID := c.String("run")
	if runID == "" {
		runs, err := repo.Runs(ctx)
		if err != nil {
			return err
		}
		for _, run := range runs {
			fmt.Fprintln(w, run)
		}
		return nil
	}

	var entries []*core.AuditEntry
	if ref := c.String("chunk"); ref != "" {
		chunk, err := core.ParseChunkRef(ref)
		if err != nil {
			return err
		}
		entries, err = repo.ListByChunk(ctx, runID, chunk)
		if err != nil {
			return err
		}
	} else {
		entries, err = repo.ListByRun(ctx, runID)
		if err != nil {
			return err
		}
	}

	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\tattempt=%d\t%s", e.Timestamp.Format(time.RFC3339), e.Chunk, e.Attempt, e.Outcome)
		if e.Error != "" {
			fmt.Fprintf(w, "\t%s", e.Error)
		}
		fmt.Fprintln(w)
		if c.Bool("text") && e.Text != "" {
			fmt.Fprintln(w, e.Text)
		}
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	var out io.Writer = os.Stderr
	if path := c.String("log-file"); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		out = io.MultiWriter(os.Stderr, f)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func closeLogger(c *cli.Context) error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}
