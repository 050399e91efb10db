// Package config loads codemine settings from a TOML file and .env files.
//
// Values are layered: built-in defaults, then the TOML file, then whatever
// the caller applies from the environment or command line.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/poiesic/codemine/ai"
	"github.com/poiesic/codemine/core"
	"github.com/poiesic/codemine/extraction"
	"github.com/poiesic/codemine/pipeline"
	"github.com/poiesic/codemine/sink"
	"github.com/poiesic/codemine/source"
)

// Duration is a time.Duration written as a string ("5s", "1m30s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the complete settings tree.
type Config struct {
	Model    ModelConfig    `toml:"model"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Source   SourceConfig   `toml:"source"`
	Output   OutputConfig   `toml:"output"`
	Log      LogConfig      `toml:"log"`
}

// ModelConfig selects the model backend and its call policy.
type ModelConfig struct {
	Host              string   `toml:"host"`
	Name              string   `toml:"name"`
	Token             string   `toml:"token"`
	Temperature       float64  `toml:"temperature"`
	MaxTokens         int      `toml:"max_tokens"`
	MaxAttempts       int      `toml:"max_attempts"`
	BaseDelay         Duration `toml:"base_delay"`
	MaxDelay          Duration `toml:"max_delay"`
	JitterFraction    float64  `toml:"jitter_fraction"`
	AttemptTimeout    Duration `toml:"attempt_timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
}

// PipelineConfig controls chunking and concurrency.
type PipelineConfig struct {
	Workers             int  `toml:"workers"`
	MaxChunkSize        int  `toml:"max_chunk_size"`
	Overlap             int  `toml:"overlap"`
	FatalAbortThreshold int  `toml:"fatal_abort_threshold"`
	Sweeps              int  `toml:"sweeps"`
	SynthesizeProject   bool `toml:"synthesize_project"`
	ReportInterval      int  `toml:"report_interval"`
}

// SourceConfig says where the code comes from.
type SourceConfig struct {
	RepoURL     string   `toml:"repo_url"`
	TargetDir   string   `toml:"target_dir"`
	Extensions  []string `toml:"extensions"`
	MaxFileSize int64    `toml:"max_file_size"`
}

// OutputConfig says where results go.
type OutputConfig struct {
	Path         string `toml:"path"`
	AuditDir     string `toml:"audit_dir"`
	StripRawText bool   `toml:"strip_raw_text"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	model := ai.DefaultConfig()
	p := pipeline.DefaultConfig()
	x := p.Extraction

	return Config{
		Model: ModelConfig{
			Host:              model.Host,
			Name:              model.Model,
			Token:             model.Token,
			Temperature:       model.Temperature,
			MaxTokens:         model.MaxTokens,
			MaxAttempts:       x.MaxAttempts,
			BaseDelay:         Duration{x.BaseDelay},
			MaxDelay:          Duration{x.MaxDelay},
			JitterFraction:    x.JitterFraction,
			AttemptTimeout:    Duration{x.AttemptTimeout},
			RequestsPerSecond: x.RequestsPerSecond,
			Burst:             x.Burst,
		},
		Pipeline: PipelineConfig{
			Workers:             p.Workers,
			MaxChunkSize:        p.MaxChunkSize,
			Overlap:             p.Overlap,
			FatalAbortThreshold: p.FatalAbortThreshold,
			Sweeps:              p.Sweeps,
			SynthesizeProject:   p.SynthesizeProject,
			ReportInterval:      p.ReportInterval,
		},
		Source: SourceConfig{
			Extensions:  append([]string(nil), core.SourceExtensions...),
			MaxFileSize: source.DefaultMaxFileSize,
		},
		Output: OutputConfig{
			Path:     sink.DefaultPath,
			AuditDir: "output/audit",
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses TOML data into cfg, keeping values the data doesn't set.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}
	return nil
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// LoadDotEnv loads environment variables from .env files into the process
// environment. Variables already set are kept. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// AI returns the model backend configuration.
func (c Config) AI() *ai.Config {
	cfg := ai.NewConfig(
		ai.WithHost(c.Model.Host),
		ai.WithModel(c.Model.Name),
		ai.WithToken(c.Model.Token),
		ai.WithTemperature(c.Model.Temperature),
		ai.WithMaxTokens(c.Model.MaxTokens),
	)
	cfg.Normalize()
	return cfg
}

// PipelineConfig returns the orchestrator configuration.
func (c Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		Workers:             c.Pipeline.Workers,
		MaxChunkSize:        c.Pipeline.MaxChunkSize,
		Overlap:             c.Pipeline.Overlap,
		FatalAbortThreshold: c.Pipeline.FatalAbortThreshold,
		Sweeps:              c.Pipeline.Sweeps,
		SynthesizeProject:   c.Pipeline.SynthesizeProject,
		ReportInterval:      c.Pipeline.ReportInterval,
		Extraction: extraction.Config{
			MaxAttempts:       c.Model.MaxAttempts,
			BaseDelay:         c.Model.BaseDelay.Duration,
			MaxDelay:          c.Model.MaxDelay.Duration,
			JitterFraction:    c.Model.JitterFraction,
			AttemptTimeout:    c.Model.AttemptTimeout.Duration,
			RequestsPerSecond: c.Model.RequestsPerSecond,
			Burst:             c.Model.Burst,
		},
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.AI().Validate(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}
	if err := c.PipelineConfig().Validate(); err != nil {
		return err
	}
	if c.Output.Path == "" {
		return fmt.Errorf("%w: output path is required", core.ErrInvalidConfig)
	}
	if len(c.Source.Extensions) == 0 {
		return fmt.Errorf("%w: at least one source extension is required", core.ErrInvalidConfig)
	}
	if c.Source.MaxFileSize < 0 {
		return fmt.Errorf("%w: max file size cannot be negative", core.ErrInvalidConfig)
	}
	return nil
}
