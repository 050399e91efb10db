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
	"fmt"

	"github.com/poiesic/codemine/chunker"
	"github.com/poiesic/codemine/core"
	"github.com/poiesic/codemine/extraction"
)

// Config holds configuration for a pipeline run.
type Config struct {
	// Workers is the number of chunks extracted concurrently
	Workers int

	// MaxChunkSize is the largest chunk in characters
	MaxChunkSize int

	// Overlap is the number of characters shared by adjacent chunks
	Overlap int

	// FatalAbortThreshold is how many fatal chunk failures, seen before any
	// success, abort the run. Zero disables the check.
	FatalAbortThreshold int

	// Sweeps is how many extra passes are made over chunks that gave up or
	// failed repair
	Sweeps int

	// SynthesizeProject enables the README summary call
	SynthesizeProject bool

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// Extraction configures retries and timeouts of each model call
	Extraction extraction.Config
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:             2,
		MaxChunkSize:        chunker.DefaultMaxChunkSize,
		Overlap:             chunker.DefaultOverlap,
		FatalAbortThreshold: 3,
		SynthesizeProject:   true,
		ReportInterval:      10,
		Extraction:          extraction.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", core.ErrInvalidConfig, c.Workers)
	}
	if err := chunker.ValidateSizes(c.MaxChunkSize, c.Overlap); err != nil {
		return err
	}
	if c.FatalAbortThreshold < 0 {
		return fmt.Errorf("%w: fatal abort threshold cannot be negative", core.ErrInvalidConfig)
	}
	if c.Sweeps < 0 {
		return fmt.Errorf("%w: sweeps cannot be negative", core.ErrInvalidConfig)
	}
	if c.ReportInterval < 1 {
		return fmt.Errorf("%w: report interval must be at least 1", core.ErrInvalidConfig)
	}
	return c.Extraction.Validate()
}
