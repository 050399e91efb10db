package extraction

import (
	"fmt"
	"time"

	"github.com/poiesic/codemine/core"
)

// Config controls retries, pacing and timeouts.
type Config struct {
	// MaxAttempts is the total number of calls per chunk, first try included.
	MaxAttempts int

	// BaseDelay is the backoff before the second attempt.
	BaseDelay time.Duration

	// MaxDelay caps any single backoff.
	MaxDelay time.Duration

	// JitterFraction scales the random part of each backoff, in [0, 1].
	JitterFraction float64

	// AttemptTimeout bounds one model call. An attempt that runs out of time
	// counts as a transient failure.
	AttemptTimeout time.Duration

	// RequestsPerSecond throttles calls before they are made. Zero disables it.
	RequestsPerSecond float64

	// Burst is the limiter's bucket size when RequestsPerSecond is set.
	Burst int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    5,
		BaseDelay:      5 * time.Second,
		MaxDelay:       60 * time.Second,
		JitterFraction: 0.5,
		AttemptTimeout: 60 * time.Second,
		Burst:          1,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max attempts must be positive, got %d", core.ErrInvalidConfig, c.MaxAttempts)
	}
	if c.BaseDelay < 0 {
		return fmt.Errorf("%w: base delay cannot be negative", core.ErrInvalidConfig)
	}
	if c.MaxDelay < c.BaseDelay {
		return fmt.Errorf("%w: max delay %s is below base delay %s", core.ErrInvalidConfig, c.MaxDelay, c.BaseDelay)
	}
	if c.JitterFraction < 0 || c.JitterFraction > 1 {
		return fmt.Errorf("%w: jitter fraction must be in [0, 1], got %v", core.ErrInvalidConfig, c.JitterFraction)
	}
	if c.AttemptTimeout <= 0 {
		return fmt.Errorf("%w: attempt timeout must be positive", core.ErrInvalidConfig)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests per second cannot be negative", core.ErrInvalidConfig)
	}
	if c.RequestsPerSecond > 0 && c.Burst <= 0 {
		return fmt.Errorf("%w: burst must be positive when throttling", core.ErrInvalidConfig)
	}
	return nil
}
