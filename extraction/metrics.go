package extraction

import (
	"sync/atomic"

	"github.com/poiesic/codemine/core"
)

// Metrics counts attempts and final results. Safe for concurrent use; one
// instance may be shared by several clients.
type Metrics struct {
	attempts    atomic.Int64
	successes   atomic.Int64
	rateLimited atomic.Int64
	transient   atomic.Int64
	fatal       atomic.Int64
	canceled    atomic.Int64
	gaveUp      atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Attempts    int64 `json:"attempts"`
	Successes   int64 `json:"successes"`
	RateLimited int64 `json:"rate_limited"`
	Transient   int64 `json:"transient"`
	Fatal       int64 `json:"fatal"`
	Canceled    int64 `json:"canceled"`
	GaveUp      int64 `json:"gave_up"`
}

func (m *Metrics) observe(outcome core.Outcome) {
	m.attempts.Add(1)
	switch outcome {
	case core.OutcomeSuccess:
		m.successes.Add(1)
	case core.OutcomeRateLimited:
		m.rateLimited.Add(1)
	case core.OutcomeTransient:
		m.transient.Add(1)
	case core.OutcomeFatal:
		m.fatal.Add(1)
	case core.OutcomeCanceled:
		m.canceled.Add(1)
	}
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Attempts:    m.attempts.Load(),
		Successes:   m.successes.Load(),
		RateLimited: m.rateLimited.Load(),
		Transient:   m.transient.Load(),
		Fatal:       m.fatal.Load(),
		Canceled:    m.canceled.Load(),
		GaveUp:      m.gaveUp.Load(),
	}
}
