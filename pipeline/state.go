package pipeline

import (
	"sync"

	"github.com/poiesic/codemine/core"
)

// runState tracks chunk failures across workers and sweeps.
type runState struct {
	mu         sync.Mutex
	threshold  int
	files      int
	succeeded  bool
	fatalCount int
	fatalFiles map[string]struct{}
	failures   map[core.ChunkRef]core.Outcome
}

func newRunState(threshold, files int) *runState {
	return &runState{
		threshold:  threshold,
		files:      files,
		fatalFiles: make(map[string]struct{}),
		failures:   make(map[core.ChunkRef]core.Outcome),
	}
}

func (s *runState) fail(ref core.ChunkRef, outcome core.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[ref] = outcome
}

func (s *runState) succeed(ref core.ChunkRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.succeeded = true
	delete(s.failures, ref)
}

// fatal counts a fatal chunk failure and reports whether the run should be
// aborted: the threshold is reached before any success, and the failures
// span two files, or every file when there are fewer.
func (s *runState) fatal(ref core.ChunkRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.threshold == 0 || s.succeeded {
		return false
	}
	s.fatalCount++
	s.fatalFiles[ref.File] = struct{}{}
	if s.fatalCount < s.threshold {
		return false
	}
	return len(s.fatalFiles) >= min(2, s.files)
}

// sweepable returns the failed tasks worth another pass. Fatal and
// canceled chunks are not.
func (s *runState) sweepable(failed []task) []task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var retry []task
	for _, t := range failed {
		switch s.failures[t.chunk.Ref()] {
		case core.OutcomeFatal, core.OutcomeCanceled:
			continue
		}
		retry = append(retry, t)
	}
	return retry
}

// fillSummary adds failure counts by outcome. Chunks whose last attempt
// could still have been retried count as gave up.
func (s *runState) fillSummary(summary *core.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, outcome := range s.failures {
		switch {
		case outcome.Retryable():
			summary.GaveUp++
		case outcome == core.OutcomeFatal:
			summary.Fatal++
		case outcome == core.OutcomeUnparseable:
			summary.Unparseable++
		case outcome == core.OutcomeSchemaInvalid:
			summary.SchemaInvalid++
		case outcome == core.OutcomeCanceled:
			summary.Canceled++
		}
	}
}
