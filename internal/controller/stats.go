// internal/controller/stats.go
package controller

import (
	"sync"

	"github.com/xkilldash9x/replay-cli/api/schemas"
)

// statsAccumulator holds the per-run counters behind a lock so tests running
// concurrent controllers never interfere. It is owned by the controller and
// exposed only as a value copy.
type statsAccumulator struct {
	mu    sync.Mutex
	stats schemas.RunStatistics
}

func (s *statsAccumulator) record(result *schemas.ExecutionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalSteps++
	switch {
	case result.Skipped:
		s.stats.Skipped++
	case result.Method == schemas.MethodSnippet && result.Success:
		s.stats.ScriptedSuccesses++
	case result.Method == schemas.MethodSnippet:
		s.stats.ScriptedFailures++
	case result.Success:
		// ai and hybrid both ran the AI path to completion.
		s.stats.AISuccesses++
	default:
		s.stats.AIFailures++
	}
}

// recordScriptedFailure counts a scripted failure that was subsequently
// handed to recovery, so the scripted tier's miss is still visible in the
// post-run report.
func (s *statsAccumulator) recordScriptedFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.ScriptedFailures++
}

func (s *statsAccumulator) snapshot() schemas.RunStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *statsAccumulator) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = schemas.RunStatistics{}
}
