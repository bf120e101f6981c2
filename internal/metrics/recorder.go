package metrics

import "time"

// Recorder defines observability hooks for build sessions and generation.
// Operation labels are build, clean, upload and version; status labels are
// succeeded, failed and canceled.
type Recorder interface {
	ObserveSessionDuration(operation string, d time.Duration)
	IncSessionOutcome(operation, status string)
	IncRecords(severity string, n int)
	ObserveGeneration(template string, lines int)
	IncSpawnRetry(operation string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveSessionDuration(string, time.Duration) {}
func (NoopRecorder) IncSessionOutcome(string, string)             {}
func (NoopRecorder) IncRecords(string, int)                       {}
func (NoopRecorder) ObserveGeneration(string, int)                {}
func (NoopRecorder) IncSpawnRetry(string)                         {}
