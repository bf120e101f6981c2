package metrics

import (
	"sync"
	"time"
)

// testRecorder counts calls; used to check the Recorder contract shape.
type testRecorder struct {
	mu          sync.Mutex
	durations   map[string]int
	outcomes    map[string]int
	records     map[string]int
	generations map[string]int
	retries     map[string]int
}

var _ Recorder = (*testRecorder)(nil)
var _ Recorder = NoopRecorder{}
var _ Recorder = (*PrometheusRecorder)(nil)

func newTestRecorder() *testRecorder {
	return &testRecorder{
		durations:   map[string]int{},
		outcomes:    map[string]int{},
		records:     map[string]int{},
		generations: map[string]int{},
		retries:     map[string]int{},
	}
}

func (t *testRecorder) ObserveSessionDuration(op string, _ time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.durations[op]++
}

func (t *testRecorder) IncSessionOutcome(op, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcomes[op+"/"+status]++
}

func (t *testRecorder) IncRecords(severity string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[severity] += n
}

func (t *testRecorder) ObserveGeneration(template string, _ int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generations[template]++
}

func (t *testRecorder) IncSpawnRetry(op string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retries[op]++
}
