package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveSessionDuration("build", 42*time.Second)
	pr.IncSessionOutcome("build", "succeeded")
	pr.IncSessionOutcome("build", "succeeded")
	pr.IncRecords("info", 10)
	pr.IncRecords("error", 0)
	pr.ObserveGeneration("Configuration.h", 120)
	pr.IncSpawnRetry("upload")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)

	values := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[mf.GetName()] += m.GetGauge().GetValue()
			}
		}
	}
	assert.InDelta(t, 2, values["fwbuilder_session_outcomes_total"], 0)
	assert.InDelta(t, 10, values["fwbuilder_log_records_total"], 0)
	assert.InDelta(t, 120, values["fwbuilder_generated_lines"], 0)
	assert.InDelta(t, 1, values["fwbuilder_spawn_retries_total"], 0)
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveSessionDuration("build", time.Second)
	pr.IncSessionOutcome("build", "failed")
	pr.IncRecords("error", 1)
	pr.ObserveGeneration("Configuration.h", 1)
	pr.IncSpawnRetry("build")
}

func TestWriteTextfile(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncSessionOutcome("clean", "canceled")

	path := filepath.Join(t.TempDir(), "textfile", "fwbuilder.prom")
	require.NoError(t, WriteTextfile(path, reg))

	// #nosec G304 -- path is controlled by test.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `fwbuilder_session_outcomes_total{operation="clean",status="canceled"} 1`))
}

func TestTestRecorderCounts(t *testing.T) {
	rec := newTestRecorder()
	var r Recorder = rec
	r.IncSessionOutcome("build", "failed")
	r.IncRecords("error", 3)
	r.IncRecords("error", 2)
	assert.Equal(t, 1, rec.outcomes["build/failed"])
	assert.Equal(t, 5, rec.records["error"])
}
