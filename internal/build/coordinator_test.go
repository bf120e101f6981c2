package build

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/fwbuilder/internal/config"
	"git.home.luguber.info/inful/fwbuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/generate"
	"git.home.luguber.info/inful/fwbuilder/internal/option"
	"git.home.luguber.info/inful/fwbuilder/internal/orchestrator"
	"git.home.luguber.info/inful/fwbuilder/internal/platformio"
	"git.home.luguber.info/inful/fwbuilder/internal/project"
	"git.home.luguber.info/inful/fwbuilder/internal/retry"
	"git.home.luguber.info/inful/fwbuilder/internal/templates"
	"git.home.luguber.info/inful/fwbuilder/internal/testshell"
)

const successLine = "========== [SUCCESS] Took 4.21 seconds succeeded =========="

type recordingSink struct {
	mu       sync.Mutex
	events   []string
	records  []orchestrator.LogRecord
	finished []orchestrator.Result
}

func (s *recordingSink) Started(info SessionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "started")
}

func (s *recordingSink) Record(_ string, rec orchestrator.LogRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "record")
	s.records = append(s.records, rec)
}

func (s *recordingSink) Finished(_ SessionInfo, res orchestrator.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "finished")
	s.finished = append(s.finished, res)
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	records  map[string]int
	retries  int
	sessions int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{outcomes: map[string]int{}, records: map[string]int{}}
}

func (r *countingRecorder) ObserveSessionDuration(string, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions++
}

func (r *countingRecorder) IncSessionOutcome(op, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[op+"/"+status]++
}

func (r *countingRecorder) IncRecords(severity string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[severity] += n
}

func (r *countingRecorder) ObserveGeneration(string, int) {}

func (r *countingRecorder) IncSpawnRetry(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries++
}

type fixture struct {
	dir      string
	shell    *testshell.Shell
	provider *project.Project
	sink     *recordingSink
	recorder *countingRecorder
	coord    *Coordinator
}

func newFixture(t *testing.T, shell *testshell.Shell) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, platformio.ProjectFile), []byte("[platformio]\n"), 0o600))

	set, err := option.NewSet(option.Option{Name: "BAUDRATE", Value: option.IntValue(250000), Enabled: true})
	require.NoError(t, err)
	provider := project.New(filepath.Join(dir, "project.yaml"), set, "mega2560")

	orch := orchestrator.New(orchestrator.Config{PollInterval: 10 * time.Millisecond, TeardownTimeout: time.Second}, shell)
	f := &fixture{
		dir:      dir,
		shell:    shell,
		provider: provider,
		sink:     &recordingSink{},
		recorder: newCountingRecorder(),
	}
	f.coord = NewCoordinator(platformio.Scripts{FirmwareDir: dir, GOOS: "linux"}, orch, provider).
		WithSink(f.sink).
		WithRecorder(f.recorder)
	return f
}

func (f *fixture) withTarget(t *testing.T, path string) {
	t.Helper()
	doc := templates.ParseDocument("Configuration.h", "#pragma once\n#{BAUDRATE}\n")
	gen, err := generate.New(doc, []templates.BindingSpec{{Tag: "BAUDRATE", Option: "BAUDRATE"}}, f.provider)
	require.NoError(t, err)
	f.coord.WithTargets([]generate.Target{{Name: "Configuration.h", Path: path, Generator: gen}})
}

func TestRunBuild_Succeeded(t *testing.T) {
	f := newFixture(t, testshell.New("Processing mega2560", "Compiling .pio/build/main.o", successLine))

	out, err := f.coord.RunBuild(t.Context(), "", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StateSucceeded, out.Status)
	assert.NoError(t, out.Err())
	assert.Equal(t, "mega2560", out.Environment, "environment comes from the provider")
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 3, out.Records.Info)

	scripts := f.shell.Scripts()
	require.Len(t, scripts, 1)
	assert.Equal(t, []string{`cd "` + f.dir + `"`, "platformio run -e mega2560", "exit"}, scripts[0])

	assert.Equal(t, []string{"started", "record", "record", "record", "finished"}, f.sink.events)
	assert.Equal(t, 1, f.recorder.outcomes["build/succeeded"])
	assert.Equal(t, 3, f.recorder.records["info"])
	assert.Equal(t, 1, f.recorder.sessions)
}

func TestRunClean_FailedWithExplicitEnvironment(t *testing.T) {
	shell := testshell.New("Removing .pio/build/LPC1768")
	shell.Stderr = []string{"Error: Unknown environment names 'LPC1768'"}
	f := newFixture(t, shell)

	out, err := f.coord.RunClean(t.Context(), "LPC1768", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StateFailed, out.Status)
	assert.Equal(t, 1, out.Records.Error)
	assert.Contains(t, f.shell.Scripts()[0], "platformio run -t clean -e LPC1768")

	var status *StatusError
	require.ErrorAs(t, out.Err(), &status)
	assert.Equal(t, ExitFailed, status.ExitCode())
	assert.Equal(t, 1, f.recorder.outcomes["clean/failed"])
}

func TestRun_MissingProjectDoesNotSpawn(t *testing.T) {
	f := newFixture(t, testshell.New(successLine))
	require.NoError(t, os.Remove(filepath.Join(f.dir, platformio.ProjectFile)))

	_, err := f.coord.RunUpload(t.Context(), "", RunOptions{})
	require.ErrorIs(t, err, platformio.ErrNoProject)
	assert.Zero(t, f.shell.Spawns())
	assert.Empty(t, f.sink.events)
}

func TestRun_RegenerateBeforeBuild(t *testing.T) {
	f := newFixture(t, testshell.New(successLine))
	target := filepath.Join(f.dir, "Marlin", "Configuration.h")
	f.withTarget(t, target)

	out, err := f.coord.RunBuild(t.Context(), "", RunOptions{Regenerate: true})
	require.NoError(t, err)
	require.Len(t, out.Generated, 1)
	assert.Equal(t, 2, out.Generated[0].Lines)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "#pragma once\n#define BAUDRATE 250000\n", string(data))
}

func TestRun_RegenerationFailureAbortsBuild(t *testing.T) {
	f := newFixture(t, testshell.New(successLine))
	blocker := filepath.Join(f.dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	f.withTarget(t, filepath.Join(blocker, "Configuration.h"))

	_, err := f.coord.RunBuild(t.Context(), "", RunOptions{Regenerate: true})
	require.ErrorIs(t, err, generate.ErrWriteFailed)
	assert.Zero(t, f.shell.Spawns())
}

func TestRun_RegenerateWithoutTargets(t *testing.T) {
	f := newFixture(t, testshell.New(successLine))
	_, err := f.coord.RunBuild(t.Context(), "", RunOptions{Regenerate: true})
	require.ErrorIs(t, err, generate.ErrNoTemplateLoaded)
}

func TestRun_RetriesSpawnFailures(t *testing.T) {
	shell := testshell.New(successLine)
	shell.SpawnFailures = 2
	f := newFixture(t, shell)
	f.coord.WithRetry(retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2))

	out, err := f.coord.RunBuild(t.Context(), "", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StateSucceeded, out.Status)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 2, f.recorder.retries)

	require.Len(t, f.sink.finished, 3, "every attempt reports its terminal status")
	assert.Equal(t, orchestrator.StateFailed, f.sink.finished[0].Status)
	assert.Equal(t, orchestrator.StateSucceeded, f.sink.finished[2].Status)
}

func TestRun_SpawnFailureWithoutRetries(t *testing.T) {
	shell := testshell.New(successLine)
	shell.SpawnFailures = 1
	f := newFixture(t, shell)

	out, err := f.coord.RunBuild(t.Context(), "", RunOptions{})
	require.ErrorIs(t, err, orchestrator.ErrSpawn)
	require.ErrorIs(t, err, testshell.ErrSpawnRefused)
	assert.Equal(t, orchestrator.StateFailed, out.Status)
	assert.Equal(t, 1, f.shell.Spawns())
	assert.Equal(t, 1, f.recorder.outcomes["build/failed"])
}

func TestRun_ProviderCancel(t *testing.T) {
	shell := testshell.New("Compiling .pio/build/main.o")
	shell.Hang = true
	f := newFixture(t, shell)

	go func() {
		<-shell.Started()
		f.provider.RequestCancel()
	}()

	out, err := f.coord.RunBuild(t.Context(), "", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StateCanceled, out.Status)
	assert.True(t, out.CancelRequested)

	var status *StatusError
	require.ErrorAs(t, out.Err(), &status)
	assert.Equal(t, ExitCanceled, status.ExitCode())
}

func TestRun_StaleCancelRequestIsCleared(t *testing.T) {
	f := newFixture(t, testshell.New(successLine))
	f.provider.RequestCancel()

	out, err := f.coord.RunBuild(t.Context(), "", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StateSucceeded, out.Status)
}

// cancelingSource requests a cancel while the generator reads the options.
type cancelingSource struct{ *project.Project }

func (s cancelingSource) GetOptions() option.Set {
	s.RequestCancel()
	return s.Project.GetOptions()
}

func TestRun_CancelDuringRegenerationIsKept(t *testing.T) {
	f := newFixture(t, testshell.New(successLine))
	doc := templates.ParseDocument("Configuration.h", "#{BAUDRATE}\n")
	gen, err := generate.New(doc, []templates.BindingSpec{{Tag: "BAUDRATE", Option: "BAUDRATE"}}, cancelingSource{f.provider})
	require.NoError(t, err)
	f.coord.WithTargets([]generate.Target{{Name: "Configuration.h", Path: filepath.Join(f.dir, "Configuration.h"), Generator: gen}})

	out, err := f.coord.RunBuild(t.Context(), "", RunOptions{Regenerate: true})
	require.NoError(t, err)
	require.Len(t, out.Generated, 1)
	assert.Equal(t, orchestrator.StateCanceled, out.Status)
	assert.Zero(t, f.shell.Spawns())

	var status *StatusError
	require.ErrorAs(t, out.Err(), &status)
	assert.Equal(t, ExitCanceled, status.ExitCode())
}

func TestRun_ContextCancel(t *testing.T) {
	shell := testshell.New("Compiling")
	shell.Hang = true
	f := newFixture(t, shell)

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		<-shell.Started()
		cancel()
	}()
	out, err := f.coord.RunUpload(ctx, "", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StateCanceled, out.Status)
}

func TestRun_Busy(t *testing.T) {
	shell := testshell.New("Compiling")
	shell.Hang = true
	f := newFixture(t, shell)

	done := make(chan Outcome)
	go func() {
		out, _ := f.coord.RunBuild(t.Context(), "", RunOptions{})
		done <- out
	}()
	<-shell.Started()

	_, err := f.coord.RunClean(t.Context(), "", RunOptions{})
	require.ErrorIs(t, err, orchestrator.ErrBusy)

	f.provider.RequestCancel()
	out := <-done
	assert.Equal(t, orchestrator.StateCanceled, out.Status)
	assert.Equal(t, 1, shell.Spawns())
}

func TestProbeVersion(t *testing.T) {
	f := newFixture(t, testshell.New("PlatformIO Core, version 6.1.15"))
	require.NoError(t, os.Remove(filepath.Join(f.dir, platformio.ProjectFile)))

	version, out, err := f.coord.ProbeVersion(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "6.1.15", version)
	assert.Equal(t, platformio.OpVersion, out.Operation)
	assert.Equal(t, orchestrator.StateSucceeded, out.Status)
	assert.Equal(t, []string{"platformio --version", "exit"}, f.shell.Scripts()[0])
}

func TestProbeVersion_ToolMissing(t *testing.T) {
	f := newFixture(t, testshell.New("'platformio' is not recognized as an internal or external command,"))

	version, out, err := f.coord.ProbeVersion(t.Context())
	require.ErrorIs(t, err, ErrVersionNotFound)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTool))
	assert.Empty(t, version)
	assert.Equal(t, orchestrator.StateFailed, out.Status)

	var status *StatusError
	require.ErrorAs(t, err, &status)
}

func TestHistorySink_PersistsSession(t *testing.T) {
	store, err := eventstore.NewSQLiteStore(eventstore.MemoryPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	projection := eventstore.NewSessionHistoryProjection(store, 10)

	shell := testshell.New("Compiling .pio/build/main.o", successLine)
	shell.Stderr = []string{"warning: deprecated"}
	f := newFixture(t, shell)
	f.coord.WithSink(MultiSink{f.sink, &HistorySink{Store: store, Projection: projection, Keep: 10}})

	out, err := f.coord.RunBuild(t.Context(), "", RunOptions{})
	require.NoError(t, err)

	last, ok := projection.Last()
	require.True(t, ok)
	assert.Equal(t, out.SessionID, last.SessionID)
	assert.Equal(t, "succeeded", last.Status)
	assert.Equal(t, "mega2560", last.Environment)
	assert.Equal(t, 2, last.InfoRecords)
	assert.Equal(t, 1, last.ErrorRecords)

	events, err := store.GetBySessionID(t.Context(), out.SessionID)
	require.NoError(t, err)
	assert.Len(t, eventstore.Records(events), 3)

	rebuilt := eventstore.NewSessionHistoryProjection(store, 10)
	require.NoError(t, rebuilt.Rebuild(t.Context()))
	assert.Len(t, rebuilt.History(), 1)
}

type countingStore struct {
	eventstore.Store
	mu      sync.Mutex
	appends []int
}

func (s *countingStore) Append(ctx context.Context, events ...eventstore.Event) error {
	s.mu.Lock()
	s.appends = append(s.appends, len(events))
	s.mu.Unlock()
	return s.Store.Append(ctx, events...)
}

func TestHistorySink_BatchesRecords(t *testing.T) {
	inner, err := eventstore.NewSQLiteStore(eventstore.MemoryPath)
	require.NoError(t, err)
	defer func() { _ = inner.Close() }()
	store := &countingStore{Store: inner}
	sink := &HistorySink{Store: store}

	info := SessionInfo{SessionID: "s1", Operation: platformio.OpBuild, Started: time.Now()}
	sink.Started(info)
	for range historyBatchSize + 3 {
		sink.Record("s1", orchestrator.LogRecord{Text: "Compiling", Time: time.Now()})
	}
	assert.Equal(t, []int{1, historyBatchSize}, store.appends, "records wait for a full batch")

	sink.Finished(info, orchestrator.Result{Status: orchestrator.StateSucceeded, Finished: time.Now()})
	assert.Equal(t, []int{1, historyBatchSize, 4}, store.appends)

	events, err := inner.GetBySessionID(t.Context(), "s1")
	require.NoError(t, err)
	assert.Len(t, events, historyBatchSize+5)
	assert.Len(t, eventstore.Records(events), historyBatchSize+3)
}

func TestConsoleSink(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = saved })

	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)
	info := SessionInfo{SessionID: "s", Operation: platformio.OpBuild, Environment: "mega2560", Attempt: 2}
	sink.Started(info)
	sink.Record("s", orchestrator.LogRecord{PromptPath: `C:\fw>`, Text: "run -e mega2560"})
	sink.Record("s", orchestrator.ErrorRecord("error: missing ;"))
	sink.Finished(info, orchestrator.Result{Status: orchestrator.StateFailed, Records: orchestrator.RecordCounts{Error: 1}})

	assert.Equal(t, "==> build [mega2560] (attempt 2)\n"+
		`C:\fw> run -e mega2560`+"\n"+
		"error: missing ;\n"+
		"==> build failed in 0s (1 errors)\n", buf.String())
}
