package orchestrator

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	ferrors "git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/logfields"
	"git.home.luguber.info/inful/fwbuilder/internal/platformio"
)

// EmitFunc receives log records as they are classified. Calls are serialized.
type EmitFunc func(LogRecord)

// RecordCounts counts emitted records per severity.
type RecordCounts struct {
	Info  int
	Error int
}

// Total returns the number of emitted records.
func (c RecordCounts) Total() int { return c.Info + c.Error }

// Result is the terminal report of a session.
type Result struct {
	SessionID string
	Operation platformio.Operation
	Status    State
	// SuccessDetected is set when a content line carried the success marker,
	// even if the session was canceled afterwards.
	SuccessDetected bool
	CancelRequested bool
	Records         RecordCounts
	Started         time.Time
	Finished        time.Time
}

// Duration is the wall time between start and terminal state.
func (r Result) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Session runs one command script. A session runs at most once.
type Session struct {
	id     string
	orch   *Orchestrator
	script platformio.Script

	state  stateBox
	cancel atomic.Bool

	emitMu  sync.Mutex
	emit    EmitFunc
	closed  bool
	counts  RecordCounts
	success atomic.Bool
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Script returns the script the session runs.
func (s *Session) Script() platformio.Script { return s.script }

// State returns the current state.
func (s *Session) State() State { return s.state.load() }

// Cancel requests cancellation. It is idempotent, safe for concurrent use and a
// no-op once the session is terminal. A cancel before Run makes Run return
// Canceled without spawning.
func (s *Session) Cancel() {
	if s.state.load().IsTerminal() {
		return
	}
	s.cancel.Store(true)
}

func (s *Session) cancelRequested() bool {
	if s.cancel.Load() {
		return true
	}
	if src := s.orch.CancelSource; src != nil && src.IsCancelRequested() {
		s.cancel.Store(true)
		return true
	}
	return false
}

// Run spawns the shell, feeds it the script and blocks until the session is
// terminal. emit may be nil. Cancelling ctx counts as a cancel request. The
// error is non-nil only when the shell could not be spawned (ErrSpawn) or the
// session could not start (ErrBusy, ErrSessionUsed); tool failures and cancels
// are reported through Result.Status.
func (s *Session) Run(ctx context.Context, emit EmitFunc) (Result, error) {
	if !s.orch.running.CompareAndSwap(false, true) {
		return Result{SessionID: s.id, Operation: s.script.Operation, Status: s.State()}, ErrBusy
	}
	defer s.orch.running.Store(false)

	res := Result{SessionID: s.id, Operation: s.script.Operation, Started: time.Now()}
	if !s.state.advance(StateStarting) {
		res.Status = s.State()
		return res, ErrSessionUsed
	}
	s.emit = emit

	log := s.orch.logger().With(logfields.SessionID(s.id), logfields.Operation(string(s.script.Operation)))

	if ctx.Err() != nil {
		s.cancel.Store(true)
	}
	if s.cancelRequested() {
		log.Info("Session canceled before start")
		return s.finish(res, StateCanceled), nil
	}

	proc, err := s.spawn(ctx)
	if err != nil {
		if ctx.Err() != nil {
			s.cancel.Store(true)
		}
		if s.cancelRequested() {
			return s.finish(res, StateCanceled), nil
		}
		log.Error("Shell spawn failed", logfields.Error(err))
		res = s.finish(res, StateFailed)
		return res, ferrors.Wrap(ErrSpawn, err).WithContext("session_id", s.id).Build()
	}

	s.state.advance(StateRunning)
	log.Debug("Session running", slog.Int("commands", len(s.script.Commands)))
	canceled := s.pump(ctx, proc, log)

	status := StateFailed
	switch {
	case canceled:
		status = StateCanceled
	case s.success.Load():
		status = StateSucceeded
	}
	res = s.finish(res, status)
	log.Info("Session finished",
		logfields.Status(res.Status.String()),
		logfields.Duration(res.Duration()),
		slog.Int("info_records", res.Records.Info),
		slog.Int("error_records", res.Records.Error))
	return res, nil
}

// finish closes emission and moves to the terminal state exactly once.
func (s *Session) finish(res Result, status State) Result {
	s.emitMu.Lock()
	s.closed = true
	res.Records = s.counts
	s.emitMu.Unlock()

	s.state.advance(status)
	res.Status = s.state.load()
	res.SuccessDetected = s.success.Load()
	res.CancelRequested = s.cancel.Load()
	res.Finished = time.Now()
	return res
}

type spawnResult struct {
	proc Process
	err  error
}

// spawn starts the shell within the spawn timeout. A process that starts after
// the deadline is killed.
func (s *Session) spawn(ctx context.Context) (Process, error) {
	spawnCtx, cancel := context.WithTimeout(ctx, s.orch.cfg.SpawnTimeout)
	defer cancel()

	ch := make(chan spawnResult, 1)
	go func() {
		p, err := s.orch.spawner.Spawn(spawnCtx)
		ch <- spawnResult{p, err}
	}()

	select {
	case r := <-ch:
		return r.proc, r.err
	case <-spawnCtx.Done():
		if ctx.Err() != nil {
			s.cancel.Store(true)
		}
		go func() {
			if r := <-ch; r.err == nil {
				_ = r.proc.Kill()
				_ = r.proc.Wait()
			}
		}()
		return nil, spawnCtx.Err()
	}
}

// pump drives a running process until it exits or is killed, then waits a
// bounded time for the readers to drain. It reports whether cancellation was
// requested before the process exited; later requests do not change the status.
func (s *Session) pump(ctx context.Context, proc Process, log *slog.Logger) (canceled bool) {
	cfg := s.orch.cfg
	classifier := NewClassifier(cfg.PromptTerminator, cfg.InvocationMarker, s.script.SuccessMarker)

	var readers errgroup.Group
	readers.Go(func() error {
		return readLines(proc.Stdout(), func(line string) {
			rec, ok := classifier.Feed(line)
			if classifier.SuccessDetected() {
				s.success.Store(true)
			}
			if ok {
				s.deliver(rec)
			}
		})
	})
	readers.Go(func() error {
		return readLines(proc.Stderr(), func(line string) {
			s.deliver(ErrorRecord(line))
		})
	})
	readersDone := make(chan error, 1)
	go func() { readersDone <- readers.Wait() }()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		if err := writeScript(proc.Stdin(), s.script.Commands, cfg.ExitCommand); err != nil {
			log.Debug("Writing script to shell stopped", logfields.Error(err))
		}
	}()

	exited := make(chan error, 1)
	go func() { exited <- proc.Wait() }()

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()
	ctxDone := ctx.Done()

	killed := false
	kill := func() {
		if killed {
			return
		}
		killed = true
		log.Info("Cancel requested, terminating build process")
		if err := proc.Kill(); err != nil {
			log.Warn("Kill build process failed", logfields.Error(err))
		}
	}

	var waitErr error
	teardown := time.NewTimer(0)
	teardown.Stop()
loop:
	for {
		select {
		case waitErr = <-exited:
			canceled = killed || s.cancelRequested()
			break loop
		case <-ctxDone:
			ctxDone = nil
			s.cancel.Store(true)
			kill()
			teardown.Reset(cfg.TeardownTimeout)
		case <-ticker.C:
			if !killed && s.cancelRequested() {
				kill()
				teardown.Reset(cfg.TeardownTimeout)
			}
		case <-teardown.C:
			log.Warn("Build process did not exit within teardown timeout",
				logfields.Duration(cfg.TeardownTimeout))
			canceled = true
			break loop
		}
	}
	teardown.Stop()
	if waitErr != nil {
		log.Debug("Shell exited", logfields.Error(waitErr))
	}

	_ = proc.Stdin().Close()
	bound := time.NewTimer(cfg.TeardownTimeout)
	defer bound.Stop()
	select {
	case err := <-readersDone:
		if err != nil {
			log.Warn("Reading build output failed", logfields.Error(err))
		}
	case <-bound.C:
		log.Warn("Build output streams still open after teardown timeout")
		return canceled
	}
	select {
	case <-writerDone:
	case <-bound.C:
	}
	return canceled
}

// deliver serializes emission and drops records that arrive after the session
// reported its terminal state.
func (s *Session) deliver(rec LogRecord) {
	rec.Time = time.Now()
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.closed {
		return
	}
	if rec.Severity == SeverityError {
		s.counts.Error++
	} else {
		s.counts.Info++
	}
	if s.emit != nil {
		s.emit(rec)
	}
}

// readLines calls fn for every line of r, without the line terminator. A final
// line without a newline is delivered too.
func readLines(r io.Reader, fn func(string)) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			fn(strings.TrimRight(line, "\r\n"))
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func writeScript(w io.Writer, commands []string, exit string) error {
	bw := bufio.NewWriter(w)
	for _, c := range commands {
		if _, err := bw.WriteString(c + "\n"); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString(exit + "\n"); err != nil {
		return err
	}
	return bw.Flush()
}
