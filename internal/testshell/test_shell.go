// Package testshell provides an in-memory shell implementing
// orchestrator.Spawner for tests of code that drives build sessions.
package testshell

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"git.home.luguber.info/inful/fwbuilder/internal/orchestrator"
)

// ErrSpawnRefused is returned by Spawn while failures remain.
var ErrSpawnRefused = errors.New("testshell: spawn refused")

// Shell is a scripted fake shell. Every spawned process writes Stdout and
// Stderr and then exits when it reads ExitCommand, or runs until killed when
// Hang is set.
type Shell struct {
	Stdout      []string
	Stderr      []string
	ExitCommand string
	Hang        bool
	// SpawnFailures makes that many Spawn calls fail before one succeeds.
	SpawnFailures int

	mu      sync.Mutex
	spawns  int
	scripts [][]string
	started chan struct{}
}

// New returns a shell that prints stdout and exits on "exit".
func New(stdout ...string) *Shell {
	return &Shell{Stdout: stdout, ExitCommand: orchestrator.DefaultExitCommand}
}

// Spawns returns the number of Spawn calls, failed ones included.
func (s *Shell) Spawns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawns
}

// Scripts returns the stdin lines received by each successful spawn.
func (s *Shell) Scripts() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.scripts))
	for i, sc := range s.scripts {
		out[i] = append([]string(nil), sc...)
	}
	return out
}

// Started returns a channel closed once the first process has written its
// output.
func (s *Shell) Started() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started == nil {
		s.started = make(chan struct{})
	}
	return s.started
}

// Spawn implements orchestrator.Spawner.
func (s *Shell) Spawn(context.Context) (orchestrator.Process, error) {
	s.mu.Lock()
	s.spawns++
	if s.SpawnFailures > 0 {
		s.SpawnFailures--
		s.mu.Unlock()
		return nil, ErrSpawnRefused
	}
	idx := len(s.scripts)
	s.scripts = append(s.scripts, nil)
	if s.started == nil {
		s.started = make(chan struct{})
	}
	started := s.started
	s.mu.Unlock()

	p := newProcess()
	go p.readInput(func(line string) {
		s.mu.Lock()
		s.scripts[idx] = append(s.scripts[idx], line)
		s.mu.Unlock()
	})
	go s.behave(p, started)
	return p, nil
}

func (s *Shell) behave(p *process, started chan struct{}) {
	p.write(p.outW, s.Stdout)
	p.write(p.errW, s.Stderr)
	s.mu.Lock()
	select {
	case <-started:
	default:
		close(started)
	}
	s.mu.Unlock()

	if s.Hang {
		<-p.exited
		return
	}
	for {
		select {
		case l := <-p.input:
			if strings.TrimSpace(l) == s.ExitCommand {
				p.exit()
				return
			}
		case <-p.exited:
			return
		}
	}
}

type process struct {
	stdinR *io.PipeReader
	stdinW *io.PipeWriter
	outR   *io.PipeReader
	outW   *io.PipeWriter
	errR   *io.PipeReader
	errW   *io.PipeWriter

	input    chan string
	exited   chan struct{}
	exitOnce sync.Once
}

func newProcess() *process {
	p := &process{input: make(chan string, 64), exited: make(chan struct{})}
	p.stdinR, p.stdinW = io.Pipe()
	p.outR, p.outW = io.Pipe()
	p.errR, p.errW = io.Pipe()
	return p
}

func (p *process) readInput(record func(string)) {
	sc := bufio.NewScanner(p.stdinR)
	for sc.Scan() {
		record(sc.Text())
		select {
		case p.input <- sc.Text():
		default:
		}
	}
}

func (p *process) write(w *io.PipeWriter, lines []string) {
	for _, l := range lines {
		if _, err := w.Write([]byte(l + "\n")); err != nil {
			return
		}
	}
}

func (p *process) exit() {
	p.exitOnce.Do(func() {
		_ = p.outW.Close()
		_ = p.errW.Close()
		_ = p.stdinR.Close()
		close(p.exited)
	})
}

func (p *process) Stdin() io.WriteCloser { return p.stdinW }
func (p *process) Stdout() io.Reader     { return p.outR }
func (p *process) Stderr() io.Reader     { return p.errR }

func (p *process) Kill() error {
	p.exit()
	return nil
}

func (p *process) Wait() error {
	<-p.exited
	return nil
}
