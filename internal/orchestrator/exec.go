package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// ExecSpawner starts a real shell with os/exec.
type ExecSpawner struct {
	Path string
	Args []string
	// Dir is the working directory; the current directory when empty.
	Dir string
	// Env replaces the environment when non-nil.
	Env []string
	// Encoding decodes both output streams to UTF-8. Nil means the output is
	// already UTF-8.
	Encoding encoding.Encoding
	// TeardownTimeout bounds how long Wait waits for the output pipes to close
	// after the shell exits, for example when a grandchild still holds them.
	TeardownTimeout time.Duration
}

// Spawn starts the shell. ctx only bounds the start itself; the process
// outlives it and is stopped with Kill.
func (s ExecSpawner) Spawn(ctx context.Context) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// #nosec G204 -- the shell path comes from the application config.
	cmd := exec.Command(s.Path, s.Args...)
	cmd.Dir = s.Dir
	if s.Env != nil {
		cmd.Env = s.Env
	}
	cmd.WaitDelay = s.TeardownTimeout
	setupProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		_ = outW.Close()
		_ = errW.Close()
		return nil, fmt.Errorf("start %s: %w", s.Path, err)
	}
	p := &execProcess{cmd: cmd, stdin: stdin, outW: outW, errW: errW}
	p.stdout, p.stderr = io.Reader(outR), io.Reader(errR)
	if s.Encoding != nil {
		p.stdout = transform.NewReader(outR, s.Encoding.NewDecoder())
		p.stderr = transform.NewReader(errR, s.Encoding.NewDecoder())
	}
	return p, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.Reader
	outW   *io.PipeWriter
	errW   *io.PipeWriter
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.Reader     { return p.stdout }
func (p *execProcess) Stderr() io.Reader     { return p.stderr }
func (p *execProcess) Kill() error           { return killProcessGroup(p.cmd) }

// Wait waits for the shell and then closes the output pipes so readers see EOF.
func (p *execProcess) Wait() error {
	err := p.cmd.Wait()
	_ = p.outW.Close()
	_ = p.errW.Close()
	return err
}
