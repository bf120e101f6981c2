package orchestrator

import (
	"context"
	"io"
)

// Process is a running shell with separate content and error streams.
type Process interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Stderr() io.Reader
	// Kill forcibly terminates the process and anything it started.
	Kill() error
	// Wait blocks until the process has exited and both output streams have
	// been closed.
	Wait() error
}

// Spawner starts shell processes.
type Spawner interface {
	Spawn(ctx context.Context) (Process, error)
}

// SpawnerFunc adapts a function to Spawner.
type SpawnerFunc func(ctx context.Context) (Process, error)

func (f SpawnerFunc) Spawn(ctx context.Context) (Process, error) { return f(ctx) }

// CancelSource is an external cancel request polled during a session, such as
// an option.Provider.
type CancelSource interface {
	IsCancelRequested() bool
}
