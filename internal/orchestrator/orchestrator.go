package orchestrator

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/platformio"
)

var (
	// ErrSpawn is returned when the shell cannot be started within the spawn
	// timeout. The session ends Failed with no records.
	ErrSpawn = ferrors.SpawnError("shell could not be started").Build()
	// ErrBusy is returned when a session is started while another session of
	// the same orchestrator is running.
	ErrBusy = ferrors.NewError(ferrors.CategoryTool, "a build session is already running").UserAction().Build()
	// ErrSessionUsed is returned when Run is called twice on one session.
	ErrSessionUsed = ferrors.InternalError("session already ran").Build()
)

// Config holds the shell protocol settings of an orchestrator.
type Config struct {
	// ExitCommand is written after the script so the shell terminates.
	ExitCommand string
	// PromptTerminator ends shell prompt lines, ">" for cmd.exe.
	PromptTerminator string
	// InvocationMarker identifies echoed tool invocations in the content stream.
	InvocationMarker string
	SpawnTimeout     time.Duration
	TeardownTimeout  time.Duration
	// PollInterval bounds cancellation latency; it must be below one second.
	PollInterval time.Duration
}

// Default protocol settings.
const (
	DefaultExitCommand      = "exit"
	DefaultPromptTerminator = ">"
	DefaultInvocationMarker = "platformio"
	DefaultSpawnTimeout     = 10 * time.Second
	DefaultTeardownTimeout  = 5 * time.Second
	DefaultPollInterval     = 100 * time.Millisecond
)

// DefaultConfig returns the default protocol settings.
func DefaultConfig() Config {
	return Config{
		ExitCommand:      DefaultExitCommand,
		PromptTerminator: DefaultPromptTerminator,
		InvocationMarker: DefaultInvocationMarker,
		SpawnTimeout:     DefaultSpawnTimeout,
		TeardownTimeout:  DefaultTeardownTimeout,
		PollInterval:     DefaultPollInterval,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ExitCommand == "" {
		c.ExitCommand = d.ExitCommand
	}
	if c.SpawnTimeout <= 0 {
		c.SpawnTimeout = d.SpawnTimeout
	}
	if c.TeardownTimeout <= 0 {
		c.TeardownTimeout = d.TeardownTimeout
	}
	if c.PollInterval <= 0 || c.PollInterval >= time.Second {
		c.PollInterval = d.PollInterval
	}
	return c
}

// Orchestrator creates build sessions. At most one of its sessions runs at a
// time; use separate orchestrators for concurrent builds.
type Orchestrator struct {
	cfg     Config
	spawner Spawner
	// CancelSource, when set, is polled alongside each session's own flag.
	CancelSource CancelSource
	Logger       *slog.Logger

	running atomic.Bool
}

// New returns an Orchestrator. Zero Config fields take their defaults, except
// PromptTerminator and InvocationMarker, where empty disables the rule.
func New(cfg Config, spawner Spawner) *Orchestrator {
	return &Orchestrator{cfg: cfg.withDefaults(), spawner: spawner}
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// NewSession prepares a session for script. Nothing is spawned until Run.
func (o *Orchestrator) NewSession(script platformio.Script) *Session {
	return &Session{
		id:     uuid.NewString(),
		orch:   o,
		script: script,
	}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
