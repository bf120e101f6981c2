package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	ferrors "git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/generate"
	"git.home.luguber.info/inful/fwbuilder/internal/logfields"
	"git.home.luguber.info/inful/fwbuilder/internal/metrics"
	"git.home.luguber.info/inful/fwbuilder/internal/option"
	"git.home.luguber.info/inful/fwbuilder/internal/orchestrator"
	"git.home.luguber.info/inful/fwbuilder/internal/platformio"
	"git.home.luguber.info/inful/fwbuilder/internal/retry"
)

// Exit codes for sessions that ended without success.
const (
	ExitFailed   = 12
	ExitCanceled = 130
)

// ErrVersionNotFound is returned by ProbeVersion when the tool output carried
// no version, usually because the tool is not installed.
var ErrVersionNotFound = ferrors.ToolError("PlatformIO version not found in tool output").UserAction().Build()

// StatusError reports a session that ran but did not succeed. It carries the
// process exit code for the CLI.
type StatusError struct {
	Operation platformio.Operation
	Status    orchestrator.State
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s", e.Operation, e.Status)
}

// ExitCode implements the CLI exit coder.
func (e *StatusError) ExitCode() int {
	if e.Status == orchestrator.StateCanceled {
		return ExitCanceled
	}
	return ExitFailed
}

// RunOptions modifies a build, clean or upload run.
type RunOptions struct {
	// Regenerate writes every configuration file before spawning.
	Regenerate bool
}

// Outcome is the result of a coordinated run.
type Outcome struct {
	orchestrator.Result
	Environment string
	// Generated lists the files written when regeneration was requested.
	Generated []generate.Result
	// Attempts counts shell spawns, including retried ones.
	Attempts int
}

// Err returns a *StatusError unless the session succeeded.
func (o Outcome) Err() error {
	if o.Status == orchestrator.StateSucceeded {
		return nil
	}
	return &StatusError{Operation: o.Operation, Status: o.Status}
}

// cancelResetter is implemented by providers whose cancel flag can be cleared
// between sessions.
type cancelResetter interface {
	ResetCancel()
}

// Coordinator runs build operations. It allows one run at a time.
type Coordinator struct {
	targets  []generate.Target
	scripts  platformio.Scripts
	orch     *orchestrator.Orchestrator
	provider option.Provider
	sink     Sink
	recorder metrics.Recorder
	retry    retry.Policy
	logger   *slog.Logger

	running atomic.Bool
}

// NewCoordinator wires a coordinator. The provider supplies the default
// environment and is polled for cancel requests during sessions.
func NewCoordinator(scripts platformio.Scripts, orch *orchestrator.Orchestrator, provider option.Provider) *Coordinator {
	if provider != nil && orch.CancelSource == nil {
		orch.CancelSource = provider
	}
	return &Coordinator{
		scripts:  scripts,
		orch:     orch,
		provider: provider,
		sink:     DiscardSink{},
		recorder: metrics.NoopRecorder{},
		retry:    retry.DefaultPolicy(),
		logger:   slog.Default(),
	}
}

// WithTargets sets the configuration files written on regeneration.
func (c *Coordinator) WithTargets(targets []generate.Target) *Coordinator {
	c.targets = targets
	return c
}

// WithSink sets the sink receiving session output.
func (c *Coordinator) WithSink(s Sink) *Coordinator {
	if s != nil {
		c.sink = s
	}
	return c
}

// WithRecorder sets the metrics recorder.
func (c *Coordinator) WithRecorder(r metrics.Recorder) *Coordinator {
	if r != nil {
		c.recorder = r
	}
	return c
}

// WithRetry sets the policy for retrying failed spawns.
func (c *Coordinator) WithRetry(p retry.Policy) *Coordinator {
	c.retry = p
	return c
}

// WithLogger sets the diagnostic logger.
func (c *Coordinator) WithLogger(l *slog.Logger) *Coordinator {
	if l != nil {
		c.logger = l
	}
	return c
}

// Generate writes every configuration target.
func (c *Coordinator) Generate(ctx context.Context) ([]generate.Result, error) {
	if len(c.targets) == 0 {
		return nil, generate.ErrNoTemplateLoaded
	}
	return generate.GenerateAll(ctx, c.targets)
}

// RunBuild compiles the firmware. An empty env selects the provider's
// current environment.
func (c *Coordinator) RunBuild(ctx context.Context, env string, opts RunOptions) (Outcome, error) {
	return c.run(ctx, platformio.OpBuild, env, opts)
}

// RunClean removes build artifacts.
func (c *Coordinator) RunClean(ctx context.Context, env string, opts RunOptions) (Outcome, error) {
	return c.run(ctx, platformio.OpClean, env, opts)
}

// RunUpload builds and flashes the firmware.
func (c *Coordinator) RunUpload(ctx context.Context, env string, opts RunOptions) (Outcome, error) {
	return c.run(ctx, platformio.OpUpload, env, opts)
}

// ProbeVersion runs the tool's version command and returns the parsed
// version. Output without a version yields ErrVersionNotFound.
func (c *Coordinator) ProbeVersion(ctx context.Context) (string, Outcome, error) {
	if err := c.begin(); err != nil {
		return "", Outcome{}, err
	}
	defer c.running.Store(false)

	var lines []string
	collect := func(rec orchestrator.LogRecord) {
		if rec.Severity == orchestrator.SeverityInfo {
			lines = append(lines, rec.Text)
		}
	}
	out, err := c.execute(ctx, c.scripts.Version(), "", collect)
	if err != nil {
		return "", out, err
	}
	v := platformio.ParseVersion(platformio.VersionLine(lines))
	if v == "" {
		return "", out, ferrors.Wrap(ErrVersionNotFound, out.Err()).
			WithContext("status", out.Status.String()).
			Build()
	}
	return v, out, nil
}

// begin claims the coordinator for one run and clears any cancel request left
// over from an earlier session. A rejected call leaves the flag alone.
func (c *Coordinator) begin() error {
	if !c.running.CompareAndSwap(false, true) {
		return orchestrator.ErrBusy
	}
	if r, ok := c.provider.(cancelResetter); ok {
		r.ResetCancel()
	}
	return nil
}

func (c *Coordinator) run(ctx context.Context, op platformio.Operation, env string, opts RunOptions) (Outcome, error) {
	if err := c.begin(); err != nil {
		return Outcome{Environment: env}, err
	}
	defer c.running.Store(false)

	if env == "" && c.provider != nil {
		env = c.provider.CurrentEnvironment()
	}
	if err := platformio.DetectProject(c.scripts.FirmwareDir); err != nil {
		return Outcome{Environment: env}, err
	}

	var generated []generate.Result
	if opts.Regenerate {
		var err error
		generated, err = c.Generate(ctx)
		if err != nil {
			c.logger.Error("Regeneration failed, not building", logfields.Operation(string(op)), logfields.Error(err))
			return Outcome{Environment: env, Generated: generated}, err
		}
	}

	script, err := c.scripts.For(op, env)
	if err != nil {
		return Outcome{Environment: env}, ferrors.ValidationError("unsupported operation").WithCause(err).Build()
	}
	out, err := c.execute(ctx, script, env, nil)
	out.Generated = generated
	return out, err
}

// execute runs script, retrying spawn failures per the retry policy. The
// caller holds the run claim from begin.
func (c *Coordinator) execute(ctx context.Context, script platformio.Script, env string, observe orchestrator.EmitFunc) (Outcome, error) {
	op := string(script.Operation)
	out := Outcome{Environment: env}
	err := c.retry.Do(ctx, func() error {
		out.Attempts++
		res, err := c.session(ctx, script, env, out.Attempts, observe)
		out.Result = res
		return err
	}, func(attempt int, err error) {
		c.recorder.IncSpawnRetry(op)
		c.logger.Warn("Retrying shell spawn",
			logfields.Operation(op),
			logfields.Attempt(attempt),
			slog.Duration("delay", c.retry.Delay(attempt)),
			logfields.Error(err))
	})
	if err != nil && errors.Is(err, orchestrator.ErrBusy) {
		return out, err
	}

	c.recorder.ObserveSessionDuration(op, out.Duration())
	c.recorder.IncSessionOutcome(op, out.Status.String())
	c.recorder.IncRecords(orchestrator.SeverityInfo.String(), out.Records.Info)
	c.recorder.IncRecords(orchestrator.SeverityError.String(), out.Records.Error)
	return out, err
}

// session runs one spawn attempt and reports it to the sink.
func (c *Coordinator) session(ctx context.Context, script platformio.Script, env string, attempt int, observe orchestrator.EmitFunc) (orchestrator.Result, error) {
	sess := c.orch.NewSession(script)
	info := SessionInfo{
		SessionID:   sess.ID(),
		Operation:   script.Operation,
		Environment: env,
		Commands:    script.Commands,
		Started:     time.Now(),
		Attempt:     attempt,
	}
	c.sink.Started(info)
	res, err := sess.Run(ctx, func(rec orchestrator.LogRecord) {
		if observe != nil {
			observe(rec)
		}
		c.sink.Record(info.SessionID, rec)
	})
	c.sink.Finished(info, res)
	return res, err
}
