package commands

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/fwbuilder/internal/build"
	"git.home.luguber.info/inful/fwbuilder/internal/catalog"
	"git.home.luguber.info/inful/fwbuilder/internal/config"
	"git.home.luguber.info/inful/fwbuilder/internal/eventstore"
	ferrors "git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/generate"
	"git.home.luguber.info/inful/fwbuilder/internal/logfields"
	"git.home.luguber.info/inful/fwbuilder/internal/metrics"
	"git.home.luguber.info/inful/fwbuilder/internal/orchestrator"
	"git.home.luguber.info/inful/fwbuilder/internal/platformio"
	"git.home.luguber.info/inful/fwbuilder/internal/project"
	"git.home.luguber.info/inful/fwbuilder/internal/retry"
)

// app holds the components wired from one configuration file.
type app struct {
	cfg      *config.Config
	project  *project.Project
	targets  []generate.Target
	coord    *build.Coordinator
	registry *prom.Registry
	store    eventstore.Store
	logger   *slog.Logger
}

// loadProject loads the configuration and the project file it names.
func loadProject(configPath string) (*config.Config, *project.Project, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	proj, err := project.Load(cfg.ProjectPath())
	if err != nil {
		return nil, nil, err
	}
	return cfg, proj, nil
}

// newApp wires generators, the orchestrator, sinks and metrics for the
// configuration at root.Config. Build output is written to out.
func newApp(root *CLI, out io.Writer, logger *slog.Logger) (*app, error) {
	cfg, proj, err := loadProject(root.Config)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, project: proj, registry: prom.NewRegistry(), logger: logger}
	recorder := metrics.NewPrometheusRecorder(a.registry)

	if a.targets, err = newTargets(cfg, proj, recorder, logger); err != nil {
		return nil, err
	}

	enc, err := cfg.Shell.Encoding()
	if err != nil {
		return nil, err
	}
	firmwareDir, err := filepath.Abs(cfg.FirmwarePath())
	if err != nil {
		return nil, ferrors.FileSystemError("resolve firmware directory").WithCause(err).Build()
	}
	scripts := platformio.Scripts{
		Command:       cfg.Tool.Command,
		FirmwareDir:   firmwareDir,
		SuccessMarker: cfg.Tool.SuccessMarker,
		VersionMarker: cfg.Tool.VersionMarker,
	}
	spawner := orchestrator.ExecSpawner{
		Path:            cfg.Shell.Path,
		Args:            cfg.Shell.Args,
		Encoding:        enc,
		TeardownTimeout: cfg.Shell.TeardownTimeout,
	}
	orch := orchestrator.New(orchestrator.Config{
		ExitCommand:      cfg.Shell.ExitCommand,
		PromptTerminator: cfg.Shell.PromptTerminator,
		InvocationMarker: cfg.Tool.InvocationMarker,
		SpawnTimeout:     cfg.Shell.SpawnTimeout,
		TeardownTimeout:  cfg.Shell.TeardownTimeout,
		PollInterval:     cfg.Shell.PollInterval,
	}, spawner)
	orch.Logger = logger

	console := build.NewConsoleSink(out)
	console.ShowPrompts = root.Verbose
	sinks := build.MultiSink{console}
	if config.NormalizeLogFormat(cfg.Logging.Format) == config.LogFormatJSON {
		sinks = append(sinks, build.SlogSink{Logger: logger})
	}
	if cfg.History.Enabled {
		store, err := eventstore.NewSQLiteStore(cfg.HistoryPath())
		if err != nil {
			// History is best effort; a broken database must not block builds.
			logger.Warn("Session history disabled", logfields.Path(cfg.HistoryPath()), logfields.Error(err))
		} else {
			a.store = store
			sinks = append(sinks, &build.HistorySink{Store: store, Keep: cfg.History.MaxSessions, Logger: logger})
		}
	}

	a.coord = build.NewCoordinator(scripts, orch, proj).
		WithTargets(a.targets).
		WithSink(sinks).
		WithRecorder(recorder).
		WithRetry(retry.FromConfig(cfg.Retry)).
		WithLogger(logger)
	return a, nil
}

// newTargets builds one generator per configured output.
func newTargets(cfg *config.Config, src generate.OptionSource, recorder metrics.Recorder, logger *slog.Logger) ([]generate.Target, error) {
	specs, err := catalog.Bindings()
	if err != nil {
		return nil, ferrors.InternalError("load tag bindings").WithCause(err).Build()
	}
	targets := make([]generate.Target, 0, len(cfg.Outputs))
	for _, o := range cfg.Outputs {
		doc, err := catalog.Document(o.Template)
		if err != nil {
			return nil, ferrors.ConfigError(fmt.Sprintf("unknown template %q in outputs", o.Template)).
				WithCause(err).WithContext("available", catalog.Templates()).Build()
		}
		gen, err := generate.New(doc, specs, src)
		if err != nil {
			return nil, err
		}
		gen.Recorder = recorder
		gen.Logger = logger
		targets = append(targets, generate.Target{Name: o.Template, Path: cfg.OutputPath(o), Generator: gen})
	}
	return targets, nil
}

// Close exports metrics when configured and closes the history store.
func (a *app) Close() error {
	var firstErr error
	if path := a.cfg.MetricsPath(); path != "" {
		if err := metrics.WriteTextfile(path, a.registry); err != nil {
			firstErr = err
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil && firstErr == nil {
			firstErr = ferrors.HistoryError("close history database").WithCause(err).Build()
		}
	}
	return firstErr
}

// closeApp closes a and logs a failure without masking the command's result.
func closeApp(a *app) {
	if err := a.Close(); err != nil {
		a.logger.Warn("Cleanup failed", logfields.Error(err))
	}
}
