package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/fwbuilder/internal/build"
	"git.home.luguber.info/inful/fwbuilder/internal/option"
)

// RunFlags are shared by the build, clean and upload commands.
type RunFlags struct {
	Env        string `short:"e" help:"PlatformIO environment (default: the project's environment)"`
	Regenerate bool   `short:"g" help:"Regenerate the configuration files first"`
}

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	RunFlags `embed:""`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	return runOperation(g, root, b.RunFlags, (*build.Coordinator).RunBuild)
}

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	RunFlags `embed:""`
}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	return runOperation(g, root, c.RunFlags, (*build.Coordinator).RunClean)
}

// UploadCmd implements the 'upload' command.
type UploadCmd struct {
	RunFlags `embed:""`
}

func (u *UploadCmd) Run(g *Global, root *CLI) error {
	return runOperation(g, root, u.RunFlags, (*build.Coordinator).RunUpload)
}

type operationFunc func(*build.Coordinator, context.Context, string, build.RunOptions) (build.Outcome, error)

func runOperation(g *Global, root *CLI, flags RunFlags, run operationFunc) error {
	a, err := newApp(root, g.out(), g.logger())
	if err != nil {
		return err
	}
	defer closeApp(a)

	stop := cancelOnInterrupt(a.project, a.logger)
	defer stop()

	outcome, err := run(a.coord, context.Background(), flags.Env, build.RunOptions{Regenerate: flags.Regenerate})
	if err != nil {
		return err
	}
	return outcome.Err()
}

// cancelOnInterrupt turns the first SIGINT or SIGTERM into a cancel request on
// p. Later signals get the default behavior, so a second Ctrl-C still kills
// fwbuilder.
func cancelOnInterrupt(p option.Provider, logger *slog.Logger) (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigs:
			signal.Stop(sigs)
			logger.Warn("Interrupt received, canceling build", slog.String("signal", sig.String()))
			p.RequestCancel()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
