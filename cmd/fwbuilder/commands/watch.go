package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/fwbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Debounce time.Duration `help:"Quiet period before regenerating" default:"500ms"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	a, err := newApp(root, g.out(), g.logger())
	if err != nil {
		return err
	}
	defer closeApp(a)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	results, err := a.coord.Generate(ctx)
	printResults(g.out(), results)
	if err != nil {
		return err
	}

	watcher, err := watch.New(a.project.Path(), w.Debounce, func(ctx context.Context) error {
		if err := a.project.Reload(); err != nil {
			return err
		}
		results, err := a.coord.Generate(ctx)
		printResults(g.out(), results)
		return err
	})
	if err != nil {
		return err
	}
	return watcher.WithLogger(a.logger).Run(ctx)
}
