package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/fwbuilder/internal/config"
	"git.home.luguber.info/inful/fwbuilder/internal/eventstore"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of sessions to show" default:"20"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	out := g.out()
	if !cfg.History.Enabled {
		_, _ = fmt.Fprintln(out, "Session history is disabled")
		return nil
	}
	path := cfg.HistoryPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintln(out, "No build sessions recorded")
		return nil
	}

	store, err := eventstore.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	projection := eventstore.NewSessionHistoryProjection(store, h.Limit)
	if err := projection.Rebuild(context.Background()); err != nil {
		return err
	}
	sessions := append(projection.Active(), projection.History()...)
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(out, "No build sessions recorded")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tOPERATION\tENVIRONMENT\tSTATUS\tDURATION\tERRORS")
	for _, s := range sessions {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			s.StartedAt.Local().Format(time.DateTime), s.Operation, s.Environment,
			s.Status, s.Duration.Round(time.Second), s.ErrorRecords)
	}
	return tw.Flush()
}
