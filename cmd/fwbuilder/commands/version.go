package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/fwbuilder/internal/version"
)

// VersionCmd implements the 'version' command. It prints the fwbuilder build
// and probes the installed PlatformIO version.
type VersionCmd struct{}

func (v *VersionCmd) Run(g *Global, root *CLI) error {
	out := g.out()
	_, _ = fmt.Fprintln(out, version.String())

	a, err := newApp(root, out, g.logger())
	if err != nil {
		return err
	}
	defer closeApp(a)

	stop := cancelOnInterrupt(a.project, a.logger)
	defer stop()

	tool, outcome, err := a.coord.ProbeVersion(context.Background())
	if err != nil {
		return err
	}
	if err := outcome.Err(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "PlatformIO %s\n", tool)
	return nil
}
