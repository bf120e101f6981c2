package commands

import (
	"context"
	"fmt"
	"io"

	"git.home.luguber.info/inful/fwbuilder/internal/generate"
)

// GenerateCmd implements the 'generate' command.
type GenerateCmd struct{}

func (c *GenerateCmd) Run(g *Global, root *CLI) error {
	a, err := newApp(root, g.out(), g.logger())
	if err != nil {
		return err
	}
	defer closeApp(a)

	results, err := a.coord.Generate(context.Background())
	printResults(g.out(), results)
	return err
}

func printResults(out io.Writer, results []generate.Result) {
	for _, r := range results {
		_, _ = fmt.Fprintf(out, "Wrote %s (%d lines)\n", r.Path, r.Lines)
	}
}
