package commands

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/fwbuilder/internal/catalog"
	"git.home.luguber.info/inful/fwbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/project"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool   `help:"Overwrite existing configuration and project files"`
	Env   string `short:"e" help:"PlatformIO environment stored in the new project" default:"mega2560"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	return RunInit(g, root.Config, i.Env, i.Force)
}

// RunInit writes the default configuration to configPath and a project file
// with the catalog's default options next to it.
func RunInit(g *Global, configPath, env string, force bool) error {
	out := g.out()
	_, _ = fmt.Fprintln(out, "Initializing fwbuilder project")
	_, _ = fmt.Fprintf(out, "Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		_, _ = fmt.Fprintln(out, "Initialization failed")
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	path := cfg.ProjectPath()
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ProjectError(fmt.Sprintf("project file already exists: %s (use --force to overwrite)", path)).
			UserAction().Build()
	}
	set, err := catalog.DefaultOptions()
	if err != nil {
		return ferrors.InternalError("load default options").WithCause(err).Build()
	}
	_, _ = fmt.Fprintf(out, "Writing project to %s\n", path)
	if err := project.New(path, set, env).Save(); err != nil {
		_, _ = fmt.Fprintln(out, "Initialization failed")
		return err
	}
	_, _ = fmt.Fprintln(out, "initialized successfully")
	return nil
}
