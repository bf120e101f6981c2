package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	ferrors "git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/project"
)

// OptionsCmd implements the 'options' command.
type OptionsCmd struct {
	Category string `help:"Only list options of this category"`
	Active   bool   `help:"Only list options that produce a definition"`
}

func (o *OptionsCmd) Run(g *Global, root *CLI) error {
	_, proj, err := loadProject(root.Config)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "# environment: %s\n", proj.CurrentEnvironment())
	_, _ = fmt.Fprintln(tw, "NAME\tKIND\tENABLED\tVALUE\tCATEGORY")
	for _, opt := range proj.GetOptions().Options() {
		if o.Category != "" && !strings.EqualFold(opt.Category, o.Category) {
			continue
		}
		if o.Active && !opt.Active() {
			continue
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", opt.Name, opt.Kind(), opt.Enabled, opt.Value, opt.Category)
	}
	return tw.Flush()
}

// SetCmd implements the 'set' command. All assignments are applied as one
// change; if any of them fails the project file is left untouched.
type SetCmd struct {
	Env         string   `short:"e" help:"Also select this PlatformIO environment"`
	Assignments []string `arg:"" optional:"" name:"assignment" help:"NAME=VALUE pairs"`
}

func (s *SetCmd) Run(g *Global, root *CLI) error {
	if len(s.Assignments) == 0 && s.Env == "" {
		return ferrors.ValidationError("nothing to set: give NAME=VALUE pairs or --env").UserAction().Build()
	}
	type assignment struct{ name, raw string }
	parsed := make([]assignment, 0, len(s.Assignments))
	for _, a := range s.Assignments {
		name, raw, ok := strings.Cut(a, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return ferrors.ValidationError(fmt.Sprintf("invalid assignment %q, expected NAME=VALUE", a)).UserAction().Build()
		}
		parsed = append(parsed, assignment{name: name, raw: raw})
	}

	return updateProject(g, root, func(b *project.Batch) error {
		for _, a := range parsed {
			if err := b.SetText(a.name, a.raw); err != nil {
				return err
			}
		}
		if s.Env != "" {
			b.SetEnvironment(s.Env)
		}
		return nil
	})
}

// EnableCmd implements the 'enable' command.
type EnableCmd struct {
	Names []string `arg:"" name:"name" help:"Options to enable"`
}

func (e *EnableCmd) Run(g *Global, root *CLI) error {
	return setEnabled(g, root, e.Names, true)
}

// DisableCmd implements the 'disable' command.
type DisableCmd struct {
	Names []string `arg:"" name:"name" help:"Options to disable"`
}

func (d *DisableCmd) Run(g *Global, root *CLI) error {
	return setEnabled(g, root, d.Names, false)
}

func setEnabled(g *Global, root *CLI, names []string, enabled bool) error {
	return updateProject(g, root, func(b *project.Batch) error {
		for _, name := range names {
			if err := b.SetEnabled(name, enabled); err != nil {
				return err
			}
		}
		return nil
	})
}

// updateProject applies fn as one batch and saves the project file.
func updateProject(g *Global, root *CLI, fn func(*project.Batch) error) error {
	_, proj, err := loadProject(root.Config)
	if err != nil {
		return err
	}
	if err := proj.Batch(fn); err != nil {
		return err
	}
	if err := proj.Save(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Updated %s\n", proj.Path())
	return nil
}
