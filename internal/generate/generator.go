// Package generate materializes an option set into firmware configuration
// files: bind the options, render the template and write the result.
package generate

import (
	"context"
	"log/slog"

	ferrors "git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/logfields"
	"git.home.luguber.info/inful/fwbuilder/internal/metrics"
	"git.home.luguber.info/inful/fwbuilder/internal/option"
	"git.home.luguber.info/inful/fwbuilder/internal/templates"
)

var (
	// ErrNoTemplateLoaded is returned when a generator has no template document.
	ErrNoTemplateLoaded = ferrors.GenerationError("no template loaded").Build()
	// ErrWriteFailed is returned when the target file cannot be written.
	ErrWriteFailed = ferrors.FileSystemError("write generated configuration failed").Build()
)

// OptionSource supplies the option snapshot to render. option.Provider
// satisfies it.
type OptionSource interface {
	GetOptions() option.Set
}

// Generator renders one template against the options of a source.
type Generator struct {
	Document *templates.Document
	Binder   *templates.Binder
	Options  OptionSource
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// New builds a Generator, validating the binding specs once.
func New(doc *templates.Document, specs []templates.BindingSpec, src OptionSource) (*Generator, error) {
	binder, err := templates.NewBinder(specs)
	if err != nil {
		return nil, err
	}
	return &Generator{Document: doc, Binder: binder, Options: src}, nil
}

// Render binds the current options and renders the template without writing.
func (g *Generator) Render() (templates.RenderReport, error) {
	if g.Document == nil {
		return templates.RenderReport{}, ErrNoTemplateLoaded
	}
	b, err := g.Binder.Bind(g.Options.GetOptions())
	if err != nil {
		return templates.RenderReport{}, err
	}
	return templates.RenderWithReport(g.Document, b), nil
}

// Generate renders the template and writes it to path, returning the number of
// lines written.
func (g *Generator) Generate(path string) (int, error) {
	report, err := g.Render()
	if err != nil {
		return 0, err
	}
	if err := writeLines(path, report.Lines); err != nil {
		return 0, ferrors.Wrap(ErrWriteFailed, err).WithContext("path", path).Build()
	}

	logger := g.logger()
	if len(report.Unbound) > 0 {
		logger.Debug("Template tags without binding left unchanged",
			logfields.Template(g.Document.Name()),
			slog.Any("tags", report.Unbound))
	}
	logger.Info("Generated configuration",
		logfields.Template(g.Document.Name()),
		logfields.Path(path),
		logfields.Lines(len(report.Lines)))
	g.recorder().ObserveGeneration(g.Document.Name(), len(report.Lines))
	return len(report.Lines), nil
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

func (g *Generator) recorder() metrics.Recorder {
	if g.Recorder != nil {
		return g.Recorder
	}
	return metrics.NoopRecorder{}
}

// Target pairs a generator with its output path.
type Target struct {
	Name      string
	Path      string
	Generator *Generator
}

// Result is the outcome of one target in GenerateAll.
type Result struct {
	Name  string
	Path  string
	Lines int
}

// GenerateAll renders every target in order and stops at the first failure.
func GenerateAll(ctx context.Context, targets []Target) ([]Result, error) {
	results := make([]Result, 0, len(targets))
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		n, err := t.Generator.Generate(t.Path)
		if err != nil {
			return results, err
		}
		results = append(results, Result{Name: t.Name, Path: t.Path, Lines: n})
	}
	return results, nil
}
