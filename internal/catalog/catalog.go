// Package catalog holds the static resources compiled into the binary: the
// firmware configuration templates, the tag binding table and the default
// option values for new projects.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/fwbuilder/internal/option"
	"git.home.luguber.info/inful/fwbuilder/internal/templates"
)

//go:embed resources
var resources embed.FS

const (
	templateDir  = "resources/templates"
	templateExt  = ".tmpl"
	bindingsFile = "resources/bindings.yaml"
	defaultsFile = "resources/defaults.yaml"
)

// Template names of the generated firmware configuration files.
const (
	ConfigurationH    = "Configuration.h"
	ConfigurationAdvH = "Configuration_adv.h"
)

type bindingsDoc struct {
	Categories []struct {
		Name     string                  `yaml:"name"`
		Bindings []templates.BindingSpec `yaml:"bindings"`
	} `yaml:"categories"`
}

type defaultsDoc struct {
	Categories []struct {
		Name    string          `yaml:"name"`
		Options []option.Record `yaml:"options"`
	} `yaml:"categories"`
}

var (
	loadDocuments = sync.OnceValues(func() (map[string]*templates.Document, error) {
		return readDocuments(resources)
	})
	loadBindings = sync.OnceValues(func() ([]templates.BindingSpec, error) {
		return readBindings(resources, bindingsFile)
	})
	loadDefaults = sync.OnceValues(func() (option.Set, error) {
		return readDefaults(resources, defaultsFile)
	})
)

// Templates returns the names of the embedded templates, sorted.
func Templates() []string {
	docs, err := loadDocuments()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Document returns the embedded template with the given name, for example
// "Configuration.h".
func Document(name string) (*templates.Document, error) {
	docs, err := loadDocuments()
	if err != nil {
		return nil, err
	}
	doc, ok := docs[name]
	if !ok {
		return nil, fmt.Errorf("no embedded template %q", name)
	}
	return doc, nil
}

// Bindings returns the tag binding specs of every category in declaration order.
func Bindings() ([]templates.BindingSpec, error) {
	specs, err := loadBindings()
	return slices.Clone(specs), err
}

// DefaultOptions returns the default option set for a new project.
func DefaultOptions() (option.Set, error) {
	return loadDefaults()
}

func readDocuments(fsys fs.FS) (map[string]*templates.Document, error) {
	entries, err := fs.ReadDir(fsys, templateDir)
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}
	docs := make(map[string]*templates.Document, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), templateExt) {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(templateDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", e.Name(), err)
		}
		name := strings.TrimSuffix(e.Name(), templateExt)
		docs[name] = templates.ParseDocument(name, string(data))
	}
	return docs, nil
}

func readBindings(fsys fs.FS, name string) ([]templates.BindingSpec, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read bindings: %w", err)
	}
	var doc bindingsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse bindings: %w", err)
	}
	var specs []templates.BindingSpec
	for _, c := range doc.Categories {
		specs = append(specs, c.Bindings...)
	}
	return specs, nil
}

func readDefaults(fsys fs.FS, name string) (option.Set, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return option.Set{}, fmt.Errorf("read defaults: %w", err)
	}
	var doc defaultsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return option.Set{}, fmt.Errorf("parse defaults: %w", err)
	}
	var records []option.Record
	for _, c := range doc.Categories {
		for _, r := range c.Options {
			if r.Category == "" {
				r.Category = c.Name
			}
			records = append(records, r)
		}
	}
	return option.SetFromRecords(records)
}
