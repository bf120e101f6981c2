// Package project implements option.Provider on top of a YAML project file
// holding option values and the selected build environment.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/option"
)

var (
	ErrUnknownOption = ferrors.ValidationError("unknown option").Build()
	ErrKindMismatch  = ferrors.ValidationError("option value has the wrong kind").Build()
	ErrNotFound      = ferrors.ProjectError("project file not found").Build()
	ErrInvalid       = ferrors.ProjectError("invalid project file").Build()
	ErrSaveFailed    = ferrors.FileSystemError("project file could not be written").Build()
)

// File is the on-disk layout of a project.
type File struct {
	Environment string          `yaml:"environment"`
	Options     []option.Record `yaml:"options"`
}

// ChangeFunc is called with the new option set after a committed change.
type ChangeFunc func(option.Set)

// Project is an option.Provider backed by a project file. It is safe for
// concurrent use. Mutations are serialized; readers see committed snapshots.
type Project struct {
	option.CancelFlag

	path string

	writeMu sync.Mutex
	mu      sync.RWMutex
	set     option.Set
	env     string

	listenerMu sync.Mutex
	listeners  map[int]ChangeFunc
	nextID     int
}

var _ option.Provider = (*Project)(nil)

// New creates an unsaved project at path.
func New(path string, set option.Set, env string) *Project {
	return &Project{path: path, set: set, env: env, listeners: make(map[int]ChangeFunc)}
}

// Load reads the project file at path.
func Load(path string) (*Project, error) {
	set, env, err := read(path)
	if err != nil {
		return nil, err
	}
	return New(path, set, env), nil
}

func read(path string) (option.Set, string, error) {
	// #nosec G304 -- the project path is chosen by the user.
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return option.Set{}, "", ferrors.Wrap(ErrNotFound, err).WithContext("path", path).UserAction().Build()
	}
	if err != nil {
		return option.Set{}, "", ferrors.Wrap(ErrInvalid, err).WithContext("path", path).Build()
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return option.Set{}, "", ferrors.Wrap(ErrInvalid, err).WithContext("path", path).Build()
	}
	set, err := option.SetFromRecords(f.Options)
	if err != nil {
		return option.Set{}, "", ferrors.Wrap(ErrInvalid, err).WithContext("path", path).Build()
	}
	return set, f.Environment, nil
}

// Path returns the project file path.
func (p *Project) Path() string { return p.path }

// GetOptions returns the committed option set.
func (p *Project) GetOptions() option.Set {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.set
}

// CurrentEnvironment returns the selected build environment.
func (p *Project) CurrentEnvironment() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.env
}

// ResetCancel clears a cancel request left over from a previous session.
func (p *Project) ResetCancel() { p.Reset() }

// SetOption replaces the value of an existing option. The value must have the
// option's kind.
func (p *Project) SetOption(name string, v option.Value) error {
	return p.Batch(func(b *Batch) error { return b.SetOption(name, v) })
}

// SetEnabled toggles an existing option.
func (p *Project) SetEnabled(name string, enabled bool) error {
	return p.Batch(func(b *Batch) error { return b.SetEnabled(name, enabled) })
}

// SetEnvironment selects the build environment.
func (p *Project) SetEnvironment(env string) error {
	return p.Batch(func(b *Batch) error {
		b.SetEnvironment(env)
		return nil
	})
}

// Batch applies the changes made by fn as one update. Listeners fire once
// after fn returns, and only when something changed. When fn fails nothing is
// committed. fn must not call mutating methods of p.
func (p *Project) Batch(fn func(*Batch) error) error {
	set, changed, err := p.apply(fn)
	if err != nil {
		return err
	}
	if changed {
		p.notify(set)
	}
	return nil
}

func (p *Project) apply(fn func(*Batch) error) (option.Set, bool, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.RLock()
	b := &Batch{set: p.set, env: p.env}
	p.mu.RUnlock()

	if err := fn(b); err != nil {
		return option.Set{}, false, err
	}
	if b.changed {
		p.mu.Lock()
		p.set, p.env = b.set, b.env
		p.mu.Unlock()
	}
	return b.set, b.changed, nil
}

// Reload re-reads the project file, replacing the in-memory state. Listeners
// fire when the file was read successfully.
func (p *Project) Reload() error {
	set, env, err := read(p.path)
	if err != nil {
		return err
	}
	return p.Batch(func(b *Batch) error {
		b.set, b.env, b.changed = set, env, true
		return nil
	})
}

// OnChange registers fn and returns a function that removes it.
func (p *Project) OnChange(fn ChangeFunc) (remove func()) {
	p.listenerMu.Lock()
	defer p.listenerMu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.listenerMu.Lock()
		defer p.listenerMu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Project) notify(set option.Set) {
	p.listenerMu.Lock()
	ids := make([]int, 0, len(p.listeners))
	for id := range p.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]ChangeFunc, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, p.listeners[id])
	}
	p.listenerMu.Unlock()

	for _, fn := range fns {
		fn(set)
	}
}

// Save writes the project file, replacing it atomically.
func (p *Project) Save() error {
	p.mu.RLock()
	f := File{Environment: p.env, Options: p.set.Records()}
	p.mu.RUnlock()

	data, err := yaml.Marshal(f)
	if err != nil {
		return ferrors.InternalError("marshal project file").WithCause(err).Build()
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ferrors.Wrap(ErrSaveFailed, err).WithContext("path", p.path).Build()
	}
	tempPath := p.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return ferrors.Wrap(ErrSaveFailed, err).WithContext("path", p.path).Build()
	}
	if err := os.Rename(tempPath, p.path); err != nil {
		_ = os.Remove(tempPath)
		return ferrors.Wrap(ErrSaveFailed, fmt.Errorf("replace project file: %w", err)).WithContext("path", p.path).Build()
	}
	return nil
}
