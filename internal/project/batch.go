package project

import (
	"fmt"

	ferrors "git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/option"
)

// Batch collects changes to a working copy of a project's state.
type Batch struct {
	set     option.Set
	env     string
	changed bool
}

// Options returns the working copy.
func (b *Batch) Options() option.Set { return b.set }

func (b *Batch) lookup(name string) (option.Option, error) {
	o, ok := b.set.Get(name)
	if !ok {
		return option.Option{}, ferrors.Wrap(ErrUnknownOption, fmt.Errorf("%s is not defined in the project", name)).
			WithContext("option", name).Build()
	}
	return o, nil
}

func (b *Batch) replace(o option.Option) error {
	set, err := b.set.With(o)
	if err != nil {
		return ferrors.Wrap(ErrInvalid, err).WithContext("option", o.Name).Build()
	}
	b.set = set
	b.changed = true
	return nil
}

// SetOption replaces the value of an existing option.
func (b *Batch) SetOption(name string, v option.Value) error {
	o, err := b.lookup(name)
	if err != nil {
		return err
	}
	if v.Kind() != o.Kind() {
		return ferrors.Wrap(ErrKindMismatch, nil).
			WithContext("option", name).
			WithContext("want", o.Kind().String()).
			WithContext("got", v.Kind().String()).
			Build()
	}
	o.Value = v
	return b.replace(o)
}

// SetText parses raw according to the option's kind and sets it.
func (b *Batch) SetText(name, raw string) error {
	o, err := b.lookup(name)
	if err != nil {
		return err
	}
	v, err := option.ParseValue(o.Kind(), raw)
	if err != nil {
		return ferrors.Wrap(ErrKindMismatch, err).WithContext("option", name).Build()
	}
	return b.SetOption(name, v)
}

// SetEnabled toggles an existing option.
func (b *Batch) SetEnabled(name string, enabled bool) error {
	o, err := b.lookup(name)
	if err != nil {
		return err
	}
	o.Enabled = enabled
	return b.replace(o)
}

// SetEnvironment selects the build environment.
func (b *Batch) SetEnvironment(env string) {
	if env == b.env {
		return
	}
	b.env = env
	b.changed = true
}
