package option

import (
	"fmt"
	"slices"
)

// Set is an ordered collection of options with unique names. A Set is a value:
// With returns a modified copy and leaves the receiver untouched.
type Set struct {
	opts  []Option
	index map[string]int
}

// NewSet builds a Set, rejecting invalid options and duplicate names.
func NewSet(opts ...Option) (Set, error) {
	s := Set{opts: make([]Option, 0, len(opts)), index: make(map[string]int, len(opts))}
	for _, o := range opts {
		if err := o.Validate(); err != nil {
			return Set{}, err
		}
		if _, dup := s.index[o.Name]; dup {
			return Set{}, fmt.Errorf("duplicate option %s", o.Name)
		}
		s.index[o.Name] = len(s.opts)
		s.opts = append(s.opts, o)
	}
	return s, nil
}

// MustSet is NewSet for static option tables; it panics on error.
func MustSet(opts ...Option) Set {
	s, err := NewSet(opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Get returns the option with the given name.
func (s Set) Get(name string) (Option, bool) {
	i, ok := s.index[name]
	if !ok {
		return Option{}, false
	}
	return s.opts[i], true
}

// Has reports whether an option with the given name exists.
func (s Set) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

func (s Set) Len() int { return len(s.opts) }

// Options returns a copy of the options in order.
func (s Set) Options() []Option { return slices.Clone(s.opts) }

// Names returns the option names in order.
func (s Set) Names() []string {
	names := make([]string, len(s.opts))
	for i, o := range s.opts {
		names[i] = o.Name
	}
	return names
}

// With returns a copy of s in which opt replaces the option of the same name,
// or is appended when no such option exists.
func (s Set) With(opt Option) (Set, error) {
	if err := opt.Validate(); err != nil {
		return s, err
	}
	out := Set{opts: slices.Clone(s.opts), index: make(map[string]int, len(s.opts)+1)}
	for k, v := range s.index {
		out.index[k] = v
	}
	if i, ok := out.index[opt.Name]; ok {
		out.opts[i] = opt
		return out, nil
	}
	out.index[opt.Name] = len(out.opts)
	out.opts = append(out.opts, opt)
	return out, nil
}
