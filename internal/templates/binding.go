package templates

import (
	"fmt"
	"log/slog"

	ferrors "git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/option"
)

// ErrBinding is the sentinel for binding composition failures: specs that
// reference missing options, duplicate tags or malformed conditions. These are
// programmer errors in the binding tables.
var ErrBinding = ferrors.TemplateError("invalid tag binding").Build()

// FormatSpec overrides an option's FormatHint for one binding. Nil fields keep
// the option's own hint.
type FormatSpec struct {
	Precision   *int    `yaml:"precision,omitempty"`
	Suffix      *string `yaml:"suffix,omitempty"`
	EmitSuffix  *bool   `yaml:"emit_suffix,omitempty"`
	Wrap        *string `yaml:"wrap,omitempty"`
	ExtractFlag *bool   `yaml:"extract_flag,omitempty"`
}

func (f *FormatSpec) apply(h option.FormatHint) (option.FormatHint, error) {
	if f == nil {
		return h, nil
	}
	if f.Precision != nil {
		if *f.Precision < 0 || *f.Precision > option.MaxPrecision {
			return h, fmt.Errorf("precision %d out of range 0-%d", *f.Precision, option.MaxPrecision)
		}
		h.Precision = *f.Precision
	}
	if f.Suffix != nil {
		h.Suffix = *f.Suffix
	}
	if f.EmitSuffix != nil {
		h.EmitSuffix = *f.EmitSuffix
	}
	if f.Wrap != nil {
		w, err := option.ParseWrap(*f.Wrap)
		if err != nil {
			return h, err
		}
		h.Wrap = w
	}
	if f.ExtractFlag != nil {
		h.ExtractFlag = *f.ExtractFlag
	}
	return h, nil
}

// BindingSpec declares how one tag renders. It is plain data so binding tables
// can live in resource files.
type BindingSpec struct {
	// Tag is the tag name without the #{ } delimiters.
	Tag string `yaml:"tag"`
	// Define is the preprocessor name to emit; defaults to Tag.
	Define string `yaml:"define,omitempty"`
	// Option names the bound option; defaults to Tag when Options is empty.
	Option string `yaml:"option,omitempty"`
	// Options makes this an array binding over numeric options.
	Options []string `yaml:"options,omitempty"`
	// EnabledWhen replaces the option's own enable state with a composite rule.
	EnabledWhen string      `yaml:"enabled_when,omitempty"`
	Format      *FormatSpec `yaml:"format,omitempty"`
}

func (s BindingSpec) define() string {
	if s.Define != "" {
		return s.Define
	}
	return s.Tag
}

func (s BindingSpec) optionNames() []string {
	if len(s.Options) > 0 {
		return s.Options
	}
	if s.Option != "" {
		return []string{s.Option}
	}
	return []string{s.Tag}
}

type compiledSpec struct {
	spec  BindingSpec
	token string
	cond  *Condition
}

// Binder holds validated binding specs. It is built once at startup and binds
// option snapshots on every render.
type Binder struct {
	specs []compiledSpec
}

// NewBinder validates specs: every spec needs a tag that can appear in a
// template (no whitespace or braces), tags are unique and conditions must parse.
func NewBinder(specs []BindingSpec) (*Binder, error) {
	b := &Binder{specs: make([]compiledSpec, 0, len(specs))}
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if spec.Tag == "" {
			return nil, bindingError("binding without tag", spec)
		}
		if !validTagName(spec.Tag) {
			return nil, bindingError("tag name contains whitespace or braces", spec)
		}
		token := Tag(spec.Tag)
		if seen[token] {
			return nil, bindingError("duplicate tag binding", spec)
		}
		seen[token] = true

		cs := compiledSpec{spec: spec, token: token}
		if spec.Options != nil && len(spec.Options) == 0 {
			return nil, bindingError("array binding without options", spec)
		}
		if spec.EnabledWhen != "" {
			cond, err := ParseCondition(spec.EnabledWhen)
			if err != nil {
				return nil, ferrors.Wrap(ErrBinding, err).WithContext("tag", token).Build()
			}
			cs.cond = cond
		}
		b.specs = append(b.specs, cs)
	}
	return b, nil
}

// Bind resolves every spec against set. The returned Bindings hold copies of
// the options, so later changes to the provider do not affect them. A spec
// naming an option missing from set is an error.
func (b *Binder) Bind(set option.Set) (Bindings, error) {
	out := Bindings{lines: make(map[string]string, len(b.specs))}
	active := func(name string) (bool, bool) {
		o, ok := set.Get(name)
		return o.Active(), ok
	}
	for _, cs := range b.specs {
		line, err := cs.resolve(set, active)
		if err != nil {
			return Bindings{}, ferrors.Wrap(ErrBinding, err).WithContext("tag", cs.token).Build()
		}
		out.lines[cs.token] = line
	}
	return out, nil
}

func (cs compiledSpec) resolve(set option.Set, active func(string) (bool, bool)) (string, error) {
	names := cs.spec.optionNames()
	opts := make([]option.Option, 0, len(names))
	for _, name := range names {
		o, ok := set.Get(name)
		if !ok {
			return "", fmt.Errorf("option %s not found", name)
		}
		opts = append(opts, o)
	}

	if len(cs.spec.Options) > 0 {
		if err := checkArray(opts); err != nil {
			return "", err
		}
	}

	hint, err := cs.spec.Format.apply(opts[0].Hint)
	if err != nil {
		return "", err
	}

	enabled := defaultEnabled(opts)
	if cs.cond != nil {
		if enabled, err = cs.cond.Eval(active); err != nil {
			return "", err
		}
	}
	define := cs.spec.define()
	if !enabled {
		return disabledLine(define), nil
	}

	if len(cs.spec.Options) > 0 {
		return defineLine(define, formatArray(opts, hint)), nil
	}
	return defineLine(define, formatValue(opts[0], hint)), nil
}

// checkArray requires numeric elements of a single kind.
func checkArray(opts []option.Option) error {
	first := opts[0].Kind()
	for _, o := range opts {
		k := o.Kind()
		if k != option.Integer && k != option.Float {
			return fmt.Errorf("array element %s has kind %s", o.Name, k)
		}
		if k != first {
			return fmt.Errorf("array element %s has kind %s, want %s", o.Name, k, first)
		}
	}
	return nil
}

// defaultEnabled is the enable state when no composite rule is given: the
// option's own Active state, or for arrays whether every element is enabled.
func defaultEnabled(opts []option.Option) bool {
	if len(opts) == 1 {
		return opts[0].Active()
	}
	for _, o := range opts {
		if !o.Enabled {
			return false
		}
	}
	return true
}

func bindingError(msg string, spec BindingSpec) error {
	return ferrors.Wrap(ErrBinding, fmt.Errorf("%s: %+v", msg, spec)).
		WithContext("tag", spec.Tag).
		Build()
}

// Bind is NewBinder followed by Binder.Bind, for one-off renders.
func Bind(set option.Set, specs []BindingSpec) (Bindings, error) {
	b, err := NewBinder(specs)
	if err != nil {
		return Bindings{}, err
	}
	return b.Bind(set)
}

// Bindings maps tag tokens to their rendered lines for one option snapshot.
type Bindings struct {
	lines map[string]string
}

// Line returns the generated line for a tag token.
func (b Bindings) Line(token string) (string, bool) {
	line, ok := b.lines[token]
	return line, ok
}

func (b Bindings) Len() int { return len(b.lines) }

// LogValue keeps large binding tables out of log lines.
func (b Bindings) LogValue() slog.Value {
	return slog.IntValue(len(b.lines))
}
