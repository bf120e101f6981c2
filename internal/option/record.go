package option

import "fmt"

// Record is the serialized form of an Option used by resource files and
// project files. Values are kept as text and parsed according to Kind.
type Record struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	Value       string `yaml:"value"`
	Enabled     bool   `yaml:"enabled"`
	Category    string `yaml:"category,omitempty"`
	Label       string `yaml:"label,omitempty"`
	Precision   int    `yaml:"precision,omitempty"`
	Suffix      string `yaml:"suffix,omitempty"`
	EmitSuffix  bool   `yaml:"emit_suffix,omitempty"`
	Wrap        string `yaml:"wrap,omitempty"`
	ExtractFlag bool   `yaml:"extract_flag,omitempty"`
}

// Option parses the record.
func (r Record) Option() (Option, error) {
	kind, err := ParseKind(r.Kind)
	if err != nil {
		return Option{}, fmt.Errorf("option %s: %w", r.Name, err)
	}
	v, err := ParseValue(kind, r.Value)
	if err != nil {
		return Option{}, fmt.Errorf("option %s: %w", r.Name, err)
	}
	w, err := ParseWrap(r.Wrap)
	if err != nil {
		return Option{}, fmt.Errorf("option %s: %w", r.Name, err)
	}
	o := Option{
		Name:     r.Name,
		Value:    v,
		Enabled:  r.Enabled,
		Category: r.Category,
		Label:    r.Label,
		Hint: FormatHint{
			Precision:   r.Precision,
			Suffix:      r.Suffix,
			EmitSuffix:  r.EmitSuffix,
			Wrap:        w,
			ExtractFlag: r.ExtractFlag,
		},
	}
	return o, o.Validate()
}

// RecordOf serializes an option. Float values keep full precision; the
// rendering precision is stored separately.
func RecordOf(o Option) Record {
	r := Record{
		Name:        o.Name,
		Kind:        o.Kind().String(),
		Enabled:     o.Enabled,
		Category:    o.Category,
		Label:       o.Label,
		Precision:   o.Hint.Precision,
		Suffix:      o.Hint.Suffix,
		EmitSuffix:  o.Hint.EmitSuffix,
		ExtractFlag: o.Hint.ExtractFlag,
	}
	if o.Hint.Wrap != WrapNone {
		r.Wrap = o.Hint.Wrap.String()
	}
	r.Value = o.Value.String()
	return r
}

// SetFromRecords parses records into a Set.
func SetFromRecords(records []Record) (Set, error) {
	opts := make([]Option, 0, len(records))
	for _, r := range records {
		o, err := r.Option()
		if err != nil {
			return Set{}, err
		}
		opts = append(opts, o)
	}
	return NewSet(opts...)
}

// Records serializes every option of s in order.
func (s Set) Records() []Record {
	out := make([]Record, len(s.opts))
	for i, o := range s.opts {
		out[i] = RecordOf(o)
	}
	return out
}
