package option

import "fmt"

// Wrap selects how a rendered value is enclosed.
type Wrap int

const (
	WrapNone Wrap = iota
	WrapQuotes
	WrapParens
)

func (w Wrap) String() string {
	switch w {
	case WrapQuotes:
		return "quotes"
	case WrapParens:
		return "parens"
	default:
		return "none"
	}
}

// ParseWrap maps "none", "quotes" or "parens" to a Wrap; empty means WrapNone.
func ParseWrap(raw string) (Wrap, error) {
	switch raw {
	case "", "none":
		return WrapNone, nil
	case "quotes", "quote":
		return WrapQuotes, nil
	case "parens", "parentheses":
		return WrapParens, nil
	}
	return WrapNone, fmt.Errorf("unknown wrap %q", raw)
}

// MaxPrecision is the largest decimal-place count a Float option may request.
const MaxPrecision = 6

// FormatHint carries per-option rendering hints.
type FormatHint struct {
	// Precision is the fixed number of decimal places for Float values.
	Precision int
	// Suffix is appended to numeric values when EmitSuffix is set.
	Suffix     string
	EmitSuffix bool
	Wrap       Wrap
	// ExtractFlag makes EnumText values render only the bracketed token of
	// "Description [FLAG]".
	ExtractFlag bool
}

// Option is a single typed, named, enable-gated configuration value.
type Option struct {
	Name     string
	Value    Value
	Enabled  bool
	Hint     FormatHint
	Category string
	Label    string
}

// Kind returns the kind of the option's value.
func (o Option) Kind() Kind { return o.Value.Kind() }

// Active reports whether the option contributes an active definition. A
// Boolean option is active only when it is enabled and its value is true.
func (o Option) Active() bool {
	if !o.Enabled {
		return false
	}
	if o.Kind() == Boolean {
		return o.Value.Bool()
	}
	return true
}

// Validate checks the option is well formed.
func (o Option) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("option name is required")
	}
	if o.Value.IsZero() {
		return fmt.Errorf("option %s: value has no kind", o.Name)
	}
	if o.Hint.Precision < 0 || o.Hint.Precision > MaxPrecision {
		return fmt.Errorf("option %s: precision %d out of range 0-%d", o.Name, o.Hint.Precision, MaxPrecision)
	}
	return nil
}
