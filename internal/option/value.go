package option

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the type of an option value.
type Kind int

const (
	Boolean Kind = iota + 1
	Integer
	Float
	String
	EnumText
)

var kindNames = map[Kind]string{
	Boolean:  "bool",
	Integer:  "int",
	Float:    "float",
	String:   "string",
	EnumText: "enum",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a kind name ("bool", "int", "float", "string", "enum") to a Kind.
func ParseKind(raw string) (Kind, error) {
	needle := strings.ToLower(strings.TrimSpace(raw))
	for k, name := range kindNames {
		if name == needle {
			return k, nil
		}
	}
	switch needle {
	case "boolean":
		return Boolean, nil
	case "integer":
		return Integer, nil
	case "enumtext":
		return EnumText, nil
	}
	return 0, fmt.Errorf("unknown option kind %q", raw)
}

// Value is a kind-tagged option value. The zero Value has no kind.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

func BoolValue(b bool) Value         { return Value{kind: Boolean, b: b} }
func IntValue(i int64) Value         { return Value{kind: Integer, i: i} }
func FloatValue(f float64) Value     { return Value{kind: Float, f: f} }
func StringValue(s string) Value     { return Value{kind: String, s: s} }
func EnumValue(display string) Value { return Value{kind: EnumText, s: display} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) Bool() bool     { return v.b }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Text() string   { return v.s }
func (v Value) IsZero() bool   { return v.kind == 0 }

// String renders the value the way it is persisted in project files.
func (v Value) String() string {
	switch v.kind {
	case Boolean:
		return strconv.FormatBool(v.b)
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case String, EnumText:
		return v.s
	default:
		return ""
	}
}

// ParseValue converts raw text into a Value of the given kind. Integers accept
// Go literal prefixes (0x, 0b, 0o).
func ParseValue(kind Kind, raw string) (Value, error) {
	switch kind {
	case Boolean:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return Value{}, fmt.Errorf("parse bool %q: %w", raw, err)
		}
		return BoolValue(b), nil
	case Integer:
		i, err := strconv.ParseInt(strings.TrimSpace(raw), 0, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse int %q: %w", raw, err)
		}
		return IntValue(i), nil
	case Float:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse float %q: %w", raw, err)
		}
		return FloatValue(f), nil
	case String:
		return StringValue(raw), nil
	case EnumText:
		return EnumValue(raw), nil
	default:
		return Value{}, fmt.Errorf("parse value: %s", kind)
	}
}
