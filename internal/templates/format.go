package templates

import (
	"strconv"
	"strings"

	"git.home.luguber.info/inful/fwbuilder/internal/option"
)

const (
	definePrefix   = "#define "
	disabledPrefix = "//"
)

// defineLine renders an active definition. An empty value yields the bare
// presence form "#define NAME".
func defineLine(name, value string) string {
	if value == "" {
		return definePrefix + name
	}
	return definePrefix + name + " " + value
}

// disabledLine renders a commented-out definition with no value payload.
func disabledLine(name string) string {
	return disabledPrefix + definePrefix + name
}

// formatValue renders the right-hand side for a single option.
func formatValue(o option.Option, h option.FormatHint) string {
	var v string
	switch o.Kind() {
	case option.Boolean:
		return ""
	case option.Integer:
		v = strconv.FormatInt(o.Value.Int(), 10) + suffix(h)
	case option.Float:
		v = formatFloat(o.Value.Float(), h.Precision) + suffix(h)
	case option.String:
		v = o.Value.Text()
	case option.EnumText:
		v = o.Value.Text()
		if h.ExtractFlag {
			v = ExtractFlag(v)
		}
	}
	return wrap(v, h.Wrap)
}

func formatFloat(f float64, precision int) string {
	return strconv.FormatFloat(f, 'f', precision, 64)
}

func suffix(h option.FormatHint) string {
	if h.EmitSuffix {
		return h.Suffix
	}
	return ""
}

func wrap(v string, w option.Wrap) string {
	switch w {
	case option.WrapQuotes:
		return `"` + v + `"`
	case option.WrapParens:
		return "(" + v + ")"
	default:
		return v
	}
}

// formatArray renders numeric options as "{ a, b, c }".
func formatArray(opts []option.Option, h option.FormatHint) string {
	parts := make([]string, len(opts))
	for i, o := range opts {
		if o.Kind() == option.Float {
			parts[i] = formatFloat(o.Value.Float(), h.Precision) + suffix(h)
			continue
		}
		parts[i] = strconv.FormatInt(o.Value.Int(), 10) + suffix(h)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// ExtractFlag returns the token inside the last bracket pair of an enum display
// value, so "100kΩ EPCOS [1]" yields "1". Text without a complete bracket pair
// is returned unchanged.
func ExtractFlag(display string) string {
	end := strings.LastIndex(display, "]")
	if end < 0 {
		return display
	}
	start := strings.LastIndex(display[:end], "[")
	if start < 0 {
		return display
	}
	return strings.TrimSpace(display[start+1 : end])
}
