package templates

import (
	"fmt"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Condition is a composite-enable rule: a boolean expression over option names,
// for example "BLTOUCH || FIX_MOUNTED_PROBE" or "!SDSUPPORT && (A || B)".
// Every name evaluates to whether that option is active.
type Condition struct {
	src   string
	expr  hclsyntax.Expression
	names []string
}

// ParseCondition parses a composite-enable expression.
func ParseCondition(src string) (*Condition, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "enabled_when", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse condition %q: %s", src, diags.Error())
	}
	var names []string
	for _, traversal := range expr.Variables() {
		if len(traversal) != 1 {
			return nil, fmt.Errorf("condition %q: %s must be a plain option name", src, traversal.RootName())
		}
		if name := traversal.RootName(); !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("condition %q references no options", src)
	}
	return &Condition{src: src, expr: expr, names: names}, nil
}

func (c *Condition) String() string { return c.src }

// Eval evaluates the condition. active reports whether the named option is
// active and whether it exists at all.
func (c *Condition) Eval(active func(name string) (bool, bool)) (bool, error) {
	vars := make(map[string]cty.Value, len(c.names))
	for _, name := range c.names {
		on, ok := active(name)
		if !ok {
			return false, fmt.Errorf("condition %q: unknown option %s", c.src, name)
		}
		vars[name] = cty.BoolVal(on)
	}
	val, diags := c.expr.Value(&hcl.EvalContext{Variables: vars})
	if diags.HasErrors() {
		return false, fmt.Errorf("evaluate condition %q: %s", c.src, diags.Error())
	}
	if val.IsNull() || !val.IsKnown() || !val.Type().Equals(cty.Bool) {
		return false, fmt.Errorf("condition %q does not produce a bool", c.src)
	}
	return val.True(), nil
}
