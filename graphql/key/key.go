// Package key implements the cache's Key Encoder: deriving the storage key
// for a selection from its field name, arguments and non-standard
// directives.
//
// Arguments are resolved to strings up front rather than via reflection
// at resolve time, since the key needs to exist before any field is ever
// resolved against a server; this package follows the terse,
// no-reflection string-building style the rest of this tree uses for
// encoding.
package key

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samsarahq/go/oops"
	"github.com/samsarahq/graphcache/graphql"
)

// ErrMalformedSelection is returned by Encode when given a selection with
// no field name. Exported so other packages (cache.ErrEncode) can compare
// against the same sentinel with errors.Is rather than pattern-matching on
// message text.
var ErrMalformedSelection = oops.Errorf("encode-error: selection is missing a field name")

// Encode derives the field-key for sel, resolving any variable-valued
// arguments against ctx. If sel has neither arguments nor non-standard
// directives, the bare field name is returned.
func Encode(sel *graphql.Selection, ctx *graphql.OperationContext) (string, error) {
	if sel == nil || sel.Name == "" {
		return "", ErrMalformedSelection
	}

	nonStandard := nonStandardDirectives(sel.Directives)
	if len(sel.Arguments) == 0 && len(nonStandard) == 0 {
		return sel.Name, nil
	}

	var b strings.Builder
	b.WriteString(sel.Name)

	if len(sel.Arguments) > 0 {
		args, err := encodeArguments(sel.Arguments, ctx)
		if err != nil {
			return "", oops.Wrapf(err, "encoding arguments for %q", sel.Name)
		}
		b.WriteString("(")
		b.WriteString(args)
		b.WriteString(")")
	}

	for _, d := range nonStandard {
		b.WriteString("@")
		b.WriteString(d.Name)
		if len(d.Arguments) > 0 {
			args, err := encodeArguments(d.Arguments, ctx)
			if err != nil {
				return "", oops.Wrapf(err, "encoding arguments for directive @%s", d.Name)
			}
			b.WriteString("(")
			b.WriteString(args)
			b.WriteString(")")
		}
	}

	return b.String(), nil
}

// nonStandardDirectives returns sel's directives other than include/skip, in
// source order.
func nonStandardDirectives(directives []*graphql.Directive) []*graphql.Directive {
	var out []*graphql.Directive
	for _, d := range directives {
		if !d.IsStandard() {
			out = append(out, d)
		}
	}
	return out
}

// encodeArguments renders `{"a":v1,"b":v2}`-shaped argument text, in source
// order, with resolved variable values substituted in.
func encodeArguments(args []*graphql.Argument, ctx *graphql.OperationContext) (string, error) {
	var b strings.Builder
	b.WriteString(`{`)
	for i, arg := range args {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("%q", arg.Name))
		b.WriteString(":")
		rendered, err := encodeValue(arg.Value, ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(rendered)
	}
	b.WriteString(`}`)
	return b.String(), nil
}

// encodeValue resolves and renders a single argument value: a variable
// looks up the caller's binding, falling back to the operation's declared
// default, falling back to null; a literal is rendered in its source
// lexical form, with strings double-quoted.
func encodeValue(v graphql.Value, ctx *graphql.OperationContext) (string, error) {
	if v.Kind == graphql.KindVariable {
		resolved, ok := resolveVariable(v.VariableName, ctx)
		if !ok {
			return "null", nil
		}
		return resolved, nil
	}
	return renderLiteral(v, ctx)
}

// resolveVariable looks up name in the caller's bindings, falling back to
// the operation's declared default. The second return is false only when
// neither is present, in which case the caller encodes null.
func resolveVariable(name string, ctx *graphql.OperationContext) (string, bool) {
	if val, ok := ctx.Variables[name]; ok {
		return renderBound(val), true
	}
	if def, ok := ctx.VariableDefault(name); ok {
		rendered, err := renderLiteral(def, ctx)
		if err == nil {
			return rendered, true
		}
	}
	return "", false
}

// renderBound renders a caller-supplied Go value (already-decoded JSON:
// string, float64/int, bool, nil, []interface{}, map[string]interface{}).
func renderBound(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case []interface{}:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = renderBound(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%q:%s", k, renderBound(v[k]))
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// renderLiteral renders a non-variable Value in source lexical form.
func renderLiteral(v graphql.Value, ctx *graphql.OperationContext) (string, error) {
	switch v.Kind {
	case graphql.KindString:
		return fmt.Sprintf("%q", v.Raw), nil
	case graphql.KindInt, graphql.KindFloat, graphql.KindBoolean, graphql.KindEnum:
		return v.Raw, nil
	case graphql.KindNull:
		return "null", nil
	case graphql.KindList:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			rendered, err := encodeValue(e, ctx)
			if err != nil {
				return "", err
			}
			parts[i] = rendered
		}
		return "[" + strings.Join(parts, ",") + "]", nil
	case graphql.KindObject:
		rendered, err := encodeArguments(v.Object, ctx)
		if err != nil {
			return "", err
		}
		return rendered, nil
	default:
		return "", oops.Errorf("encode-error: unrecognized value kind %d", v.Kind)
	}
}
