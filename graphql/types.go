// Package graphql defines the operation AST consumed by the cache: the
// shape of a parsed query or mutation, after a document parser and variable
// binding have already run but before any field has been resolved against a
// server.
//
// Document parsing itself is an external collaborator — this package only
// defines the tree a parser produces and the cache walks. Arguments,
// directives and aliases are explicit and unresolved here (selection
// values are symbolic references to variables), since the cache must
// resolve argument values against variables to build storage keys before
// any field is ever resolved against a server.
package graphql

import "fmt"

// OperationType distinguishes a query from a mutation. Subscriptions are
// out of scope (see Non-goals).
type OperationType int

const (
	Query OperationType = iota
	Mutation
)

func (t OperationType) String() string {
	switch t {
	case Query:
		return "query"
	case Mutation:
		return "mutation"
	default:
		return "unknown"
	}
}

// VariableDefinition is one operation-declared variable, with its optional
// server-declared default.
type VariableDefinition struct {
	Name         string
	DefaultValue Value
}

// Document is a parsed GraphQL document: the operation to execute plus the
// fragments it (transitively) spreads.
type Document struct {
	Operation *Operation
	Fragments map[string]*Fragment
}

// Operation is a single query or mutation definition.
type Operation struct {
	Type         OperationType
	Name         string
	Variables    []*VariableDefinition
	SelectionSet *SelectionSet
}

// SelectionSet is the set of fields (and fragment spreads) selected at one
// level of a query.
//
// A SelectionSet can contain multiple fields and multiple fragments. Because
// GraphQL allows several fragments with the same name or alias, fragments,
// like selections, are kept as a slice rather than a map.
type SelectionSet struct {
	Selections []*Selection
	Fragments  []*FragmentSpread
}

// FragmentSpread references a named fragment; the Selection Walker resolves
// it against a Document's Fragments map.
type FragmentSpread struct {
	Name       string
	Directives []*Directive
}

// Fragment is a reusable, named selection set, optionally restricted to a
// concrete type via On.
type Fragment struct {
	Name         string
	On           string
	SelectionSet *SelectionSet
}

// Selection is one field of a query, with its alias, arguments and
// directives exactly as written in the document (before any argument has
// been resolved against variables).
//
// The selection
//
//	me: user(id: $id) { name }
//
// has name "user" (the source field to query), alias "me" (the name used in
// the output and in the response tree), one argument id, and a subselection
// name.
type Selection struct {
	Name         string
	Alias        string
	Arguments    []*Argument
	Directives   []*Directive
	SelectionSet *SelectionSet
}

// ResponseKey is the key under which this selection's value appears in a
// raw server response: the alias if present, else the field name.
func (s *Selection) ResponseKey() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

// Argument is one `name: value` pair attached to a selection or directive.
type Argument struct {
	Name  string
	Value Value
}

// Directive is a `@name(args...)` annotation on a selection or fragment
// spread. include/skip are standard GraphQL directives the key encoder
// ignores; anything else is non-standard and is folded into the storage
// key.
type Directive struct {
	Name      string
	Arguments []*Argument
}

// IsStandard reports whether d is one of the directives the key encoder
// carves out.
func (d *Directive) IsStandard() bool {
	return d.Name == "include" || d.Name == "skip"
}

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindVariable ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBoolean
	KindNull
	KindEnum
	KindList
	KindObject
)

// Value is a GraphQL argument value: either a reference to an operation
// variable (resolved against the caller's bindings at encode time) or a
// literal of the declared kind. Numbers, booleans and enums carry their
// exact source lexical form (Raw) so re-encoding is byte-identical to the
// document they were parsed from.
type Value struct {
	Kind ValueKind

	// VariableName is set when Kind == KindVariable.
	VariableName string

	// Raw is the literal's source text for String/Int/Float/Boolean/Enum.
	// For KindString, Raw holds the unquoted value.
	Raw string

	// List holds element values when Kind == KindList.
	List []Value

	// Object holds field values when Kind == KindObject.
	Object []*Argument
}

func (v Value) String() string {
	switch v.Kind {
	case KindVariable:
		return fmt.Sprintf("$%s", v.VariableName)
	case KindString:
		return fmt.Sprintf("%q", v.Raw)
	case KindNull:
		return "null"
	default:
		return v.Raw
	}
}

// OperationContext bundles the caller's variable bindings with the
// operation that declared them, so the Key Encoder and Selection Walker can
// resolve variables without re-threading both values through every call.
type OperationContext struct {
	Operation *Operation
	Fragments map[string]*Fragment
	Variables map[string]interface{}
}

// VariableDefault looks up the server-declared default for a variable, if
// any.
func (c *OperationContext) VariableDefault(name string) (Value, bool) {
	for _, v := range c.Operation.Variables {
		if v.Name == name {
			return v.DefaultValue, true
		}
	}
	return Value{}, false
}
