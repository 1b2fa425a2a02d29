package cache

import (
	"github.com/samsarahq/graphcache/graphql"
	"github.com/samsarahq/graphcache/graphql/key"
)

// AnnotatedSelection is one selection as seen by the writer/reader: its
// field name, field-key, namespaced-key, alias and directive status, all
// resolved up front so downstream code never re-derives them, plus its
// own children (recursively annotated the same way) so a caller can
// descend the response tree in lockstep without a second key-derivation
// pass. Children is nil for a selection with no nested selection set.
type AnnotatedSelection struct {
	Selection           *graphql.Selection
	FieldKey            string
	NamespacedKey       string
	Aliased             bool
	HasArgsOrDirectives bool
	Children            []*AnnotatedSelection
}

// PathKey identifies a response-tree path by its unaliased field names,
// joined with ".", e.g. "viewer.profile". The root path is "".
type PathKey string

// Walk traverses root's selection set, producing a map from response path
// to the annotated selections that appear at that path. Fragment spreads
// are expanded against ctx.Fragments before recursion, so both a path's
// own entry and every AnnotatedSelection's Children already have fragment
// fields merged in alongside the selections written directly at that
// level. The Writer and Reader both drive their traversal off this output
// (starting from out[""]) instead of re-deriving field keys themselves.
func Walk(root *graphql.SelectionSet, ctx *graphql.OperationContext) (map[PathKey][]*AnnotatedSelection, error) {
	out := make(map[PathKey][]*AnnotatedSelection)
	if _, err := walkSelectionSet(root, "", "", ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// walkSelectionSet computes the annotated selections for set (fragment
// spreads expanded in, children recursed into their own childPath), then
// records that complete list under path in out exactly once. path is
// owned solely by this call: a fragment spread recurses at the *same*
// path via gatherSelections instead of calling walkSelectionSet again,
// since gatherSelections never touches out itself.
func walkSelectionSet(set *graphql.SelectionSet, path PathKey, namespacePrefix string, ctx *graphql.OperationContext, out map[PathKey][]*AnnotatedSelection) ([]*AnnotatedSelection, error) {
	anns, err := gatherSelections(set, path, namespacePrefix, ctx, out)
	if err != nil {
		return nil, err
	}
	out[path] = append(out[path], anns...)
	return anns, nil
}

// gatherSelections returns the annotated selections found directly in set
// (own selections plus fragment-expanded ones, in that order), recursing
// into a child selection set's own childPath via walkSelectionSet — which
// owns and records that path — but expanding a fragment spread's
// selections directly, since those belong to path, not a path of their
// own.
func gatherSelections(set *graphql.SelectionSet, path PathKey, namespacePrefix string, ctx *graphql.OperationContext, out map[PathKey][]*AnnotatedSelection) ([]*AnnotatedSelection, error) {
	if set == nil {
		return nil, nil
	}

	var anns []*AnnotatedSelection

	for _, sel := range set.Selections {
		fieldKey, err := key.Encode(sel, ctx)
		if err != nil {
			return nil, err
		}

		namespacedKey := fieldKey
		if namespacePrefix != "" {
			namespacedKey = namespacePrefix + "." + fieldKey
		}

		ann := &AnnotatedSelection{
			Selection:           sel,
			FieldKey:            fieldKey,
			NamespacedKey:       namespacedKey,
			Aliased:             sel.Alias != "" && sel.Alias != sel.Name,
			HasArgsOrDirectives: len(sel.Arguments) > 0 || len(nonStandardDirectives(sel.Directives)) > 0,
		}

		if sel.SelectionSet != nil {
			childPath := joinPath(path, sel.Name)
			children, err := walkSelectionSet(sel.SelectionSet, childPath, namespacedKey, ctx, out)
			if err != nil {
				return nil, err
			}
			ann.Children = children
		}

		anns = append(anns, ann)
	}

	for _, spread := range set.Fragments {
		frag, ok := ctx.Fragments[spread.Name]
		if !ok {
			continue
		}
		fragAnns, err := gatherSelections(frag.SelectionSet, path, namespacePrefix, ctx, out)
		if err != nil {
			return nil, err
		}
		anns = append(anns, fragAnns...)
	}

	return anns, nil
}

func joinPath(prefix PathKey, name string) PathKey {
	if prefix == "" {
		return PathKey(name)
	}
	return PathKey(string(prefix) + "." + name)
}

func nonStandardDirectives(directives []*graphql.Directive) []*graphql.Directive {
	var out []*graphql.Directive
	for _, d := range directives {
		if !d.IsStandard() {
			out = append(out, d)
		}
	}
	return out
}
