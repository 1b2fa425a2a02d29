package cache

import (
	"fmt"

	"github.com/samsarahq/go/oops"
	"github.com/samsarahq/graphcache/graphql"
)

// mutationRootValue is the root record's identity value for mutation
// operations, distinct from the query root's RootValue so a mutation's
// top-level fields never collide with (or pollute) the query root record,
// since the two are never read back through the same pattern.
const mutationRootValue = "ROOT_MUTATION"

// writer normalizes a response tree into entity records and collects them
// for merge into the store.
//
// It drives its traversal off Walk's annotated selection tree rather than
// re-deriving each selection's field-key itself: recursion into a child
// selection's value always completes — and that child is registered as
// its own entity — before the parent selection's own record is built,
// which gives the same deepest-first ordering guarantee a sort-by-depth
// pass would, without a second pass that has to re-locate "every map at
// path P" after the first pass has already rewritten some of the tree out
// from under it.
type writer struct {
	cfg      Config
	idAttrs  map[string]bool
	entities map[Ref]Record
}

// writeResponse normalizes data (a query or mutation's top-level response
// map) against doc/vars, returning the ref of the synthetic root record
// and the full set of entities produced by this write.
func writeResponse(doc *graphql.Document, data map[string]interface{}, vars map[string]interface{}, cfg Config) (Ref, map[Ref]Record, error) {
	ctx := &graphql.OperationContext{
		Operation: doc.Operation,
		Fragments: doc.Fragments,
		Variables: vars,
	}

	anns, err := Walk(doc.Operation.SelectionSet, ctx)
	if err != nil {
		return Ref{}, nil, err
	}

	w := &writer{
		cfg:      cfg,
		idAttrs:  cfg.idAttrSet(),
		entities: make(map[Ref]Record),
	}

	root := rootRef(cfg.cacheKeyField())
	if doc.Operation.Type == graphql.Mutation {
		root = Ref{Field: cfg.cacheKeyField(), Value: mutationRootValue}
	}

	fields, err := w.rewriteFields(anns[""], data)
	if err != nil {
		return Ref{}, nil, err
	}
	record := Record(fields)
	record[cfg.cacheKeyField()] = Scalar{Value: root.Value}
	w.entities[root] = record

	return root, w.entities, nil
}

// rewriteFields applies every annotated selection in anns (fragment
// spreads already expanded in by Walk) against m, returning the resulting
// field-keyed record fields.
func (w *writer) rewriteFields(anns []*AnnotatedSelection, m map[string]interface{}) (map[string]FieldValue, error) {
	out := make(map[string]FieldValue, len(anns))

	for _, ann := range anns {
		raw, present := m[ann.Selection.ResponseKey()]
		if !present {
			continue
		}

		fv, err := w.processValue(ann, raw)
		if err != nil {
			return nil, oops.Wrapf(err, "writing field %q", ann.FieldKey)
		}
		out[ann.FieldKey] = fv
	}

	return out, nil
}

// processValue dispatches on whether ann's selection has a nested
// selection set: with one, raw must be an object, a list of objects, or
// null, and becomes a reference (or list of references) into a newly
// registered entity; without one, raw is whatever scalar/list/opaque-map
// shape a leaf field returns.
func (w *writer) processValue(ann *AnnotatedSelection, raw interface{}) (FieldValue, error) {
	sel := ann.Selection
	if sel.SelectionSet == nil {
		return w.leafValue(raw, ann.NamespacedKey)
	}

	switch v := raw.(type) {
	case nil:
		return Scalar{Value: nil}, nil
	case map[string]interface{}:
		ref, err := w.normalizeEntityMap(ann.Children, v, ann.NamespacedKey, -1)
		if err != nil {
			return nil, err
		}
		return RefValue{Ref: ref}, nil
	case []interface{}:
		refs := make([]Ref, len(v))
		for i, elem := range v {
			emap, ok := elem.(map[string]interface{})
			if !ok {
				return nil, oops.Wrapf(ErrMixedEntityMap, "list element %d under %q is not an object", i, ann.NamespacedKey)
			}
			ref, err := w.normalizeEntityMap(ann.Children, emap, ann.NamespacedKey, i)
			if err != nil {
				return nil, err
			}
			refs[i] = ref
		}
		return RefList{Refs: refs}, nil
	default:
		return nil, oops.Errorf("field %q with a sub-selection returned a non-object value %T", sel.Name, raw)
	}
}

// normalizeEntityMap rewrites m's own fields (recursively), determines its
// identity (a configured id-attr, or a synthetic marker if none is
// present), and registers it as an entity. index is the element position
// within a list, or -1 for a singular field.
func (w *writer) normalizeEntityMap(children []*AnnotatedSelection, m map[string]interface{}, namespacedKey string, index int) (Ref, error) {
	fields, err := w.rewriteFields(children, m)
	if err != nil {
		return Ref{}, err
	}

	if typename, ok := m["__typename"].(string); ok && typename != "" {
		fields = namespaceFields(fields, typename)
	}

	ref, hasID := detectIdentity(fields, w.idAttrs)
	if !hasID {
		marker := namespacedKey
		if index >= 0 {
			marker = fmt.Sprintf("%s.%d", namespacedKey, index)
		}
		ref = Ref{Field: w.cfg.cacheKeyField(), Value: marker}
	}

	record := Record(fields)
	if !hasID {
		record[w.cfg.cacheKeyField()] = Scalar{Value: ref.Value}
	}

	if prev, ok := w.entities[ref]; ok {
		record = mergeRecord(prev, record)
	}
	w.entities[ref] = record

	return ref, nil
}

// namespaceFields rewrites every key in fields to "<typename>/<key>", so
// two entities of different types sharing a field-key (or even an id-attr
// name) don't collide in the store.
func namespaceFields(fields map[string]FieldValue, typename string) map[string]FieldValue {
	out := make(map[string]FieldValue, len(fields))
	for k, v := range fields {
		out[typename+"/"+k] = v
	}
	return out
}

// detectIdentity reports whether fields contains a configured id-attr, and
// if so the Ref it identifies.
func detectIdentity(fields map[string]FieldValue, idAttrs map[string]bool) (Ref, bool) {
	for k := range idAttrs {
		if v, ok := fields[k]; ok {
			if sc, ok := v.(Scalar); ok {
				return Ref{Field: k, Value: scalarIdentity(sc.Value)}, true
			}
		}
	}
	return Ref{}, false
}

// leafValue converts the response value of a selection with no nested
// selection set: a primitive, null, a homogeneous list of primitives, or
// an opaque JSON object/list that the writer has no selection to decode
// and must inspect structurally instead — a sub-map whose values are
// entity references, or a plain sub-map of primitives.
func (w *writer) leafValue(raw interface{}, namespacedKey string) (FieldValue, error) {
	switch v := raw.(type) {
	case nil:
		return Scalar{Value: nil}, nil
	case []interface{}:
		return w.leafList(v, namespacedKey)
	case map[string]interface{}:
		return w.leafMap(v, namespacedKey)
	default:
		return Scalar{Value: v}, nil
	}
}

// leafMap classifies an unselected JSON object's immediate values: if all
// are themselves identifiable entities (by a configured id-attr), m
// becomes a RefMap; if none are, a SubMap of scalars; a mix of the two is
// the mixed-entity-map error. This check only applies to loose maps —
// never to a selection-driven record's own fields, which are never
// ambiguous since normalizeEntityMap always has a marker to fall back on.
func (w *writer) leafMap(m map[string]interface{}, namespacedKey string) (FieldValue, error) {
	hasEntity, hasPlain := false, false
	refs := make(map[string]Ref, len(m))
	plain := make(map[string]FieldValue, len(m))

	for k, v := range m {
		sub, ok := v.(map[string]interface{})
		if !ok {
			hasPlain = true
			fv, err := w.leafValue(v, namespacedKey+"."+k)
			if err != nil {
				return nil, err
			}
			plain[k] = fv
			continue
		}

		ref, identified := looseIdentify(sub, w.idAttrs)
		if !identified {
			hasPlain = true
			fv, err := w.leafMap(sub, namespacedKey+"."+k)
			if err != nil {
				return nil, err
			}
			plain[k] = fv
			continue
		}

		hasEntity = true
		record := make(Record, len(sub))
		for fk, fv := range sub {
			record[fk] = Scalar{Value: fv}
		}
		if prev, ok := w.entities[ref]; ok {
			record = mergeRecord(prev, record)
		}
		w.entities[ref] = record
		refs[k] = ref
	}

	if hasEntity && hasPlain {
		return nil, ErrMixedEntityMap
	}
	if hasEntity {
		return RefMap{Refs: refs}, nil
	}
	return SubMap{Fields: plain}, nil
}

// leafList classifies an unselected JSON list the same way leafMap
// classifies an unselected JSON object.
func (w *writer) leafList(list []interface{}, namespacedKey string) (FieldValue, error) {
	hasMap, hasOther := false, false
	for _, e := range list {
		if _, ok := e.(map[string]interface{}); ok {
			hasMap = true
		} else {
			hasOther = true
		}
	}

	if !hasMap {
		return ScalarList{Values: list}, nil
	}
	if hasOther {
		return nil, ErrMixedEntityMap
	}

	refs := make([]Ref, len(list))
	for i, e := range list {
		m := e.(map[string]interface{})
		ref, ok := looseIdentify(m, w.idAttrs)
		if !ok {
			return nil, ErrMixedEntityMap
		}
		record := make(Record, len(m))
		for fk, fv := range m {
			record[fk] = Scalar{Value: fv}
		}
		if prev, ok := w.entities[ref]; ok {
			record = mergeRecord(prev, record)
		}
		w.entities[ref] = record
		refs[i] = ref
	}
	return RefList{Refs: refs}, nil
}

// looseIdentify checks a raw (not selection-rewritten) JSON object's own
// field names — optionally typename-namespaced — against idAttrs.
func looseIdentify(m map[string]interface{}, idAttrs map[string]bool) (Ref, bool) {
	typename, _ := m["__typename"].(string)
	for k, v := range m {
		candidate := k
		if typename != "" {
			candidate = typename + "/" + k
		}
		if idAttrs[candidate] {
			return Ref{Field: candidate, Value: scalarIdentity(v)}, true
		}
	}
	return Ref{}, false
}
