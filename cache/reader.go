package cache

import "strings"

// reader denormalizes a selection-shaped pattern against a snapshot,
// rooted at a reference. The pattern it walks is Walk's annotated
// selection tree (starting from the root path's entry) — the same
// field-keys the Writer used to normalize the response in the first
// place, so a read can never drift out of sync with how a write derived
// its keys.
type reader struct {
	snapshot      *Snapshot
	cacheKeyField string
}

// pull reconstructs the tree pattern describes, rooted at ref, or returns
// nil if ref is absent from the store.
func (r *reader) pull(pattern []*AnnotatedSelection, ref Ref) (map[string]interface{}, error) {
	record, ok := r.snapshot.get(ref)
	if !ok {
		return nil, nil
	}

	out := make(map[string]interface{})
	for _, ann := range pattern {
		fv, present := lookupField(record, ann.FieldKey, r.cacheKeyField)
		if !present {
			continue
		}

		outKey := ann.Selection.ResponseKey()

		if ann.Selection.SelectionSet == nil {
			val, err := r.materialize(fv)
			if err != nil {
				return nil, err
			}
			out[outKey] = val
			continue
		}

		switch v := fv.(type) {
		case RefValue:
			child, err := r.pull(ann.Children, v.Ref)
			if err != nil {
				return nil, err
			}
			out[outKey] = child
		case RefList:
			list := make([]interface{}, len(v.Refs))
			for i, ref := range v.Refs {
				child, err := r.pull(ann.Children, ref)
				if err != nil {
					return nil, err
				}
				list[i] = child
			}
			out[outKey] = list
		default:
			return nil, ErrPullNotRef
		}
	}

	return out, nil
}

// lookupField finds fieldKey in record, falling back to a typename-
// namespaced match ("<Typename>/fieldKey") so the reader doesn't need to
// know which typename a given record was stored under.
func lookupField(record Record, fieldKey, cacheKeyField string) (FieldValue, bool) {
	if v, ok := record[fieldKey]; ok {
		return v, true
	}
	if fieldKey == cacheKeyField {
		return nil, false
	}
	suffix := "/" + fieldKey
	for k, v := range record {
		if strings.HasSuffix(k, suffix) {
			return v, true
		}
	}
	return nil, false
}

// materialize fully denormalizes a leaf field's value: for a Scalar or
// ScalarList it's a direct copy, but a leaf field can itself hold
// RefValue/RefList/RefMap/SubMap when the writer decoded an unselected
// JSON object or list structurally (writer.go's leafMap/leafList) — a
// leaf selection has no sub-pattern to bound that recursion with, so
// materialize always follows every reference it holds to completion.
func (r *reader) materialize(fv FieldValue) (interface{}, error) {
	switch v := fv.(type) {
	case Scalar:
		return v.Value, nil
	case ScalarList:
		return v.Values, nil
	case SubMap:
		out := make(map[string]interface{}, len(v.Fields))
		for k, f := range v.Fields {
			val, err := r.materialize(f)
			if err != nil {
				return nil, err
			}
			out[k] = val
		}
		return out, nil
	case RefMap:
		out := make(map[string]interface{}, len(v.Refs))
		for k, ref := range v.Refs {
			val, err := r.materializeEntity(ref)
			if err != nil {
				return nil, err
			}
			out[k] = val
		}
		return out, nil
	case RefValue:
		return r.materializeEntity(v.Ref)
	case RefList:
		out := make([]interface{}, len(v.Refs))
		for i, ref := range v.Refs {
			val, err := r.materializeEntity(ref)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	default:
		return nil, ErrInvalidPullForm
	}
}

// materializeEntity denormalizes every field of the record at ref,
// without following a pull pattern (used only by materialize, for data
// the writer stored structurally rather than via a selection).
func (r *reader) materializeEntity(ref Ref) (interface{}, error) {
	record, ok := r.snapshot.get(ref)
	if !ok {
		return nil, nil
	}
	out := make(map[string]interface{}, len(record))
	for k, fv := range record {
		if k == r.cacheKeyField {
			continue
		}
		val, err := r.materialize(fv)
		if err != nil {
			return nil, err
		}
		out[k] = val
	}
	return out, nil
}
