package cache

import "fmt"

// DefaultCacheKeyField is the reserved record field that carries the
// identity value of a record with no identifying field (the root value, or
// a synthetic path-derived marker string for non-entity sub-records) — a
// meta field no ordinary selection can
// shadow, the same way __typename is reserved.
const DefaultCacheKeyField = "__cache_key"

// RootValue is the reserved identity value of the synthetic root record
// every query result is written under.
const RootValue = "ROOT_QUERY"

// Ref is an opaque reference to a stored entity: a (identifying-field,
// identifying-value) pair. Two Refs are equal, and therefore denote the
// same entity, iff both fields match; Ref is comparable so it can be used
// directly as a Snapshot map key.
type Ref struct {
	Field string
	Value string
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%s", r.Field, r.Value)
}

// rootRef is the reference of the synthetic record a query's top-level
// response map normalizes into.
func rootRef(cacheKeyField string) Ref {
	return Ref{Field: cacheKeyField, Value: RootValue}
}

// scalarIdentity renders an identifying field's raw JSON-decoded value
// (string, float64, bool, ...) as the string half of a Ref. A Ref is
// always a (identifying-field-name, identifying-field-value) pair, and an
// identifying field is a scalar by construction; a non-scalar value under
// an id-attr is a caller/config error, not a normal case this cache needs
// to recover from gracefully, so it renders via fmt like any other scalar
// rather than failing.
func scalarIdentity(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
