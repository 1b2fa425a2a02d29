package cache

import (
	"github.com/samsarahq/go/oops"
	"github.com/samsarahq/graphcache/graphql/key"
)

// Sentinel errors for the write/read paths. Constructed with oops so they
// carry a stack trace through errors.Is comparison.
var (
	// ErrMixedEntityMap: a sub-map has both entity and non-entity values.
	ErrMixedEntityMap = oops.Errorf("mixed-entity-map: map has both entity and non-entity values")

	// ErrPullNotRef: a pull pattern recurses into a field whose stored
	// value is neither a reference nor a collection of references.
	ErrPullNotRef = oops.Errorf("pull-not-ref: field value is not a reference")

	// ErrInvalidPullForm: a pull pattern contained an unrecognized
	// expression.
	ErrInvalidPullForm = oops.Errorf("invalid-pull-form: unrecognized pull pattern element")

	// ErrEncode: the key encoder was given a malformed selection. Re-exports
	// key.ErrMalformedSelection, the error Walk actually returns, so a
	// caller can write errors.Is(err, cache.ErrEncode) without importing
	// graphql/key directly.
	ErrEncode = key.ErrMalformedSelection
)
