package cache

import (
	"context"
	"sync/atomic"

	"github.com/samsarahq/graphcache/graphql"
	"github.com/samsarahq/graphcache/internal/ctxmutex"
)

// Store is the normalized entity cache plus the write/read pipeline
// around it. The store is immutable from the outside: every successful
// Write installs a brand new Snapshot, never mutating one already handed
// to a reader.
type Store struct {
	cfg     Config
	mu      ctxmutex.Mutex
	current atomic.Pointer[Snapshot]
}

// NewStore builds a Store from cfg, seeded with cfg.Entities (or empty).
func NewStore(cfg Config) *Store {
	entities := cfg.Entities
	if entities == nil {
		entities = map[Ref]Record{}
	}
	s := &Store{cfg: cfg}
	s.current.Store(&Snapshot{Entities: entities})
	return s
}

// Snapshot returns the store's current snapshot. Callers that only need a
// consistent point-in-time view for multiple reads should take one
// Snapshot and pass it to Read-like helpers rather than calling Snapshot
// repeatedly, since a concurrent Write can install a new one at any time.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// operationRoot returns the Ref a document's response normalizes under:
// the shared query root for queries, a distinct marker for mutations (see
// writer.go) so a mutation's top-level field names never collide with, or
// are readable through, the query root.
func (s *Store) operationRoot(op *graphql.Operation) Ref {
	if op.Type == graphql.Mutation {
		return Ref{Field: s.cfg.cacheKeyField(), Value: mutationRootValue}
	}
	return rootRef(s.cfg.cacheKeyField())
}

// Read denormalizes doc's selection against the current snapshot.
// returnPartial is accepted for API compatibility but has no observable
// effect: Pull already tolerates missing fields unconditionally (see
// DESIGN.md's Open Question decisions).
func (s *Store) Read(ctx context.Context, doc *graphql.Document, vars map[string]interface{}, returnPartial bool) (map[string]interface{}, error) {
	_ = returnPartial

	opCtx := &graphql.OperationContext{
		Operation: doc.Operation,
		Fragments: doc.Fragments,
		Variables: vars,
	}

	anns, err := Walk(doc.Operation.SelectionSet, opCtx)
	if err != nil {
		return nil, err
	}

	r := &reader{snapshot: s.Snapshot(), cacheKeyField: s.cfg.cacheKeyField()}
	data, err := r.pull(anns[""], s.operationRoot(doc.Operation))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	// Defensively copy before handing the tree to a caller so mutating it
	// in place can't alias through to the store's own denormalized view,
	// which would otherwise let one caller's in-place edits corrupt
	// another's.
	return deepCopyJSON(data).(map[string]interface{}), nil
}

// Write normalizes data into entity records and merges them into the
// store, atomically installing the resulting snapshot. The snapshot-swap
// critical section is guarded by a context-aware mutex rather than a bare
// sync.Mutex so a write abandoned via ctx cancellation doesn't block a
// later writer forever.
func (s *Store) Write(ctx context.Context, data map[string]interface{}, doc *graphql.Document, vars map[string]interface{}) error {
	if err := s.mu.Lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	_, entities, err := writeResponse(doc, data, vars, s.cfg)
	if err != nil {
		return err
	}

	prev := s.Snapshot()
	s.current.Store(prev.withEntities(entities))
	return nil
}

// deepCopyJSON recursively copies a tree of the shapes Pull ever
// produces: map[string]interface{}, []interface{}, and JSON scalars.
func deepCopyJSON(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(vv))
		for k, val := range vv {
			out[k] = deepCopyJSON(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, val := range vv {
			out[i] = deepCopyJSON(val)
		}
		return out
	default:
		return vv
	}
}
