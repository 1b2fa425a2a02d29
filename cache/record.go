package cache

// Record is an entity's stored fields, keyed by field-key (graphql/key's
// output). A Record with no identifying field (the root record, or a
// non-entity sub-record) carries a cache-key-field entry holding its
// marker string; a Record identified by a configured id-attr carries none.
type Record map[string]FieldValue

// clone returns a shallow copy of r: each FieldValue is reused as-is
// (they're themselves immutable once constructed), only the top-level map
// is duplicated. Used by mergeRecord so merging never mutates a Record
// already installed in a prior Snapshot.
func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Snapshot is an immutable point-in-time view of every stored entity.
// Snapshots are never mutated after construction; a write produces a new
// Snapshot from the previous one plus the newly normalized entities.
type Snapshot struct {
	Entities map[Ref]Record
}

// get returns the record stored at ref, and whether one is present.
func (s *Snapshot) get(ref Ref) (Record, bool) {
	if s == nil {
		return nil, false
	}
	rec, ok := s.Entities[ref]
	return rec, ok
}

// withEntities returns a new Snapshot with each entry of updated merged in
// over s's current entities (mergeRecord field-wise), leaving s untouched.
func (s *Snapshot) withEntities(updated map[Ref]Record) *Snapshot {
	next := make(map[Ref]Record, len(s.Entities)+len(updated))
	for ref, rec := range s.Entities {
		next[ref] = rec
	}
	for ref, rec := range updated {
		if prev, ok := next[ref]; ok {
			next[ref] = mergeRecord(prev, rec)
		} else {
			next[ref] = rec
		}
	}
	return &Snapshot{Entities: next}
}
