package cache

// mergeRecord merges next into prev field-by-field: every field next sets
// replaces prev's value for that field outright; a field prev has that
// next doesn't is kept unchanged. This is key-wise last-writer-wins at the
// field level, never a whole-record replacement. Neither argument is
// mutated.
func mergeRecord(prev, next Record) Record {
	out := prev.clone()
	for k, v := range next {
		out[k] = v
	}
	return out
}
