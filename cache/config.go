package cache

// Config configures a Store at construction.
type Config struct {
	// IDAttrs is the set of field names (already in their namespaced
	// "<Typename>/<field>" form, e.g. "Person/id") treated as identifying
	// fields for normalization.
	IDAttrs []string

	// CacheKeyField is the reserved record field carrying the identity value
	// (the root value, or a synthetic path-derived marker) of records with
	// no identifying field. Defaults to DefaultCacheKeyField.
	CacheKeyField string

	// Entities seeds the store with an initial entity map. Defaults to
	// empty.
	Entities map[Ref]Record
}

// idAttrSet is the set form of Config.IDAttrs, built once per write (in
// writeResponse) for O(1) membership checks.
func (c Config) idAttrSet() map[string]bool {
	out := make(map[string]bool, len(c.IDAttrs))
	for _, a := range c.IDAttrs {
		out[a] = true
	}
	return out
}

func (c Config) cacheKeyField() string {
	if c.CacheKeyField != "" {
		return c.CacheKeyField
	}
	return DefaultCacheKeyField
}
