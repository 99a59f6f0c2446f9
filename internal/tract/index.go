package tract

import (
	"go.uber.org/zap"
)

// ResolveFunc maps a stop to a tract key.
type ResolveFunc func(stopID int64, lat, lon float64) (string, bool)

// Index holds tracts in load order plus the optional stop→tract cache.
// It is read-only after NewIndex.
type Index struct {
	tracts []*Tract
	byKey  map[string]*Tract
	cache  map[int64]string
}

// NewIndex builds an index over tracts. A nil cache means no cache was loaded.
// A later tract with a duplicate key replaces the earlier one in its scan
// position.
func NewIndex(tracts []*Tract, cache map[int64]string) *Index {
	idx := &Index{
		byKey: make(map[string]*Tract, len(tracts)),
		cache: cache,
	}
	pos := make(map[string]int, len(tracts))
	for _, t := range tracts {
		if i, dup := pos[t.Key]; dup {
			zap.L().Warn("tract: duplicate key replaces earlier tract", zap.String("key", t.Key))
			idx.tracts[i] = t
			idx.byKey[t.Key] = t
			continue
		}
		pos[t.Key] = len(idx.tracts)
		idx.byKey[t.Key] = t
		idx.tracts = append(idx.tracts, t)
	}
	return idx
}

// ForPoint scans tracts in load order and returns the key of the first tract
// strictly containing (lat, lon).
func (idx *Index) ForPoint(lat, lon float64) (string, bool) {
	for _, t := range idx.tracts {
		if t.Contains(lat, lon) {
			return t.Key, true
		}
	}
	return "", false
}

// ForStop looks up the stop→tract cache. It never falls back to a polygon scan.
func (idx *Index) ForStop(stopID int64) (string, bool) {
	if idx.cache == nil {
		return "", false
	}
	key, ok := idx.cache[stopID]
	return key, ok
}

// Resolver returns a ResolveFunc that consults the cache and, when fallback
// is set, scans polygons for stops the cache does not know.
func (idx *Index) Resolver(fallback bool) ResolveFunc {
	return func(stopID int64, lat, lon float64) (string, bool) {
		if key, ok := idx.ForStop(stopID); ok {
			return key, true
		}
		if fallback {
			return idx.ForPoint(lat, lon)
		}
		return "", false
	}
}

// Get returns the tract with the given key.
func (idx *Index) Get(key string) (*Tract, bool) {
	t, ok := idx.byKey[key]
	return t, ok
}

// Keys returns tract keys in load order.
func (idx *Index) Keys() []string {
	keys := make([]string, len(idx.tracts))
	for i, t := range idx.tracts {
		keys[i] = t.Key
	}
	return keys
}

// Len is the number of tracts.
func (idx *Index) Len() int { return len(idx.tracts) }

// HasCache reports whether a stop→tract cache was loaded.
func (idx *Index) HasCache() bool { return idx.cache != nil }

// CacheSize is the number of cached stops.
func (idx *Index) CacheSize() int { return len(idx.cache) }
