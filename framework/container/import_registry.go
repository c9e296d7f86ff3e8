package container

import (
	"sync"
	"time"
)

// ── ImportRegistry ────────────────────────────────────────────────────────────

// ImportMetadata describes one registration of an imported unit: who imported
// it, when, and any declarative attributes the importer carried.
type ImportMetadata struct {
	Importer     string
	RegisteredAt time.Time
	Attributes   map[string]any
}

// ImportRegistry maps an imported unit's identifier to the metadata of its
// most recent registration. The same unit may be imported many times (two
// providers pulling in the same module, a re-registered provider); only the
// last registration is kept — earlier records are discarded on overwrite,
// no history is retained.
//
// Absence is an observable state, not an error: Latest returns (zero, false)
// for unknown keys and Remove on an unknown key is a no-op.
type ImportRegistry struct {
	mu      sync.RWMutex
	imports map[string]ImportMetadata
}

// NewImportRegistry constructs an empty registry.
func NewImportRegistry() *ImportRegistry {
	return &ImportRegistry{imports: make(map[string]ImportMetadata)}
}

// Record stores md as the latest registration for key, silently replacing
// any previous record. Concurrent Record calls on the same key leave the
// registry holding whichever write lands last.
func (r *ImportRegistry) Record(key string, md ImportMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imports[key] = md
}

// Latest returns the metadata of the most recent registration for key.
func (r *ImportRegistry) Latest(key string) (ImportMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	md, ok := r.imports[key]
	return md, ok
}

// Remove deletes the record for key; removing an absent key is a no-op.
func (r *ImportRegistry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.imports, key)
}

// Len reports the number of recorded units (for diagnostics).
func (r *ImportRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.imports)
}
