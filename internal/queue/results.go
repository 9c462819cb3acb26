package queue

import (
	"sort"
	"strings"
	"sync"
)

// ResultStore holds the values stages publish for later stages and for
// presentation. Keys are "<stage>.<name>"; values are float64 or string.
// Entries are never removed; a later write to the same key wins.
type ResultStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewResultStore returns an empty store.
func NewResultStore() *ResultStore {
	return &ResultStore{values: make(map[string]any)}
}

// ResultKey joins a stage name and a result name.
func ResultKey(stage, name string) string {
	return strings.TrimSpace(stage) + "." + strings.TrimSpace(name)
}

// SetNumber stores a numeric result.
func (r *ResultStore) SetNumber(key string, value float64) {
	r.set(key, value)
}

// SetString stores a textual result.
func (r *ResultStore) SetString(key, value string) {
	r.set(key, value)
}

func (r *ResultStore) set(key string, value any) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
}

// Get returns the raw value stored under key.
func (r *ResultStore) Get(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	return v, ok
}

// Number returns the numeric value under key. String values do not convert.
func (r *ResultStore) Number(key string) (float64, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// String returns the textual value under key. Numeric values do not convert.
func (r *ResultStore) String(key string) (string, bool) {
	v, ok := r.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Keys returns every key in lexical order.
func (r *ResultStore) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot copies every entry.
func (r *ResultStore) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
