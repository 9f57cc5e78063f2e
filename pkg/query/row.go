package query

// Row is a JSON object whose key order is preserved. Go maps randomize
// iteration order, which would make generated column lists and parameter
// numbering differ between identical requests.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow returns an empty Row.
func NewRow() Row {
	return Row{values: make(map[string]any)}
}

// Set stores value under key. A new key is appended after all existing keys;
// setting an existing key keeps its position.
func (r *Row) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r Row) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present.
func (r Row) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Delete removes key, preserving the order of the remaining keys.
func (r *Row) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (r Row) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Len returns the number of keys.
func (r Row) Len() int {
	return len(r.keys)
}

// Map returns the row as a plain map, losing key order.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.keys))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// SameKeys reports whether r and other hold exactly the same key set,
// regardless of order.
func (r Row) SameKeys(other Row) bool {
	if len(r.keys) != len(other.keys) {
		return false
	}
	for _, k := range r.keys {
		if !other.Has(k) {
			return false
		}
	}
	return true
}
