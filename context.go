package fsmkit

// Context is the mutable data payload of a machine instance, distinct from
// its finite state. Values must be plain serializable data; the machine
// itself never mutates a Context in place, it builds new values via Merge.
type Context map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty, usable map.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Merge shallow-merges patch into a copy of c and returns the copy. Neither
// c nor patch is modified, so readers holding the old value (in-flight guard
// evaluations, observers) are never affected by later merges.
func (c Context) Merge(patch Context) Context {
	out := c.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Get returns the raw value for key and whether it is present.
func (c Context) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

// GetString returns the value for key if it is a string, "" otherwise.
func (c Context) GetString(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

// GetInt returns the value for key as an int. Stored int, int64, and float64
// values convert; anything else yields 0.
func (c Context) GetInt(key string) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// GetBool returns the value for key if it is a bool, false otherwise.
func (c Context) GetBool(key string) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return false
}
