package gff3

// AttributeMap is an insertion-order-preserving string->string map,
// per spec.md section 3 ("ordered mapping attribute->value (insertion
// order retained for output stability)"). grendeloz/kv's Set looked
// like a natural fit (see DESIGN.md) but only one call site is
// visible anywhere in the retrieved corpus, not enough to ground a
// safe wiring, so this is a small hand-rolled ordered map instead -
// in the same spirit as the teacher's own hand-rolled Features type.
type AttributeMap struct {
	keys   []string
	values map[string]string
}

// NewAttributeMap returns an empty AttributeMap.
func NewAttributeMap() *AttributeMap {
	return &AttributeMap{values: make(map[string]string)}
}

// Get returns the value for key and whether it was present.
func (m *AttributeMap) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set replaces the value for key in place if key already exists,
// otherwise appends key to the end, per spec.md section 4.B
// ("set_attribute replaces in place, add_attribute appends").
func (m *AttributeMap) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Add always appends a new key, even if it is a duplicate of an
// existing one. Most callers want Set; Add skips Set's presence check
// and is used where the key is known to be new (first occurrences in
// attribute parsing, Clone). Tidy-mode duplicate-tag joining uses Set.
func (m *AttributeMap) Add(key, value string) {
	m.keys = append(m.keys, key)
	m.values[key] = value
}

// Delete removes key, if present.
func (m *AttributeMap) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the attribute keys in insertion order.
func (m *AttributeMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len is the number of attributes stored.
func (m *AttributeMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Clone makes a deep copy sharing no state with the original, per the
// teacher's Feature.Clone idiom.
func (m *AttributeMap) Clone() *AttributeMap {
	n := NewAttributeMap()
	for _, k := range m.keys {
		n.Add(k, m.values[k])
	}
	return n
}

// Equal reports whether two AttributeMaps hold exactly the same
// key/value pairs, ignoring order and ignoring any keys listed in
// skip. Used by the multi-feature equivalence check in spec.md
// section 3 ("members... agree... on non-ID/Parent/Name attributes").
func (m *AttributeMap) Equal(o *AttributeMap, skip ...string) bool {
	skipSet := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipSet[s] = true
	}
	count := func(am *AttributeMap) map[string]string {
		out := make(map[string]string)
		for _, k := range am.keys {
			if skipSet[k] {
				continue
			}
			out[k] = am.values[k]
		}
		return out
	}
	a, b := count(m), count(o)
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
