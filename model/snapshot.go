package model

// Snapshot is one complete set of configuration values produced by a
// single load. It is never mutated after construction.
type Snapshot struct {
	version uint64
	values  map[Key]Value
}

// NewSnapshot builds a snapshot from values. Schema keys missing from
// values are filled with their defaults.
func NewSnapshot(version uint64, values map[Key]Value) Snapshot {
	m := make(map[Key]Value, len(Schema))
	for _, d := range Schema {
		if v, ok := values[d.Key]; ok {
			m[d.Key] = v
			continue
		}
		m[d.Key] = MustParse(d.Kind, d.Default)
	}
	return Snapshot{version: version, values: m}
}

// Defaults returns the snapshot made only of static defaults.
func Defaults() Snapshot {
	return NewSnapshot(0, nil)
}

// Version increases by one for every snapshot a store swaps in.
func (s Snapshot) Version() uint64 { return s.version }

// Get returns the value for key, falling back to the static default.
func (s Snapshot) Get(key Key) Value {
	if v, ok := s.values[key]; ok {
		return v
	}
	return DefaultValue(key)
}

// Lookup returns the value for key and whether the snapshot holds it.
func (s Snapshot) Lookup(key Key) (Value, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s Snapshot) String(key Key) string { return s.Get(key).String() }

func (s Snapshot) Bool(key Key) bool { return s.Get(key).Bool() }

// Raw returns every value in remote document form.
func (s Snapshot) Raw() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[string(k)] = v.Raw()
	}
	return out
}

// Equal reports whether both snapshots hold the same values, ignoring
// their versions.
func (s Snapshot) Equal(o Snapshot) bool {
	if len(s.values) != len(o.values) {
		return false
	}
	for k, v := range s.values {
		ov, ok := o.values[k]
		if !ok || ov.Raw() != v.Raw() || ov.Kind() != v.Kind() {
			return false
		}
	}
	return true
}
