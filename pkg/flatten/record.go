package flatten

import (
	"bytes"
	"encoding/json"
)

// Entry is one path/value pair of a Record.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Record is an ordered projection of a nested document onto
// lowercased dotted paths. Values are always trimmed scalar strings.
//
// Setting an existing key replaces its value but keeps its position.
type Record struct {
	keys   []string
	values map[string]string
}

// New returns an empty Record.
func New() *Record {
	return &Record{values: make(map[string]string)}
}

// FromEntries builds a Record from entries in the given order.
func FromEntries(entries ...Entry) *Record {
	r := New()
	for _, e := range entries {
		r.Set(e.Key, e.Value)
	}
	return r
}

// Set stores value under key without any filtering.
func (r *Record) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	v, ok := r.values[key]
	return v, ok
}

// Len returns the number of entries.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Keys returns the paths in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Each calls fn for every entry in insertion order until fn returns false.
func (r *Record) Each(fn func(key, value string) bool) {
	if r == nil {
		return
	}
	for _, k := range r.keys {
		if !fn(k, r.values[k]) {
			return
		}
	}
}

// Entries returns a copy of the entries in insertion order.
func (r *Record) Entries() []Entry {
	if r == nil {
		return nil
	}
	out := make([]Entry, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, Entry{Key: k, Value: r.values[k]})
	}
	return out
}

// MarshalJSON encodes the record as a JSON object in insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
