// Package store holds the evolving key-value structure a pipeline run reads its placeholders
// from: initial inputs plus every step's output, keyed by step name.
package store

import (
	"sort"
	"strconv"
)

// ReasonKey is the explanatory field stripped from structured step output before storage.
const ReasonKey = "reason"

// Store maps top-level names to values.
type Store map[string]Value

// New returns an empty store.
func New() (s Store) {
	s = Store{}
	return s
}

// FromStrings builds a store of text values.
func FromStrings(entries map[string]string) (s Store) {
	s = make(Store, len(entries))
	for k, text := range entries {
		s[k] = Text(text)
	}
	return s
}

// Get returns the value stored under name.
func (s Store) Get(name string) (v Value, ok bool) {
	v, ok = s[name]
	return v, ok
}

// Set stores v under name, overwriting any prior value.
func (s Store) Set(name string, v Value) {
	s[name] = v
}

// Clone returns a deep copy.
func (s Store) Clone() (c Store) {
	c = make(Store, len(s))
	for k, v := range s {
		c[k] = v.Clone()
	}
	return c
}

// Merge copies every entry of other into s, overwriting existing keys.
func (s Store) Merge(other Store) {
	for k, v := range other {
		s[k] = v.Clone()
	}
}

// Names returns the sorted top-level names.
func (s Store) Names() (names []string) {
	names = make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func formatFloat(f float64) (s string) {
	s = strconv.FormatFloat(f, 'f', -1, 64)
	return s
}
