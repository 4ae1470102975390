// Package property provides the read-only configuration sources consulted by
// bean conditions.
//
// A property is addressed by a dotted path such as "server.executors.scheduled".
// Paths are normalized before lookup: they are lower-cased and the separators
// '_' and '-' are treated as '.', so the environment variable
// SERVER_EXECUTORS_SCHEDULED and the YAML key server.executors.scheduled name
// the same property.
package property

import (
	"maps"
	"strings"
	"sync/atomic"
)

// Source resolves property paths to values.
type Source interface {
	// Property returns the value at path and whether it is present.
	Property(path string) (any, bool)
}

// Normalize returns the canonical form of a property path.
func Normalize(path string) string {
	path = strings.TrimSpace(strings.ToLower(path))
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return '.'
		}
		return r
	}, path)
}

// Map is an in-memory Source. Keys are normalized on lookup, so a Map built
// by hand should use normalized keys or be created with NewMap.
type Map map[string]any

// NewMap copies values into a Map with normalized keys.
func NewMap(values map[string]any) Map {
	m := make(Map, len(values))
	for k, v := range values {
		m[Normalize(k)] = v
	}
	return m
}

func (m Map) Property(path string) (any, bool) {
	v, ok := m[Normalize(path)]
	return v, ok
}

type composite []Source

// Composite returns a Source that consults sources in order; the first source
// holding a path wins.
func Composite(sources ...Source) Source {
	out := make(composite, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (c composite) Property(path string) (any, bool) {
	for _, s := range c {
		if v, ok := s.Property(path); ok {
			return v, true
		}
	}
	return nil, false
}

// Mutable is a Source whose contents can be replaced while readers are
// active. Each lookup observes one complete snapshot.
type Mutable struct {
	snapshot atomic.Pointer[Map]
}

// NewMutable returns a Mutable seeded with values.
func NewMutable(values map[string]any) *Mutable {
	m := &Mutable{}
	m.Replace(values)
	return m
}

func (m *Mutable) Property(path string) (any, bool) {
	snap := m.snapshot.Load()
	if snap == nil {
		return nil, false
	}
	return snap.Property(path)
}

// Replace swaps the whole snapshot.
func (m *Mutable) Replace(values map[string]any) {
	next := NewMap(values)
	m.snapshot.Store(&next)
}

// Set stores a single value.
func (m *Mutable) Set(path string, value any) {
	m.update(func(next Map) { next[Normalize(path)] = value })
}

// Delete removes a single value.
func (m *Mutable) Delete(path string) {
	m.update(func(next Map) { delete(next, Normalize(path)) })
}

func (m *Mutable) update(fn func(Map)) {
	for {
		cur := m.snapshot.Load()
		next := Map{}
		if cur != nil {
			next = maps.Clone(*cur)
		}
		fn(next)
		if m.snapshot.CompareAndSwap(cur, &next) {
			return
		}
	}
}
