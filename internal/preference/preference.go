// Package preference holds the user's bias toward or against named operations.
package preference

import (
	"sort"
	"sync"
)

// Preference is the user's stance on one operation.
type Preference struct {
	Label   string `json:"label"`
	Desired bool   `json:"desired"`
}

// Tint is the highlight applied to an operation node in the dataflow view.
type Tint string

const (
	TintNeutral   Tint = "neutral"
	TintDesired   Tint = "desired"
	TintUndesired Tint = "undesired"
)

// Set is a concurrency-safe map of operation name to preference.
type Set struct {
	mu    sync.RWMutex
	prefs map[string]Preference
}

// NewSet returns an empty preference set.
func NewSet() *Set {
	return &Set{prefs: make(map[string]Preference)}
}

// Put records op as desired or undesired, replacing any earlier stance.
func (s *Set) Put(op string, desired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[op] = Preference{Label: op, Desired: desired}
}

// Remove forgets op. It reports whether op was present.
func (s *Set) Remove(op string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.prefs[op]
	delete(s.prefs, op)
	return ok
}

// All returns a copy of the preferences.
func (s *Set) All() map[string]Preference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Preference, len(s.prefs))
	for k, v := range s.prefs {
		out[k] = v
	}
	return out
}

// Split returns the sorted desired and undesired operation names.
func (s *Set) Split() (desired, undesired []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for op, p := range s.prefs {
		if p.Desired {
			desired = append(desired, op)
		} else {
			undesired = append(undesired, op)
		}
	}
	sort.Strings(desired)
	sort.Strings(undesired)
	return desired, undesired
}

// RequestMaps projects the set onto the desired_op / undesired_op objects of
// a synthesis request, whose values are always empty strings.
func (s *Set) RequestMaps() (desired, undesired map[string]string) {
	d, u := s.Split()
	desired = make(map[string]string, len(d))
	undesired = make(map[string]string, len(u))
	for _, op := range d {
		desired[op] = ""
	}
	for _, op := range u {
		undesired[op] = ""
	}
	return desired, undesired
}

// Tint returns the highlight for an operation node.
func (s *Set) Tint(op string) Tint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[op]
	switch {
	case !ok:
		return TintNeutral
	case p.Desired:
		return TintDesired
	}
	return TintUndesired
}
