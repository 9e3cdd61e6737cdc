// Package solution keeps the ordered list of candidate expressions: the
// solutions reported by the synthesizer followed by those the user typed in.
package solution

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/intent/dashboard/internal/models"
)

var (
	ErrNotFound        = errors.New("solution not found")
	ErrEmptyExpression = errors.New("expression is empty")
	// ErrNotEditable is returned when editing a synthesized solution.
	ErrNotEditable = errors.New("synthesized solutions cannot be edited")
)

// Source tells where a solution came from.
type Source string

const (
	SourceSynthesized Source = "synthesized"
	SourceUser        Source = "user"
)

// Solution is one candidate expression. ID is positional, solution{j}, and
// changes when earlier solutions are removed.
type Solution struct {
	ID            string   `json:"id"`
	Expression    string   `json:"expression"`
	Source        Source   `json:"source"`
	Weight        int      `json:"weight,omitempty"`
	SynthesisTime *float64 `json:"synthesis_time,omitempty"`
}

// Set is the concurrency-safe ordered candidate list.
type Set struct {
	mu          sync.RWMutex
	synthesized []models.SynthesizedSolution
	user        []string
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{}
}

// ReplaceSynthesized swaps the synthesized block wholesale. User-authored
// expressions are kept after it.
func (s *Set) ReplaceSynthesized(solutions []models.SynthesizedSolution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synthesized = append([]models.SynthesizedSolution(nil), solutions...)
}

// ClearSynthesized drops the synthesized block only.
func (s *Set) ClearSynthesized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synthesized = nil
}

// SynthesizedCount returns the size of the synthesized block.
func (s *Set) SynthesizedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.synthesized)
}

// Add appends a user expression and returns its position in the full list.
func (s *Set) Add(expression string) (int, error) {
	if strings.TrimSpace(expression) == "" {
		return 0, ErrEmptyExpression
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = append(s.user, expression)
	return len(s.synthesized) + len(s.user) - 1, nil
}

// Edit replaces the user expression at position index of the full list.
func (s *Set) Edit(index int, expression string) error {
	if strings.TrimSpace(expression) == "" {
		return ErrEmptyExpression
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.synthesized)+len(s.user) {
		return fmt.Errorf("%w: %d", ErrNotFound, index)
	}
	if index < len(s.synthesized) {
		return fmt.Errorf("%w: %d", ErrNotEditable, index)
	}
	s.user[index-len(s.synthesized)] = expression
	return nil
}

// Remove deletes the solution at position index. Later solutions shift down.
func (s *Set) Remove(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.synthesized)
	switch {
	case index < 0 || index >= n+len(s.user):
		return fmt.Errorf("%w: %d", ErrNotFound, index)
	case index < n:
		s.synthesized = append(s.synthesized[:index:index], s.synthesized[index+1:]...)
	default:
		i := index - n
		s.user = append(s.user[:i:i], s.user[i+1:]...)
	}
	return nil
}

// Clear drops every solution.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synthesized = nil
	s.user = nil
}

// Len returns the total number of solutions.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.synthesized) + len(s.user)
}

// All returns the solutions in order with their positional ids.
func (s *Set) All() []Solution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Solution, 0, len(s.synthesized)+len(s.user))
	for i, syn := range s.synthesized {
		t := syn.Time
		out = append(out, Solution{
			ID:            models.SolutionKey(i),
			Expression:    syn.Expression,
			Source:        SourceSynthesized,
			Weight:        syn.Weight,
			SynthesisTime: &t,
		})
	}
	for i, expr := range s.user {
		out = append(out, Solution{
			ID:         models.SolutionKey(len(s.synthesized) + i),
			Expression: expr,
			Source:     SourceUser,
		})
	}
	return out
}

// Expressions returns the solution{j} -> expression map sent to /validate.
func (s *Set) Expressions() map[string]string {
	all := s.All()
	out := make(map[string]string, len(all))
	for _, sol := range all {
		out[sol.ID] = sol.Expression
	}
	return out
}
