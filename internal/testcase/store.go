// Package testcase keeps the ordered input/output example pairs the user
// builds for a synthesis problem.
package testcase

import (
	"errors"
	"fmt"
	"sync"

	"github.com/intent/dashboard/internal/models"
	"github.com/intent/dashboard/internal/tensor"
	"go.uber.org/zap"
)

var (
	// ErrPairNotFound is returned for an out-of-range pair index.
	ErrPairNotFound = errors.New("test case not found")
	// ErrTensorNotFound is returned for an out-of-range input tensor index.
	ErrTensorNotFound = errors.New("input tensor not found")
	// ErrLastPair is returned when removing the only remaining pair.
	ErrLastPair = errors.New("cannot remove the last test case")
	// ErrInvalidTestCases gates synthesis and validation while any tensor is invalid.
	ErrInvalidTestCases = errors.New("test cases contain invalid tensors")
)

// Default literals of a fresh store: a transpose example.
const (
	DefaultInput  = "[[1,2],[3,4]]"
	DefaultOutput = "[[1,3],[2,4]]"
)

// Pair is one example: ordered input tensors and the expected output.
type Pair struct {
	Inputs []tensor.Tensor `json:"inputs"`
	Output tensor.Tensor   `json:"output"`
}

// Valid reports whether every tensor of the pair parsed.
func (p Pair) Valid() bool {
	for _, in := range p.Inputs {
		if !in.Valid() {
			return false
		}
	}
	return p.Output.Valid()
}

func (p Pair) clone() Pair {
	c := Pair{Inputs: make([]tensor.Tensor, len(p.Inputs)), Output: p.Output.Clone()}
	for i, in := range p.Inputs {
		c.Inputs[i] = in.Clone()
	}
	return c
}

// Store is the ordered, concurrency-safe collection of pairs. It never holds
// fewer than one pair, and no pair holds fewer than one input.
type Store struct {
	mu     sync.RWMutex
	pairs  []Pair
	logger *zap.Logger
}

// NewStore returns a store seeded with the default example pair.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		pairs: []Pair{{
			Inputs: []tensor.Tensor{tensor.New(0, DefaultInput)},
			Output: tensor.New(0, DefaultOutput),
		}},
		logger: logger,
	}
}

// Len returns the number of pairs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pairs)
}

// Pairs returns a deep copy of all pairs.
func (s *Store) Pairs() []Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Pair, len(s.pairs))
	for i, p := range s.pairs {
		out[i] = p.clone()
	}
	return out
}

// Pair returns a deep copy of pair i.
func (s *Store) Pair(i int) (Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.pairs) {
		return Pair{}, fmt.Errorf("%w: %d", ErrPairNotFound, i)
	}
	return s.pairs[i].clone(), nil
}

// AddPair appends a copy of the selected pair and returns the new pair's index.
func (s *Store) AddPair(selected int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if selected < 0 || selected >= len(s.pairs) {
		return 0, fmt.Errorf("%w: %d", ErrPairNotFound, selected)
	}
	src := s.pairs[selected]
	dup := Pair{Inputs: make([]tensor.Tensor, len(src.Inputs)), Output: src.Output.WithIndex(0)}
	for i, in := range src.Inputs {
		dup.Inputs[i] = in.WithIndex(i)
	}
	s.pairs = append(s.pairs, dup)
	return len(s.pairs) - 1, nil
}

// RemovePair deletes pair i. Clamping any selection index is left to the caller.
func (s *Store) RemovePair(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.pairs) {
		return fmt.Errorf("%w: %d", ErrPairNotFound, i)
	}
	if len(s.pairs) == 1 {
		return ErrLastPair
	}
	s.pairs = append(s.pairs[:i], s.pairs[i+1:]...)
	return nil
}

// AddInputTensor appends a blank input tensor to a pair. An out-of-range
// pair is logged and ignored; the return value reports whether a tensor was added.
func (s *Store) AddInputTensor(pair int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pair < 0 || pair >= len(s.pairs) {
		s.logger.Error("attempted to add an input tensor to a missing test case",
			zap.Int("pair", pair),
			zap.Int("pairs", len(s.pairs)),
		)
		return false
	}
	p := &s.pairs[pair]
	p.Inputs = append(p.Inputs, tensor.Blank(len(p.Inputs)))
	return true
}

// RemoveInputTensor deletes an input tensor of a pair and re-indexes the
// remaining ones. Removing the only input is a no-op; the return value
// reports whether a tensor was removed.
func (s *Store) RemoveInputTensor(pair, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pair < 0 || pair >= len(s.pairs) {
		return false
	}
	p := &s.pairs[pair]
	if len(p.Inputs) <= 1 || index < 0 || index >= len(p.Inputs) {
		return false
	}
	p.Inputs = append(p.Inputs[:index], p.Inputs[index+1:]...)
	for i := range p.Inputs {
		p.Inputs[i].Index = i
	}
	return true
}

// SetInputText replaces an input literal. Invalid text is kept as typed.
func (s *Store) SetInputText(pair, index int, text string) (tensor.Tensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.pairAt(pair)
	if err != nil {
		return tensor.Tensor{}, err
	}
	if index < 0 || index >= len(p.Inputs) {
		return tensor.Tensor{}, fmt.Errorf("%w: pair %d tensor %d", ErrTensorNotFound, pair, index)
	}
	p.Inputs[index] = tensor.New(index, text)
	return p.Inputs[index].Clone(), nil
}

// SetOutputText replaces the output literal of a pair.
func (s *Store) SetOutputText(pair int, text string) (tensor.Tensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.pairAt(pair)
	if err != nil {
		return tensor.Tensor{}, err
	}
	p.Output = tensor.New(0, text)
	return p.Output.Clone(), nil
}

// UpdateInputCell edits one cell of an input tensor.
func (s *Store) UpdateInputCell(pair, index int, path []int, raw string) (tensor.Tensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.pairAt(pair)
	if err != nil {
		return tensor.Tensor{}, err
	}
	if index < 0 || index >= len(p.Inputs) {
		return tensor.Tensor{}, fmt.Errorf("%w: pair %d tensor %d", ErrTensorNotFound, pair, index)
	}
	updated, err := tensor.UpdateCellAt(p.Inputs[index], path, raw)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("pair %d input %d: %w", pair, index, err)
	}
	p.Inputs[index] = updated
	return updated.Clone(), nil
}

// UpdateOutputCell edits one cell of a pair's output tensor.
func (s *Store) UpdateOutputCell(pair int, path []int, raw string) (tensor.Tensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.pairAt(pair)
	if err != nil {
		return tensor.Tensor{}, err
	}
	updated, err := tensor.UpdateCellAt(p.Output, path, raw)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("pair %d output: %w", pair, err)
	}
	p.Output = updated
	return updated.Clone(), nil
}

// AllValid reports whether every input and output tensor parsed. It gates
// both synthesis and validation.
func (s *Store) AllValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allValid()
}

// Tables projects the store onto the literal tables sent to the backend.
func (s *Store) Tables() (inputs, outputs models.LiteralTable) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables()
}

// Literals returns the literal tables together with the validity gate, read
// under one lock so callers never send tables that failed to parse.
func (s *Store) Literals() (inputs, outputs models.LiteralTable, valid bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inputs, outputs = s.tables()
	return inputs, outputs, s.allValid()
}

func (s *Store) allValid() bool {
	for _, p := range s.pairs {
		if !p.Valid() {
			return false
		}
	}
	return true
}

func (s *Store) tables() (inputs, outputs models.LiteralTable) {
	inputs = make(models.LiteralTable, len(s.pairs))
	outputs = make(models.LiteralTable, len(s.pairs))
	for i, p := range s.pairs {
		row := make([]string, len(p.Inputs))
		for j, in := range p.Inputs {
			row[j] = in.StringValue
		}
		inputs[i] = row
		outputs[i] = []string{p.Output.StringValue}
	}
	return inputs, outputs
}

// pairAt must be called with mu held.
func (s *Store) pairAt(i int) (*Pair, error) {
	if i < 0 || i >= len(s.pairs) {
		return nil, fmt.Errorf("%w: %d", ErrPairNotFound, i)
	}
	return &s.pairs[i], nil
}
