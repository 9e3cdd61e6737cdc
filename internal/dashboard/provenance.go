package dashboard

import (
	"errors"
	"fmt"

	"github.com/intent/dashboard/internal/models"
	"github.com/intent/dashboard/internal/preference"
	"github.com/intent/dashboard/internal/provenance"
	"github.com/intent/dashboard/internal/validation"
)

// TraceResult is the provenance of one clicked cell.
type TraceResult struct {
	Cell  provenance.Cell        `json:"cell"`
	Edges []provenance.TraceEdge `json:"edges"`
	// Truncated is set when the walk stopped at a bound.
	Truncated bool `json:"truncated"`
}

// Explanation describes one (test case, solution) evaluation for the
// dataflow view.
type Explanation struct {
	Example    int                        `json:"example"`
	Solution   int                        `json:"solution"`
	Match      bool                       `json:"match"`
	Message    string                     `json:"message,omitempty"`
	Operations []provenance.Operation     `json:"operations"`
	Tints      map[string]preference.Tint `json:"tints"`
}

func (s *Service) evaluation(example, sol int) (models.Evaluation, uint64, error) {
	state := s.validation.State()
	e, ok := state.Results.Lookup(example, sol)
	if !ok {
		return models.Evaluation{}, 0, fmt.Errorf("%w: test case %d, solution %d", ErrNoEvaluation, example, sol)
	}
	return e, state.Generation, nil
}

// Trace derives the provenance edges of a cell in the dataflow graph of
// solution sol on test case example.
func (s *Service) Trace(example, sol int, cellID string) (TraceResult, error) {
	cell, err := provenance.ParseCell(cellID)
	if err != nil {
		return TraceResult{}, err
	}
	e, gen, err := s.evaluation(example, sol)
	if err != nil {
		return TraceResult{}, err
	}
	if e.Graphs == nil {
		return TraceResult{}, ErrNoGraph
	}

	s.traceMu.Lock()
	defer s.traceMu.Unlock()
	if gen != s.traceGen {
		clear(s.tracers)
		s.traceGen = gen
	}
	t, ok := s.tracers[e.Graphs]
	if !ok {
		t = provenance.NewTracer(e.Graphs)
		s.tracers[e.Graphs] = t
	}

	edges, err := t.Trace(cell)
	switch {
	case errors.Is(err, provenance.ErrTraceLimit):
		return TraceResult{Cell: cell, Edges: edges, Truncated: true}, nil
	case err != nil:
		return TraceResult{}, err
	}
	return TraceResult{Cell: cell, Edges: edges}, nil
}

// Explain describes why solution sol does or does not reproduce the
// expected output of test case example, and tints its operations by the
// user's preferences.
func (s *Service) Explain(example, sol int) (Explanation, error) {
	e, _, err := s.evaluation(example, sol)
	if err != nil {
		return Explanation{}, err
	}
	pair, err := s.store.Pair(example)
	if err != nil {
		return Explanation{}, err
	}
	ex := Explanation{
		Example:    example,
		Solution:   sol,
		Match:      e.Match,
		Message:    validation.Explain(pair.Output.StringValue, e),
		Operations: []provenance.Operation{},
		Tints:      map[string]preference.Tint{},
	}
	if e.Graphs != nil {
		ex.Operations = e.Graphs.Operations()
		ex.Tints = e.Graphs.OperationTints(s.prefs)
	}
	return ex, nil
}
