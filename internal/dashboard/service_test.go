package dashboard

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/intent/dashboard/internal/models"
	"github.com/intent/dashboard/internal/preference"
	"github.com/intent/dashboard/internal/provenance"
	"github.com/intent/dashboard/internal/session"
	"github.com/intent/dashboard/internal/solution"
	"github.com/intent/dashboard/internal/testcase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const transpose = "tf.transpose(in1)"

const transposeGraph = `{
  "edges": [{"end": "n0", "start": "p0"}, {"end": "p0", "start": "n1", "label": "a"}],
  "nodes": {
    "n0": {"label": "tf.transpose(in1)", "type": "intermediate", "value": "[[1, 3], [2, 4]]"},
    "n1": {"label": "in1", "type": "input", "value": "[[1, 2], [3, 4]]"},
    "p0": {"docstring": "Transpose a.", "value": "tf.transpose(a)"}
  },
  "trace_edges": {
    "n0": [{"description": "", "is_value_wise": false, "provenance": "[[0], [2], [1], [3]]", "start": "n1"}]
  }
}`

// fakeBackend reports transpose as the only solution and treats it as the
// only expression matching every test case.
type fakeBackend struct {
	graph *provenance.Graph

	mu        sync.Mutex
	validates []models.ValidateRequest
	aborts    int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	var g provenance.Graph
	require.NoError(t, json.Unmarshal([]byte(transposeGraph), &g))
	return &fakeBackend{graph: &g}
}

func (f *fakeBackend) Solve(context.Context, models.SolveRequest) (models.SolveResponse, error) {
	return models.SolveResponse{SessionID: "7"}, nil
}

func (f *fakeBackend) Poll(context.Context, models.SessionID) (models.PollResponse, error) {
	return models.PollResponse{
		Completed: true,
		Solutions: map[string]models.SynthesizedSolution{
			"solution0": {Expression: transpose, Time: 1.5},
		},
	}, nil
}

func (f *fakeBackend) Abort(context.Context, models.SessionID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborts++
	return nil
}

func (f *fakeBackend) Validate(_ context.Context, req models.ValidateRequest) (models.Results, error) {
	f.mu.Lock()
	f.validates = append(f.validates, req)
	f.mu.Unlock()

	results := models.Results{}
	for i := range req.Inputs {
		row := map[string]models.Evaluation{}
		for key, expr := range req.Solutions {
			e := models.Evaluation{Match: expr == transpose, EvalOutput: "[[1, 2], [3, 4]]"}
			if e.Match {
				e.EvalOutput = "[[1, 3], [2, 4]]"
				e.Graphs = f.graph
			}
			row[key] = e
		}
		results[models.ExampleKey(i)] = row
	}
	return results, nil
}

func (f *fakeBackend) validateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.validates)
}

func newTestService(t *testing.T) (*Service, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend(t)
	s := New(backend, Options{
		Session:  session.Config{PollInterval: 5 * time.Millisecond},
		Debounce: 10 * time.Millisecond,
	}, zap.NewNop())
	t.Cleanup(s.Close)
	return s, backend
}

func waitForSolutions(t *testing.T, s *Service, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		st := s.Validations()
		return !st.Validating && len(st.Results[models.ExampleKey(0)]) == n
	}, time.Second, time.Millisecond)
}

func TestNew_SeedsDefaultPair(t *testing.T) {
	s, _ := newTestService(t)

	tc := s.TestCases()
	require.Len(t, tc.Pairs, 1)
	assert.True(t, tc.Valid)
	assert.Equal(t, testcase.DefaultInput, tc.Pairs[0].Inputs[0].StringValue)
	assert.Equal(t, session.StatusIdle, s.Synthesis().Status)
}

func TestAddSolution_ValidatesAndSummarizes(t *testing.T) {
	s, _ := newTestService(t)

	idx, err := s.AddSolution(transpose)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	idx, err = s.AddSolution("tf.add(in1, in1)")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	waitForSolutions(t, s, 2)
	views := s.Solutions()
	assert.Equal(t, 1, views.Selected)
	require.Len(t, views.Solutions, 2)
	assert.Equal(t, "Passed all test cases", views.Solutions[0].Label)
	assert.Equal(t, "Failed on test case 1", views.Solutions[1].Label)
	assert.Equal(t, solution.SourceUser, views.Solutions[1].Source)
}

func TestAddSolution_RequiresValidTestCases(t *testing.T) {
	s, backend := newTestService(t)

	_, err := s.SetInputText(0, 0, "[1, 2")
	require.NoError(t, err)

	_, err = s.AddSolution(transpose)
	assert.ErrorIs(t, err, testcase.ErrInvalidTestCases)
	recent := s.Notifier().Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, session.MsgInvalidTestCases, recent[0].Message)
	assert.Empty(t, s.Solutions().Solutions)
	assert.Zero(t, backend.validateCount())
}

func TestTestCaseEdits_Revalidate(t *testing.T) {
	s, backend := newTestService(t)

	_, err := s.AddSolution(transpose)
	require.NoError(t, err)
	waitForSolutions(t, s, 1)
	before := backend.validateCount()

	idx, err := s.AddPair()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 1, s.TestCases().Selected)

	require.Eventually(t, func() bool {
		return s.Validations().Results.ExampleCount() == 2
	}, time.Second, time.Millisecond)
	assert.Greater(t, backend.validateCount(), before)
}

func TestRemovePair_KeepsSelectionInRange(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.AddPair()
	require.NoError(t, err)
	_, err = s.AddPair()
	require.NoError(t, err)
	assert.Equal(t, 2, s.TestCases().Selected)

	require.NoError(t, s.RemovePair(2))
	assert.Equal(t, 1, s.TestCases().Selected)

	require.NoError(t, s.RemovePair(0))
	assert.Equal(t, 0, s.TestCases().Selected)

	assert.ErrorIs(t, s.RemovePair(0), testcase.ErrLastPair)
	assert.ErrorIs(t, s.SelectPair(3), testcase.ErrPairNotFound)
}

func TestRemoveSolution_DiscardsShiftedResults(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.AddSolution("tf.add(in1, in1)")
	require.NoError(t, err)
	_, err = s.AddSolution(transpose)
	require.NoError(t, err)
	waitForSolutions(t, s, 2)

	require.NoError(t, s.RemoveSolution(0))
	assert.Equal(t, 0, s.Solutions().Selected)

	waitForSolutions(t, s, 1)
	e, ok := s.Validations().Results.Lookup(0, 0)
	require.True(t, ok)
	assert.True(t, e.Match)

	assert.ErrorIs(t, s.RemoveSolution(5), solution.ErrNotFound)
}

func TestClearSolutions(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.AddSolution(transpose)
	require.NoError(t, err)
	waitForSolutions(t, s, 1)

	s.ClearSolutions()
	assert.Empty(t, s.Solutions().Solutions)
	assert.Empty(t, s.Validations().Results)
}

func TestSubmit_ReplacesSynthesizedAndValidates(t *testing.T) {
	s, _ := newTestService(t)
	s.SetPreference("tf.transpose(a)", true)

	_, err := s.Submit(context.Background(), session.Request{Description: "transpose"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return s.Synthesis().Status == session.StatusCompleted
	}, time.Second, time.Millisecond)
	waitForSolutions(t, s, 1)

	views := s.Solutions().Solutions
	require.Len(t, views, 1)
	assert.Equal(t, solution.SourceSynthesized, views[0].Source)
	assert.Equal(t, transpose, views[0].Expression)
	require.NotNil(t, views[0].SynthesisTime)
	assert.InDelta(t, 1.5, *views[0].SynthesisTime, 1e-9)
	assert.False(t, s.Abort(context.Background()))
}

func TestSubmit_EmptyDescription(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.Submit(context.Background(), session.Request{Description: "  "})
	assert.ErrorIs(t, err, session.ErrEmptyDescription)
	assert.Equal(t, session.StatusIdle, s.Synthesis().Status)
}

func TestTrace(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.AddSolution(transpose)
	require.NoError(t, err)
	waitForSolutions(t, s, 1)

	res, err := s.Trace(0, 0, "n0-1")
	require.NoError(t, err)
	require.Len(t, res.Edges, 1)
	assert.Equal(t, provenance.Cell{Node: "n1", Index: 2}, res.Edges[0].To)
	assert.False(t, res.Truncated)

	_, err = s.Trace(0, 3, "n0-1")
	assert.ErrorIs(t, err, ErrNoEvaluation)
	_, err = s.Trace(0, 0, "bogus")
	assert.ErrorIs(t, err, provenance.ErrBadCellID)
}

func TestTrace_NoGraph(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.AddSolution("tf.add(in1, in1)")
	require.NoError(t, err)
	waitForSolutions(t, s, 1)

	_, err = s.Trace(0, 0, "n0-1")
	assert.ErrorIs(t, err, ErrNoGraph)
}

func TestExplain(t *testing.T) {
	s, _ := newTestService(t)
	s.SetPreference("tf.transpose(a)", false)

	_, err := s.AddSolution(transpose)
	require.NoError(t, err)
	_, err = s.AddSolution("tf.add(in1, in1)")
	require.NoError(t, err)
	waitForSolutions(t, s, 2)

	ex, err := s.Explain(0, 0)
	require.NoError(t, err)
	assert.True(t, ex.Match)
	assert.Empty(t, ex.Message)
	assert.Equal(t, map[string]preference.Tint{"p0": preference.TintUndesired}, ex.Tints)

	ex, err = s.Explain(0, 1)
	require.NoError(t, err)
	assert.Equal(t, "Expected tensor [[1,3],[2,4]] but got [[1,2],[3,4]]", ex.Message)
	assert.Empty(t, ex.Operations)
}

func TestValidateDraft(t *testing.T) {
	s, _ := newTestService(t)

	d := s.ValidateDraft(transpose)
	assert.True(t, d.Pending)
	require.Eventually(t, func() bool { return !s.Draft().Pending }, time.Second, time.Millisecond)
	assert.Empty(t, s.Draft().Error)
	assert.Equal(t, 1, s.Draft().Results.ExampleCount())
}

func TestPreferences(t *testing.T) {
	s, _ := newTestService(t)

	s.SetPreference("tf.add(x, y)", true)
	assert.Equal(t, map[string]preference.Preference{
		"tf.add(x, y)": {Label: "tf.add(x, y)", Desired: true},
	}, s.Preferences())
	assert.True(t, s.RemovePreference("tf.add(x, y)"))
	assert.False(t, s.RemovePreference("tf.add(x, y)"))
}
