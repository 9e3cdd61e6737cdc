// Package dashboard composes the test cases, candidate solutions,
// preferences, synthesis session and validation results of one dashboard.
//
// Every change to the test cases or the solution list schedules a batch
// validation. Scheduling is coalesced: one worker validates the latest
// state, so a burst of edits costs at most one request in flight plus one
// queued behind it.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/intent/dashboard/internal/backend"
	"github.com/intent/dashboard/internal/notifier"
	"github.com/intent/dashboard/internal/preference"
	"github.com/intent/dashboard/internal/provenance"
	"github.com/intent/dashboard/internal/session"
	"github.com/intent/dashboard/internal/solution"
	"github.com/intent/dashboard/internal/tensor"
	"github.com/intent/dashboard/internal/testcase"
	"github.com/intent/dashboard/internal/validation"
	"go.uber.org/zap"
)

var (
	// ErrNoEvaluation is returned when no validation result covers the
	// requested test case and solution.
	ErrNoEvaluation = errors.New("no evaluation for this test case and solution")
	// ErrNoGraph is returned when an evaluation carries no dataflow graph.
	ErrNoGraph = errors.New("evaluation has no dataflow graph")
)

// Options configures a Service. Cache and Publisher may be nil.
type Options struct {
	Session         session.Config
	Debounce        time.Duration
	ValidateTimeout time.Duration
	Cache           validation.Cache
	Publisher       session.EventPublisher
}

// Service is the state of one dashboard. It is safe for concurrent use.
type Service struct {
	logger     *zap.Logger
	client     backend.Client
	store      *testcase.Store
	solutions  *solution.Set
	prefs      *preference.Set
	notifier   *notifier.Notifier
	validation *validation.Controller
	session    *session.Controller

	ctx     context.Context
	cancel  context.CancelFunc
	trigger chan struct{}
	wg      sync.WaitGroup

	mu               sync.Mutex
	selectedPair     int
	selectedSolution int

	traceMu   sync.Mutex
	traceGen  uint64
	tracers   map[*provenance.Graph]*provenance.Tracer
	closeOnce sync.Once
}

// New creates a dashboard seeded with the default test case and starts its
// validation worker. Close releases it.
func New(client backend.Client, opts Options, logger *zap.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		logger:    logger,
		client:    client,
		store:     testcase.NewStore(logger.Named("testcases")),
		solutions: solution.NewSet(),
		prefs:     preference.NewSet(),
		notifier:  notifier.New(logger.Named("notifier")),
		ctx:       ctx,
		cancel:    cancel,
		trigger:   make(chan struct{}, 1),
		tracers:   make(map[*provenance.Graph]*provenance.Tracer),
	}
	s.validation = validation.NewController(client, s.notifier, opts.Cache, opts.Debounce, opts.ValidateTimeout, logger.Named("validation"))
	s.session = session.NewController(session.Deps{
		Client:      client,
		TestCases:   s.store,
		Solutions:   s.solutions,
		Preferences: s.prefs,
		Notifier:    s.notifier,
		Publisher:   opts.Publisher,
		Hooks: session.Hooks{
			Started:          s.validation.Reset,
			SolutionsChanged: s.revalidate,
		},
	}, opts.Session, logger.Named("session"))

	s.wg.Add(1)
	go s.validateLoop()
	return s
}

// Notifier returns the notification broadcaster.
func (s *Service) Notifier() *notifier.Notifier {
	return s.notifier
}

// Client returns the synthesis backend client.
func (s *Service) Client() backend.Client {
	return s.client
}

// Close stops the session, pending validations and the worker.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.session.Close()
		s.validation.Close()
	})
}

func (s *Service) revalidate() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Service) validateLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.trigger:
		}
		_, err := s.validation.ValidateAll(s.ctx, s.batch())
		switch {
		case err == nil, errors.Is(err, validation.ErrSuperseded), errors.Is(err, validation.ErrInvalidTestCases):
		case errors.Is(err, context.Canceled):
			return
		default:
			s.logger.Warn("automatic validation failed", zap.Error(err))
		}
	}
}

func (s *Service) batch() validation.Batch {
	inputs, outputs, valid := s.store.Literals()
	id, _ := s.session.SessionID()
	return validation.Batch{
		Inputs:    inputs,
		Outputs:   outputs,
		Valid:     valid,
		SessionID: id,
		Solutions: s.solutions.Expressions(),
	}
}

// TestCases is the test case panel.
type TestCases struct {
	Pairs    []testcase.Pair `json:"pairs"`
	Selected int             `json:"selected"`
	Valid    bool            `json:"valid"`
}

// TestCases returns every pair and the selected one.
func (s *Service) TestCases() TestCases {
	s.mu.Lock()
	selected := s.selectedPair
	s.mu.Unlock()
	return TestCases{Pairs: s.store.Pairs(), Selected: selected, Valid: s.store.AllValid()}
}

// AddPair duplicates the selected pair, appends it and selects it.
func (s *Service) AddPair() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.store.AddPair(s.selectedPair)
	if err != nil {
		return 0, err
	}
	s.selectedPair = idx
	s.revalidate()
	return idx, nil
}

// RemovePair deletes pair i and keeps the selection on a valid pair.
func (s *Service) RemovePair(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.RemovePair(i); err != nil {
		return err
	}
	if i < s.selectedPair {
		s.selectedPair--
	}
	if n := s.store.Len(); s.selectedPair >= n {
		s.selectedPair = n - 1
	}
	s.revalidate()
	return nil
}

// SelectPair selects pair i.
func (s *Service) SelectPair(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= s.store.Len() {
		return fmt.Errorf("%w: %d", testcase.ErrPairNotFound, i)
	}
	s.selectedPair = i
	return nil
}

// AddInputTensor appends a blank input to pair. It reports false for an
// unknown pair.
func (s *Service) AddInputTensor(pair int) bool {
	if !s.store.AddInputTensor(pair) {
		return false
	}
	s.revalidate()
	return true
}

// RemoveInputTensor removes an input of pair unless it is the only one.
func (s *Service) RemoveInputTensor(pair, index int) bool {
	if !s.store.RemoveInputTensor(pair, index) {
		return false
	}
	s.revalidate()
	return true
}

// SetInputText replaces the literal of an input tensor.
func (s *Service) SetInputText(pair, index int, text string) (tensor.Tensor, error) {
	return s.changed(s.store.SetInputText(pair, index, text))
}

// SetOutputText replaces the literal of a pair's expected output.
func (s *Service) SetOutputText(pair int, text string) (tensor.Tensor, error) {
	return s.changed(s.store.SetOutputText(pair, text))
}

// UpdateInputCell edits one cell of an input tensor.
func (s *Service) UpdateInputCell(pair, index int, path []int, raw string) (tensor.Tensor, error) {
	return s.changed(s.store.UpdateInputCell(pair, index, path, raw))
}

// UpdateOutputCell edits one cell of a pair's expected output.
func (s *Service) UpdateOutputCell(pair int, path []int, raw string) (tensor.Tensor, error) {
	return s.changed(s.store.UpdateOutputCell(pair, path, raw))
}

func (s *Service) changed(t tensor.Tensor, err error) (tensor.Tensor, error) {
	if err != nil {
		return t, err
	}
	s.revalidate()
	return t, nil
}

// SolutionView is a solution with its validation summary, if any.
type SolutionView struct {
	solution.Solution
	Summary *validation.Summary `json:"summary,omitempty"`
	Label   string              `json:"label,omitempty"`
}

// Solutions is the solution panel.
type Solutions struct {
	Solutions []SolutionView `json:"solutions"`
	Selected  int            `json:"selected"`
}

// Solutions returns the candidates in order with their pass counts.
func (s *Service) Solutions() Solutions {
	results := s.validation.State().Results
	all := s.solutions.All()
	views := make([]SolutionView, len(all))
	for j, sol := range all {
		views[j] = SolutionView{Solution: sol}
		if sum, ok := validation.Summarize(results, j); ok {
			views[j].Summary = &sum
			views[j].Label = sum.Label()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Solutions{Solutions: views, Selected: s.selectedSolution}
}

// AddSolution appends a user expression and selects it. The test cases must
// be valid so the new solution can be evaluated.
func (s *Service) AddSolution(expression string) (int, error) {
	if !s.store.AllValid() {
		s.notifier.Error(session.MsgInvalidTestCases)
		return 0, testcase.ErrInvalidTestCases
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.solutions.Add(expression)
	if err != nil {
		return 0, err
	}
	s.selectedSolution = idx
	s.revalidate()
	return idx, nil
}

// EditSolution replaces a user-authored expression.
func (s *Service) EditSolution(index int, expression string) error {
	if !s.store.AllValid() {
		s.notifier.Error(session.MsgInvalidTestCases)
		return testcase.ErrInvalidTestCases
	}
	if err := s.solutions.Edit(index, expression); err != nil {
		return err
	}
	s.revalidate()
	return nil
}

// RemoveSolution deletes a solution. Positional ids shift, so the result
// map is discarded before revalidating.
func (s *Service) RemoveSolution(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.solutions.Remove(index); err != nil {
		return err
	}
	s.validation.Reset()
	if index < s.selectedSolution {
		s.selectedSolution--
	}
	if n := s.solutions.Len(); s.selectedSolution >= n {
		s.selectedSolution = max(n-1, 0)
	}
	s.revalidate()
	return nil
}

// ClearSolutions drops every solution and every validation result.
func (s *Service) ClearSolutions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solutions.Clear()
	s.validation.Reset()
	s.selectedSolution = 0
}

// SelectSolution selects the solution shown in the provenance view.
func (s *Service) SelectSolution(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= s.solutions.Len() {
		return fmt.Errorf("%w: %d", solution.ErrNotFound, index)
	}
	s.selectedSolution = index
	return nil
}

// Preferences returns the operation preferences.
func (s *Service) Preferences() map[string]preference.Preference {
	return s.prefs.All()
}

// SetPreference marks op as desired or undesired.
func (s *Service) SetPreference(op string, desired bool) {
	s.prefs.Put(op, desired)
}

// RemovePreference forgets op.
func (s *Service) RemovePreference(op string) bool {
	return s.prefs.Remove(op)
}

// Submit starts a synthesis session.
func (s *Service) Submit(ctx context.Context, req session.Request) (session.Snapshot, error) {
	return s.session.Submit(ctx, req)
}

// Abort stops the synthesis session. It reports false when none is running.
func (s *Service) Abort(ctx context.Context) bool {
	return s.session.Abort(ctx)
}

// Synthesis returns the session state.
func (s *Service) Synthesis() session.Snapshot {
	return s.session.Snapshot()
}

// Validations returns the batch validation state.
func (s *Service) Validations() validation.State {
	return s.validation.State()
}

// ValidateDraft schedules validation of the expression being typed.
func (s *Service) ValidateDraft(expression string) validation.Draft {
	return s.validation.ValidateDraft(expression, s.batch())
}

// Draft returns the draft validation state.
func (s *Service) Draft() validation.Draft {
	return s.validation.CurrentDraft()
}
