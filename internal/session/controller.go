// Package session drives one synthesis session at a time against the
// synthesis backend: submit, a client-driven poll loop, and abort.
//
// Every submission owns a token holding a cancellable context and a
// generation number. The poll loop keeps its own token and, under the
// controller lock, checks that the token is still current before it touches
// any state. Abort and a newer Submit replace the token synchronously, so a
// poll response that races with them is discarded.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/intent/dashboard/internal/backend"
	"github.com/intent/dashboard/internal/models"
	"github.com/intent/dashboard/internal/notifier"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/intent/dashboard/internal/session")

// Status is the lifecycle state of the controller.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusPolling    Status = "polling"
	StatusCompleted  Status = "completed"
	StatusAborted    Status = "aborted"
	StatusFailed     Status = "failed"
)

// Active reports whether a session is still in progress.
func (s Status) Active() bool {
	return s == StatusSubmitting || s == StatusPolling
}

// TestCases is the view of the test-case store needed to submit.
type TestCases interface {
	// Literals returns the tables and whether all of them parsed, read
	// atomically.
	Literals() (inputs, outputs models.LiteralTable, valid bool)
}

// Solutions receives the synthesized block.
type Solutions interface {
	ReplaceSynthesized(solutions []models.SynthesizedSolution)
	ClearSynthesized()
}

// Preferences projects operation preferences onto a request.
type Preferences interface {
	RequestMaps() (desired, undesired map[string]string)
}

// Hooks are called without the controller lock held.
type Hooks struct {
	// Started runs when a submission has cleared earlier results.
	Started func()
	// SolutionsChanged runs after the synthesized block was replaced or cleared.
	SolutionsChanged func()
}

// Deps are the collaborators of a Controller. Publisher may be nil.
type Deps struct {
	Client      backend.Client
	TestCases   TestCases
	Solutions   Solutions
	Preferences Preferences
	Notifier    *notifier.Notifier
	Publisher   EventPublisher
	Hooks       Hooks
}

// Config tunes the controller.
type Config struct {
	PollInterval         time.Duration
	AbortTimeout         time.Duration
	DefaultTimeout       int
	DefaultSolutionCount int
}

// DefaultConfig matches the behaviour of the synthesis client.
func DefaultConfig() Config {
	return Config{
		PollInterval:         500 * time.Millisecond,
		AbortTimeout:         10 * time.Second,
		DefaultTimeout:       300,
		DefaultSolutionCount: 3,
	}
}

// Snapshot is a point-in-time copy of the controller state.
type Snapshot struct {
	SessionID      models.SessionID `json:"session_id,omitempty"`
	Status         Status           `json:"status"`
	Synthesizing   bool             `json:"synthesizing"`
	StartedAt      *time.Time       `json:"started_at,omitempty"`
	EndedAt        *time.Time       `json:"ended_at,omitempty"`
	ElapsedSeconds float64          `json:"elapsed_seconds"`
	SolutionsFound int              `json:"solutions_found"`
}

type token struct {
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
}

// Controller owns the synthesis session state.
type Controller struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu         sync.Mutex
	generation uint64
	current    *token
	status     Status
	sessionID  models.SessionID
	startedAt  time.Time
	endedAt    time.Time
	found      int

	wg sync.WaitGroup
}

// NewController creates an idle controller.
func NewController(deps Deps, cfg Config, logger *zap.Logger) *Controller {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.AbortTimeout <= 0 {
		cfg.AbortTimeout = def.AbortTimeout
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = def.DefaultTimeout
	}
	if cfg.DefaultSolutionCount <= 0 {
		cfg.DefaultSolutionCount = def.DefaultSolutionCount
	}
	return &Controller{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		status: StatusIdle,
	}
}

// Submit validates the request locally and starts a synthesis session. The
// returned snapshot reflects the state after /solve answered.
func (c *Controller) Submit(ctx context.Context, req Request) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "session.Submit")
	defer span.End()

	inputs, outputs, valid := c.deps.TestCases.Literals()
	if !valid {
		c.deps.Notifier.Error(MsgInvalidTestCases)
		return c.Snapshot(), ErrInvalidTestCases
	}
	if strings.TrimSpace(req.Description) == "" {
		c.deps.Notifier.Error(MsgEmptyDescription)
		return c.Snapshot(), ErrEmptyDescription
	}
	constraints, err := ParseConstants(req.Constants)
	if err != nil {
		c.deps.Notifier.Error(MsgInvalidConstants)
		return c.Snapshot(), err
	}

	solveReq := models.SolveRequest{
		Inputs:      inputs,
		Outputs:     outputs,
		Description: req.Description,
		Constraints: constraints,
		Timeout:     req.Timeout,
		SolNum:      req.SolutionCount,
	}
	if solveReq.Timeout <= 0 {
		solveReq.Timeout = c.cfg.DefaultTimeout
	}
	if solveReq.SolNum <= 0 {
		solveReq.SolNum = c.cfg.DefaultSolutionCount
	}
	solveReq.DesiredOp, solveReq.UndesiredOp = c.deps.Preferences.RequestMaps()

	c.mu.Lock()
	if c.current != nil {
		c.current.cancel()
	}
	c.generation++
	tokCtx, cancel := context.WithCancel(context.Background())
	tok := &token{generation: c.generation, ctx: tokCtx, cancel: cancel}
	c.current = tok
	c.status = StatusSubmitting
	c.sessionID = ""
	c.startedAt = c.now()
	c.endedAt = time.Time{}
	c.found = 0
	c.deps.Solutions.ClearSynthesized()
	c.mu.Unlock()

	span.SetAttributes(attribute.Int64("session.generation", int64(tok.generation)))
	c.runHook(c.deps.Hooks.Started)
	c.runHook(c.deps.Hooks.SolutionsChanged)

	// The solve call follows the token, not the caller: the request that
	// triggered it may finish before the backend answers.
	resp, err := c.deps.Client.Solve(tok.ctx, solveReq)

	c.mu.Lock()
	if c.current != tok {
		c.mu.Unlock()
		if err == nil {
			c.logger.Info("discarding session superseded during submit",
				zap.String("session_id", string(resp.SessionID)),
			)
			c.abortRemote(ctx, resp.SessionID)
		}
		return c.Snapshot(), nil
	}
	if err != nil {
		c.finishLocked(StatusFailed)
		c.mu.Unlock()
		c.logger.Error("failed to start synthesis", zap.Error(err))
		c.deps.Notifier.Error(MsgSolveFailed)
		c.publish(EventFailed, "", 0)
		return c.Snapshot(), fmt.Errorf("submit synthesis: %w", err)
	}
	c.sessionID = resp.SessionID
	c.status = StatusPolling
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Info("synthesis session started", zap.String("session_id", string(resp.SessionID)))
	c.publish(EventSubmitted, resp.SessionID, 0)
	go c.pollLoop(tok, resp.SessionID)
	return c.Snapshot(), nil
}

func (c *Controller) pollLoop(tok *token, id models.SessionID) {
	defer c.wg.Done()
	timer := time.NewTimer(c.cfg.PollInterval)
	timer.Stop()
	defer timer.Stop()

	for {
		resp, err := c.deps.Client.Poll(tok.ctx, id)
		if !c.applyPoll(tok, id, resp, err) {
			return
		}
		timer.Reset(c.cfg.PollInterval)
		select {
		case <-tok.ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// applyPoll applies one poll response and reports whether polling continues.
func (c *Controller) applyPoll(tok *token, id models.SessionID, resp models.PollResponse, err error) bool {
	c.mu.Lock()
	if c.current != tok || tok.ctx.Err() != nil {
		c.mu.Unlock()
		c.logger.Debug("discarding poll response for inactive session", zap.String("session_id", string(id)))
		return false
	}

	if err != nil {
		c.finishLocked(StatusFailed)
		c.mu.Unlock()
		c.logger.Error("failed to poll synthesizer", zap.String("session_id", string(id)), zap.Error(err))
		c.deps.Notifier.Error(MsgPollFailed)
		c.publish(EventFailed, id, 0)
		return false
	}

	changed := false
	if solutions := resp.OrderedSolutions(); len(solutions) > 0 {
		c.deps.Solutions.ReplaceSynthesized(solutions)
		c.found = len(solutions)
		changed = true
	}
	found := c.found
	if !resp.Completed {
		c.mu.Unlock()
		if changed {
			c.publish(EventSolutions, id, found)
			c.runHook(c.deps.Hooks.SolutionsChanged)
		}
		return true
	}

	none := found == 0
	if none {
		c.deps.Solutions.ClearSynthesized()
		changed = true
	}
	c.finishLocked(StatusCompleted)
	c.mu.Unlock()

	c.logger.Info("synthesis session completed",
		zap.String("session_id", string(id)),
		zap.Int("solutions", found),
	)
	if none {
		c.deps.Notifier.Error(MsgNoSolutions)
	}
	if changed {
		c.runHook(c.deps.Hooks.SolutionsChanged)
	}
	c.publish(EventCompleted, id, found)
	return false
}

// Abort stops the current session. It returns false without any network
// call when no session id is tracked. Local state changes before the abort
// request is sent; a failing abort only raises a notification.
func (c *Controller) Abort(ctx context.Context) bool {
	c.mu.Lock()
	if c.current == nil || c.sessionID.IsZero() {
		c.mu.Unlock()
		return false
	}
	id := c.sessionID
	found := c.found
	c.finishLocked(StatusAborted)
	c.mu.Unlock()

	c.logger.Info("synthesis session aborted", zap.String("session_id", string(id)))
	c.publish(EventAborted, id, found)
	c.abortRemote(ctx, id)
	return true
}

func (c *Controller) abortRemote(ctx context.Context, id models.SessionID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.AbortTimeout)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		if err := c.deps.Client.Abort(ctx, id); err != nil {
			c.logger.Error("failed to abort synthesis session",
				zap.String("session_id", string(id)),
				zap.Error(err),
			)
			c.deps.Notifier.Error(MsgAbortFailed)
		}
	}()
}

// finishLocked ends the current token. c.mu must be held.
func (c *Controller) finishLocked(status Status) {
	if c.current != nil {
		c.current.cancel()
		c.current = nil
	}
	c.status = status
	c.endedAt = c.now()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		SessionID:      c.sessionID,
		Status:         c.status,
		Synthesizing:   c.current != nil,
		SolutionsFound: c.found,
	}
	if !c.startedAt.IsZero() {
		started := c.startedAt
		s.StartedAt = &started
		end := c.now()
		if !c.endedAt.IsZero() {
			ended := c.endedAt
			s.EndedAt = &ended
			end = ended
		}
		s.ElapsedSeconds = end.Sub(started).Seconds()
	}
	return s
}

// SessionID returns the id of the active session, if any. Validation
// requests carry it so the backend can reuse session state.
func (c *Controller) SessionID() (models.SessionID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID, !c.sessionID.IsZero()
}

// Close cancels the active session locally and waits for background work.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.current != nil {
		c.current.cancel()
		c.current = nil
		if c.status.Active() {
			c.status = StatusAborted
			c.endedAt = c.now()
		}
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Controller) runHook(fn func()) {
	if fn != nil {
		fn()
	}
}

func (c *Controller) publish(typ EventType, id models.SessionID, solutions int) {
	if c.deps.Publisher == nil {
		return
	}
	event := Event{Type: typ, SessionID: id, Solutions: solutions, Time: c.now().UTC()}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.deps.Publisher.PublishSessionEvent(ctx, event); err != nil {
		c.logger.Warn("failed to publish session event",
			zap.String("type", string(typ)),
			zap.Error(err),
		)
	}
}

// IsTransport reports whether err came from the backend transport.
func IsTransport(err error) bool {
	return errors.Is(err, backend.ErrTransport) || errors.Is(err, backend.ErrStatus) || errors.Is(err, backend.ErrCircuitOpen)
}
