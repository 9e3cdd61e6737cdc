// Package validation evaluates candidate solutions against the test cases
// through the synthesis backend.
//
// Batch validation replaces the whole result map on success and never
// touches it on failure. Draft validation of the expression being typed is
// debounced; both paths stamp every request with a generation and drop any
// response whose generation is no longer the latest.
package validation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/intent/dashboard/internal/backend"
	"github.com/intent/dashboard/internal/models"
	"github.com/intent/dashboard/internal/notifier"
	"github.com/intent/dashboard/internal/testcase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("github.com/intent/dashboard/internal/validation")

const (
	MsgValidateFailed     = "Failed to validate."
	MsgDraftInvalidInputs = "Errors are found in the test cases."

	// DefaultDebounce is how long a draft must stay unchanged before it is sent.
	DefaultDebounce = 500 * time.Millisecond
)

var (
	ErrInvalidTestCases = testcase.ErrInvalidTestCases
	// ErrSuperseded is returned when a newer request was issued before the
	// response arrived; the response was dropped.
	ErrSuperseded = errors.New("validation superseded by a newer request")
)

var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intent_validation_batches_total",
		Help: "Validation batches by outcome",
	}, []string{"outcome"})

	draftsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intent_validation_drafts_total",
		Help: "Draft validations by outcome",
	}, []string{"outcome"})
)

// Cache stores results by request digest. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (models.Results, bool, error)
	Set(ctx context.Context, key string, results models.Results) error
}

// Batch is the input of one validation request.
type Batch struct {
	Inputs  models.LiteralTable
	Outputs models.LiteralTable
	// Valid is false while any test case tensor fails to parse.
	Valid     bool
	SessionID models.SessionID
	Solutions map[string]string
}

func (b Batch) request(solutions map[string]string) models.ValidateRequest {
	req := models.ValidateRequest{Inputs: b.Inputs, Outputs: b.Outputs, Solutions: solutions}
	if !b.SessionID.IsZero() {
		id := b.SessionID
		req.SessionID = &id
	}
	return req
}

// State is the published batch result map.
type State struct {
	Results    models.Results `json:"results"`
	Validating bool           `json:"validating"`
	Generation uint64         `json:"generation"`
	UpdatedAt  *time.Time     `json:"updated_at,omitempty"`
}

// Draft is the state of the expression being edited.
type Draft struct {
	Expression string         `json:"expression"`
	Pending    bool           `json:"pending"`
	Results    models.Results `json:"results,omitempty"`
	Error      string         `json:"error,omitempty"`
	Generation uint64         `json:"generation"`
}

// Controller runs batch and draft validations.
type Controller struct {
	client   backend.Client
	notifier *notifier.Notifier
	cache    Cache
	logger   *zap.Logger
	debounce time.Duration
	timeout  time.Duration
	group    singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	closed     bool
	batchGen   uint64
	inFlight   int
	results    models.Results
	updatedAt  time.Time
	draftGen   uint64
	draftTimer *time.Timer
	draft      Draft
}

// NewController creates a controller. cache may be nil; a non-positive
// debounce uses DefaultDebounce.
func NewController(client backend.Client, n *notifier.Notifier, cache Cache, debounce, timeout time.Duration, logger *zap.Logger) *Controller {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		client:   client,
		notifier: n,
		cache:    cache,
		logger:   logger,
		debounce: debounce,
		timeout:  timeout,
		ctx:      ctx,
		cancel:   cancel,
		results:  models.Results{},
	}
}

// ValidateAll evaluates every solution on every test case and publishes the
// result map. It is a no-op with zero solutions.
func (c *Controller) ValidateAll(ctx context.Context, batch Batch) (models.Results, error) {
	if len(batch.Solutions) == 0 {
		return c.State().Results, nil
	}
	if !batch.Valid {
		return nil, ErrInvalidTestCases
	}
	ctx, span := tracer.Start(ctx, "validation.ValidateAll")
	defer span.End()

	c.mu.Lock()
	c.batchGen++
	gen := c.batchGen
	c.inFlight++
	c.mu.Unlock()
	span.SetAttributes(
		attribute.Int64("validation.generation", int64(gen)),
		attribute.Int("validation.solutions", len(batch.Solutions)),
	)

	results, err := c.fetch(ctx, batch.request(batch.Solutions))

	c.mu.Lock()
	c.inFlight--
	if gen != c.batchGen {
		c.mu.Unlock()
		batchesTotal.WithLabelValues("superseded").Inc()
		return nil, ErrSuperseded
	}
	if errors.Is(err, context.Canceled) {
		c.mu.Unlock()
		batchesTotal.WithLabelValues("canceled").Inc()
		return nil, err
	}
	if err != nil {
		c.mu.Unlock()
		batchesTotal.WithLabelValues("failed").Inc()
		c.logger.Error("batch validation failed", zap.Error(err))
		c.notifier.Error(MsgValidateFailed)
		return nil, fmt.Errorf("validate solutions: %w", err)
	}
	c.results = results
	c.updatedAt = time.Now().UTC()
	c.mu.Unlock()
	batchesTotal.WithLabelValues("applied").Inc()
	return results, nil
}

// Reset clears the result map and drops every batch still in flight.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batchGen++
	c.results = models.Results{}
	c.updatedAt = time.Time{}
}

// State returns the current batch result map.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := State{Results: c.results, Validating: c.inFlight > 0, Generation: c.batchGen}
	if !c.updatedAt.IsZero() {
		t := c.updatedAt
		s.UpdatedAt = &t
	}
	return s
}

// ValidateDraft schedules validation of the expression being typed. Every
// call restarts the debounce timer and invalidates earlier drafts; blank
// text clears the draft without a request.
func (c *Controller) ValidateDraft(expression string, batch Batch) Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return c.draft
	}
	c.stopDraftTimerLocked()
	c.draftGen++
	gen := c.draftGen

	if strings.TrimSpace(expression) == "" {
		c.draft = Draft{Expression: expression, Generation: gen}
		return c.draft
	}
	c.draft = Draft{Expression: expression, Pending: true, Generation: gen}

	c.wg.Add(1)
	c.draftTimer = time.AfterFunc(c.debounce, func() {
		defer c.wg.Done()
		c.runDraft(gen, expression, batch)
	})
	return c.draft
}

// CurrentDraft returns the draft state.
func (c *Controller) CurrentDraft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Controller) runDraft(gen uint64, expression string, batch Batch) {
	c.mu.Lock()
	if c.closed || gen != c.draftGen {
		c.mu.Unlock()
		return
	}
	c.draftTimer = nil
	c.mu.Unlock()

	if !batch.Valid {
		c.applyDraft(gen, nil, MsgDraftInvalidInputs)
		return
	}

	ctx, span := tracer.Start(c.ctx, "validation.ValidateDraft")
	defer span.End()
	span.SetAttributes(attribute.Int64("validation.generation", int64(gen)))

	results, err := c.fetch(ctx, batch.request(map[string]string{models.SolutionKey(0): expression}))
	if err != nil {
		if c.applyDraft(gen, nil, err.Error()) {
			c.logger.Error("draft validation failed", zap.Error(err))
			c.notifier.Error(MsgValidateFailed)
		}
		return
	}
	c.applyDraft(gen, results, DraftError(results, 0))
}

// applyDraft publishes a draft outcome if gen is still the latest.
func (c *Controller) applyDraft(gen uint64, results models.Results, message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.draftGen {
		draftsTotal.WithLabelValues("superseded").Inc()
		return false
	}
	c.draft.Pending = false
	c.draft.Results = results
	c.draft.Error = message
	if results == nil {
		draftsTotal.WithLabelValues("failed").Inc()
	} else {
		draftsTotal.WithLabelValues("applied").Inc()
	}
	return true
}

// stopDraftTimerLocked cancels a pending debounce. c.mu must be held.
func (c *Controller) stopDraftTimerLocked() {
	if c.draftTimer != nil && c.draftTimer.Stop() {
		c.wg.Done()
	}
	c.draftTimer = nil
}

// fetch resolves a request through the cache, collapsing identical
// concurrent requests into one backend call.
func (c *Controller) fetch(ctx context.Context, req models.ValidateRequest) (models.Results, error) {
	key, err := digest(req)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	v, err, shared := c.group.Do(key, func() (any, error) {
		if c.cache != nil {
			cached, ok, err := c.cache.Get(ctx, key)
			if err != nil {
				c.logger.Warn("validation cache read failed", zap.Error(err))
			} else if ok {
				batchesTotal.WithLabelValues("cache_hit").Inc()
				return cached, nil
			}
		}
		results, err := c.client.Validate(ctx, req)
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			if err := c.cache.Set(ctx, key, results); err != nil {
				c.logger.Warn("validation cache write failed", zap.Error(err))
			}
		}
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("validation request shared with a concurrent caller", zap.String("key", key))
	}
	return v.(models.Results), nil
}

// digest is the cache key of a request.
func digest(req models.ValidateRequest) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("digest validation request: %w", err)
	}
	sum := sha256.Sum256(b)
	return "validation:" + hex.EncodeToString(sum[:]), nil
}

// Close cancels pending drafts and in-flight requests and waits for them.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopDraftTimerLocked()
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}
