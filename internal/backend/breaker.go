package backend

import (
	"sync"
	"time"
)

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation
	CircuitOpen                         // Failing, reject requests
	CircuitHalfOpen                     // One trial call at a time
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	}
	return "closed"
}

// Outcome is what an admitted call reports back to the breaker.
type Outcome int

const (
	// OutcomeSuccess means the backend answered.
	OutcomeSuccess Outcome = iota
	// OutcomeFailure means the backend was unreachable or returned 5xx.
	OutcomeFailure
	// OutcomeAbandoned means the call ended before the backend could be
	// judged, usually because the caller canceled it. It frees a half-open
	// trial slot without moving the breaker.
	OutcomeAbandoned
)

// CircuitBreaker stops calls to the synthesis backend after repeated
// transport failures. Once Timeout has passed it admits trial calls one at a
// time until SuccessThreshold of them succeed.
type CircuitBreaker struct {
	mu       sync.Mutex
	state    CircuitState
	epoch    uint64 // bumped on every transition; stale outcomes are dropped
	failures int
	passed   int
	trial    bool
	openedAt time.Time
	now      func() time.Time

	FailureThreshold int           // Number of failures before opening
	SuccessThreshold int           // Number of trial successes before closing
	Timeout          time.Duration // How long to stay open
	OnStateChange    func(from, to CircuitState)
}

// NewCircuitBreaker creates a circuit breaker. Non-positive arguments fall
// back to 5 failures, 2 successes and 30s.
func NewCircuitBreaker(failureThreshold, successThreshold int, timeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if successThreshold <= 0 {
		successThreshold = 2
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CircuitBreaker{
		state:            CircuitClosed,
		now:              time.Now,
		FailureThreshold: failureThreshold,
		SuccessThreshold: successThreshold,
		Timeout:          timeout,
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// RetryAfter returns how long an open breaker keeps rejecting calls.
func (cb *CircuitBreaker) RetryAfter() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != CircuitOpen {
		return 0
	}
	return max(cb.Timeout-cb.now().Sub(cb.openedAt), 0)
}

// Acquire admits a call or reports false when the breaker rejects it. The
// returned func must be called exactly once with the call's outcome.
func (cb *CircuitBreaker) Acquire() (done func(Outcome), ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && cb.now().Sub(cb.openedAt) >= cb.Timeout {
		cb.transition(CircuitHalfOpen)
	}
	switch cb.state {
	case CircuitOpen:
		return nil, false
	case CircuitHalfOpen:
		if cb.trial {
			return nil, false
		}
		cb.trial = true
	}

	epoch := cb.epoch
	var once sync.Once
	return func(o Outcome) {
		once.Do(func() { cb.report(epoch, o) })
	}, true
}

func (cb *CircuitBreaker) report(epoch uint64, o Outcome) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if epoch != cb.epoch {
		return
	}

	if cb.state == CircuitHalfOpen {
		cb.trial = false
		switch o {
		case OutcomeFailure:
			cb.transition(CircuitOpen)
		case OutcomeSuccess:
			if cb.passed++; cb.passed >= cb.SuccessThreshold {
				cb.transition(CircuitClosed)
			}
		}
		return
	}

	switch o {
	case OutcomeSuccess:
		cb.failures = 0
	case OutcomeFailure:
		if cb.failures++; cb.failures >= cb.FailureThreshold {
			cb.transition(CircuitOpen)
		}
	}
}

// transition must be called with mu held. Counters restart with every state.
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	cb.epoch++
	cb.failures, cb.passed, cb.trial = 0, 0, false
	if to == CircuitOpen {
		cb.openedAt = cb.now()
	}
	breakerState.Set(float64(to))
	if cb.OnStateChange != nil && from != to {
		cb.OnStateChange(from, to)
	}
}
