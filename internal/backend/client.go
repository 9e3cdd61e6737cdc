// Package backend talks to the INTENT synthesis server over its JSON HTTP API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/intent/dashboard/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/intent/dashboard/internal/backend")

var (
	// ErrTransport wraps network and decoding failures.
	ErrTransport = errors.New("synthesis backend unreachable")
	// ErrStatus is returned for a non-2xx response.
	ErrStatus = errors.New("synthesis backend returned an error status")
	// ErrCircuitOpen is returned without a network call while the breaker is open.
	ErrCircuitOpen = errors.New("synthesis backend circuit open")
)

// maxErrorBody bounds how much of an error response is kept for logs.
const maxErrorBody = 512

// Client is the synthesis backend contract.
type Client interface {
	Solve(ctx context.Context, req models.SolveRequest) (models.SolveResponse, error)
	Poll(ctx context.Context, id models.SessionID) (models.PollResponse, error)
	Abort(ctx context.Context, id models.SessionID) error
	Validate(ctx context.Context, req models.ValidateRequest) (models.Results, error)
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	breaker *CircuitBreaker
	logger  *zap.Logger
}

// NewHTTPClient creates a client for the backend at baseURL. A nil breaker
// disables circuit breaking.
func NewHTTPClient(baseURL string, timeout time.Duration, breaker *CircuitBreaker, logger *zap.Logger) *HTTPClient {
	if breaker != nil {
		breaker.OnStateChange = func(from, to CircuitState) {
			logger.Warn("synthesis backend circuit changed state",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
		logger:  logger,
	}
}

// Breaker returns the client's circuit breaker, which may be nil.
func (c *HTTPClient) Breaker() *CircuitBreaker {
	return c.breaker
}

// Solve starts a synthesis session.
func (c *HTTPClient) Solve(ctx context.Context, req models.SolveRequest) (models.SolveResponse, error) {
	var resp models.SolveResponse
	if err := c.do(ctx, "solve", http.MethodPost, "/solve", req, &resp); err != nil {
		return models.SolveResponse{}, err
	}
	if resp.SessionID.IsZero() {
		return models.SolveResponse{}, fmt.Errorf("%w: /solve returned no session id", ErrTransport)
	}
	return resp, nil
}

// Poll fetches the current state of a session.
func (c *HTTPClient) Poll(ctx context.Context, id models.SessionID) (models.PollResponse, error) {
	var resp models.PollResponse
	if err := c.do(ctx, "poll", http.MethodGet, "/poll/"+url.PathEscape(string(id)), nil, &resp); err != nil {
		return models.PollResponse{}, err
	}
	return resp, nil
}

// Abort asks the backend to stop a session. Unknown sessions are a no-op on
// the backend side.
func (c *HTTPClient) Abort(ctx context.Context, id models.SessionID) error {
	return c.do(ctx, "abort", http.MethodGet, "/abort/"+url.PathEscape(string(id)), nil, nil)
}

// Validate evaluates every solution against every example.
func (c *HTTPClient) Validate(ctx context.Context, req models.ValidateRequest) (models.Results, error) {
	var resp models.Results
	if err := c.do(ctx, "validate", http.MethodPost, "/validate", req, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		resp = models.Results{}
	}
	return resp, nil
}

// Ping checks that the backend answers on its index route.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, endpoint, method, path string, body, out any) (err error) {
	ctx, span := tracer.Start(ctx, "backend."+endpoint)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("backend.path", path),
	)

	outcome := "ok"
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(endpoint, outcome).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
	}()

	verdict := OutcomeAbandoned
	if c.breaker != nil {
		done, ok := c.breaker.Acquire()
		if !ok {
			outcome = "circuit_open"
			return fmt.Errorf("%w: %s %s", ErrCircuitOpen, method, path)
		}
		defer func() { done(verdict) }()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			outcome = "transport"
			return fmt.Errorf("%w: encode %s body: %w", ErrTransport, endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		outcome = "transport"
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			outcome = "canceled"
			return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, ctx.Err())
		}
		outcome = "transport"
		verdict = OutcomeFailure
		c.logger.Error("synthesis backend request failed",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	// Only 5xx counts against the backend; a 4xx still proves it is up.
	verdict = OutcomeSuccess
	if resp.StatusCode >= http.StatusInternalServerError {
		verdict = OutcomeFailure
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		outcome = "status"
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("synthesis backend returned error status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return fmt.Errorf("%w: %s %s: %d", ErrStatus, method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			outcome = "transport"
			return fmt.Errorf("%w: decode %s response: %w", ErrTransport, endpoint, err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return nil
}
