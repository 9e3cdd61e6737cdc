package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/intent/dashboard/internal/backend"
	"github.com/intent/dashboard/internal/dashboard"
	"github.com/intent/dashboard/internal/middleware"
	"github.com/intent/dashboard/internal/models"
	"github.com/intent/dashboard/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const identity = "in1"

// stubBackend treats "in1" as the only expression matching every example.
type stubBackend struct {
	solveErr error
}

func (b *stubBackend) Solve(context.Context, models.SolveRequest) (models.SolveResponse, error) {
	if b.solveErr != nil {
		return models.SolveResponse{}, b.solveErr
	}
	return models.SolveResponse{SessionID: "1"}, nil
}

func (b *stubBackend) Poll(context.Context, models.SessionID) (models.PollResponse, error) {
	return models.PollResponse{Completed: true}, nil
}

func (b *stubBackend) Abort(context.Context, models.SessionID) error { return nil }

func (b *stubBackend) Validate(_ context.Context, req models.ValidateRequest) (models.Results, error) {
	results := models.Results{}
	for i := range req.Inputs {
		row := map[string]models.Evaluation{}
		for key, expr := range req.Solutions {
			row[key] = models.Evaluation{Match: expr == identity, EvalOutput: "[[1, 2], [3, 4]]"}
		}
		results[models.ExampleKey(i)] = row
	}
	return results, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type errorBody struct {
	Error middleware.APIError `json:"error"`
}

func newTestRouter(t *testing.T, b backend.Client, limiter *middleware.RateLimiter) (*gin.Engine, *dashboard.Service) {
	t.Helper()
	svc := dashboard.New(b, dashboard.Options{
		Session:  session.Config{PollInterval: 5 * time.Millisecond},
		Debounce: 5 * time.Millisecond,
	}, zap.NewNop())
	t.Cleanup(svc.Close)

	health := NewHealthHandler(pingFunc(func(context.Context) error { return nil }), backend.NewCircuitBreaker(3, 1, time.Second),
		Dependency{Name: "redis"},
		Dependency{Name: "nats", Pinger: pingFunc(func(context.Context) error { return errors.New("connection refused") })},
	)
	return NewRouter(svc, RouterOptions{Health: health, RateLimiter: limiter}, zap.NewNop()), svc
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.APIError {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, &stubBackend{}, nil)

	w := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
}

func TestDeepHealth_ReportsDependencies(t *testing.T) {
	r, _ := newTestRouter(t, &stubBackend{}, nil)

	w := do(t, r, http.MethodGet, "/health/deep", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "closed", resp.Breaker)
	want := map[string]string{
		"synthesis_backend": "healthy",
		"redis":             "not configured",
		"nats":              "unhealthy: connection refused",
	}
	if diff := cmp.Diff(want, resp.Dependencies); diff != "" {
		t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestTestCases_ListAndRemoveLast(t *testing.T) {
	r, _ := newTestRouter(t, &stubBackend{}, nil)

	w := do(t, r, http.MethodGet, "/api/v1/testcases", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tc dashboard.TestCases
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tc))
	assert.Len(t, tc.Pairs, 1)
	assert.True(t, tc.Valid)

	w = do(t, r, http.MethodDelete, "/api/v1/testcases/0", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, middleware.ErrCodeConflict, decodeError(t, w).Code)

	w = do(t, r, http.MethodDelete, "/api/v1/testcases/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTestCases_AddPairAndEdit(t *testing.T) {
	r, svc := newTestRouter(t, &stubBackend{}, nil)

	w := do(t, r, http.MethodPost, "/api/v1/testcases", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"index": 1}`, w.Body.String())

	w = do(t, r, http.MethodPut, "/api/v1/testcases/1/output", TextRequest{Text: "[[5, 6]]"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[[5, 6]]", svc.TestCases().Pairs[1].Output.StringValue)

	w = do(t, r, http.MethodPatch, "/api/v1/testcases/1/output/cell", CellRequest{Path: []int{0, 1}, Value: "9"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[[5,9]]", svc.TestCases().Pairs[1].Output.StringValue)

	w = do(t, r, http.MethodPost, "/api/v1/testcases/9/inputs", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSolutions_InvalidTestCasesRejected(t *testing.T) {
	r, _ := newTestRouter(t, &stubBackend{}, nil)

	w := do(t, r, http.MethodPut, "/api/v1/testcases/0/output", TextRequest{Text: "[[1, 2], [3]"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/solutions", ExpressionRequest{Expression: identity})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, middleware.ErrCodeInvalidTestCases, apiErr.Code)
	assert.Equal(t, session.MsgInvalidTestCases, apiErr.Message)
}

func TestSolutions_Lifecycle(t *testing.T) {
	r, svc := newTestRouter(t, &stubBackend{}, nil)

	w := do(t, r, http.MethodPost, "/api/v1/solutions", ExpressionRequest{Expression: identity})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"index": 0}`, w.Body.String())

	require.Eventually(t, func() bool {
		sols := svc.Solutions().Solutions
		return len(sols) == 1 && sols[0].Summary != nil
	}, time.Second, time.Millisecond)

	w = do(t, r, http.MethodPut, "/api/v1/solutions/0", ExpressionRequest{Expression: "tf.add(in1, in1)"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodPut, "/api/v1/solutions/0", ExpressionRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodDelete, "/api/v1/solutions/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodDelete, "/api/v1/solutions", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, svc.Solutions().Solutions)
}

func TestPreferences(t *testing.T) {
	r, svc := newTestRouter(t, &stubBackend{}, nil)

	w := do(t, r, http.MethodPut, "/api/v1/preferences/tf.add", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "desired is required")

	desired := false
	w = do(t, r, http.MethodPut, "/api/v1/preferences/tf.add", PreferenceRequest{Desired: &desired})
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, svc.Preferences(), 1)

	w = do(t, r, http.MethodDelete, "/api/v1/preferences/tf.add", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodDelete, "/api/v1/preferences/tf.add", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmit_Errors(t *testing.T) {
	tests := []struct {
		name    string
		backend *stubBackend
		req     session.Request
		status  int
		code    string
		message string
	}{
		{
			name:    "empty description",
			backend: &stubBackend{},
			req:     session.Request{Description: "  "},
			status:  http.StatusBadRequest,
			code:    middleware.ErrCodeBadRequest,
			message: session.MsgEmptyDescription,
		},
		{
			name:    "bad constants",
			backend: &stubBackend{},
			req:     session.Request{Description: "transpose", Constants: "1, x"},
			status:  http.StatusBadRequest,
			code:    middleware.ErrCodeBadRequest,
			message: session.MsgInvalidConstants,
		},
		{
			name:    "circuit open",
			backend: &stubBackend{solveErr: backend.ErrCircuitOpen},
			req:     session.Request{Description: "transpose"},
			status:  http.StatusServiceUnavailable,
			code:    middleware.ErrCodeBackendUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t, tt.backend, nil)

			w := do(t, r, http.MethodPost, "/api/v1/synthesis", tt.req)
			require.Equal(t, tt.status, w.Code)
			apiErr := decodeError(t, w)
			assert.Equal(t, tt.code, apiErr.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, apiErr.Message)
			}
		})
	}
}

func TestSubmit_Accepted(t *testing.T) {
	r, svc := newTestRouter(t, &stubBackend{}, nil)

	w := do(t, r, http.MethodPost, "/api/v1/synthesis", session.Request{Description: "transpose"})
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		return !svc.Synthesis().Synthesizing
	}, time.Second, time.Millisecond)

	w = do(t, r, http.MethodPost, "/api/v1/synthesis/abort", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp AbortResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Aborted)
}

func TestDraft(t *testing.T) {
	r, svc := newTestRouter(t, &stubBackend{}, nil)

	w := do(t, r, http.MethodPost, "/api/v1/validations/draft", DraftRequest{Expression: identity})
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		d := svc.Draft()
		return !d.Pending && len(d.Results) > 0
	}, time.Second, time.Millisecond)

	w = do(t, r, http.MethodGet, "/api/v1/validations/draft", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"expression":"in1"`)
}

func TestProvenance_Errors(t *testing.T) {
	r, _ := newTestRouter(t, &stubBackend{}, nil)

	w := do(t, r, http.MethodPost, "/api/v1/provenance/trace", map[string]any{"example": 0, "solution": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code, "cell is required")

	w = do(t, r, http.MethodGet, "/api/v1/provenance/explain?example=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/provenance/explain?example=0&solution=0", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimit(t *testing.T) {
	r, _ := newTestRouter(t, &stubBackend{}, middleware.NewRateLimiter(60, 1))

	w := do(t, r, http.MethodGet, "/api/v1/testcases", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/testcases", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, middleware.ErrCodeRateLimited, decodeError(t, w).Code)

	w = do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code, "health is not rate limited")
}

func TestEvents_StreamsNotifications(t *testing.T) {
	r, svc := newTestRouter(t, &stubBackend{}, nil)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var hello EventMessage
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "hello", hello.Type)
	assert.NotEmpty(t, hello.ClientID)

	sent := svc.Notifier().Info("synthesis finished")
	for {
		var msg EventMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "notification" && msg.Notification != nil && msg.Notification.ID == sent.ID {
			assert.Equal(t, "synthesis finished", msg.Notification.Message)
			return
		}
	}
}
