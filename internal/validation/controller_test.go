package validation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/intent/dashboard/internal/models"
	"github.com/intent/dashboard/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClient answers /validate by echoing each expression as the eval
// output. Requests whose first solution is listed in gates block until the
// gate is closed.
type fakeClient struct {
	mu    sync.Mutex
	calls []models.ValidateRequest
	gates map[string]chan struct{}
	err   error
}

func newFakeClient() *fakeClient {
	return &fakeClient{gates: map[string]chan struct{}{}}
}

func (f *fakeClient) gate(expr string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[expr] = ch
	return ch
}

func (f *fakeClient) Validate(ctx context.Context, req models.ValidateRequest) (models.Results, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	gate := f.gates[req.Solutions["solution0"]]
	err := f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	results := models.Results{}
	for i := range req.Inputs {
		row := map[string]models.Evaluation{}
		for key, expr := range req.Solutions {
			row[key] = models.Evaluation{Match: expr == "ok", EvalOutput: expr, Exception: expr == "boom"}
		}
		results[models.ExampleKey(i)] = row
	}
	return results, nil
}

func (f *fakeClient) Solve(context.Context, models.SolveRequest) (models.SolveResponse, error) {
	return models.SolveResponse{}, errors.New("not implemented")
}

func (f *fakeClient) Poll(context.Context, models.SessionID) (models.PollResponse, error) {
	return models.PollResponse{}, errors.New("not implemented")
}

func (f *fakeClient) Abort(context.Context, models.SessionID) error { return nil }

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeClient) lastCall() models.ValidateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type memCache struct {
	mu sync.Mutex
	m  map[string]models.Results
}

func (c *memCache) Get(_ context.Context, key string) (models.Results, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.m[key]
	return r, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, r models.Results) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = r
	return nil
}

func newTestController(t *testing.T, client *fakeClient, cache Cache) (*Controller, *notifier.Notifier) {
	t.Helper()
	n := notifier.New(zap.NewNop())
	c := NewController(client, n, cache, 20*time.Millisecond, time.Second, zap.NewNop())
	t.Cleanup(c.Close)
	return c, n
}

func batch(solutions ...string) Batch {
	b := Batch{
		Inputs:    models.LiteralTable{{"[1]"}, {"[2]"}},
		Outputs:   models.LiteralTable{{"[1]"}, {"[2]"}},
		Valid:     true,
		Solutions: map[string]string{},
	}
	for i, s := range solutions {
		b.Solutions[models.SolutionKey(i)] = s
	}
	return b
}

func TestValidateAll_NoSolutionsIsNoop(t *testing.T) {
	client := newFakeClient()
	c, _ := newTestController(t, client, nil)

	results, err := c.ValidateAll(context.Background(), batch())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, client.callCount())
}

func TestValidateAll_InvalidTestCases(t *testing.T) {
	client := newFakeClient()
	c, _ := newTestController(t, client, nil)
	b := batch("ok")
	b.Valid = false

	_, err := c.ValidateAll(context.Background(), b)
	assert.ErrorIs(t, err, ErrInvalidTestCases)
	assert.Zero(t, client.callCount())
}

func TestValidateAll_PublishesResults(t *testing.T) {
	client := newFakeClient()
	c, _ := newTestController(t, client, nil)
	b := batch("ok", "nope")
	b.SessionID = "1700000000123"

	results, err := c.ValidateAll(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 2, results.ExampleCount())

	state := c.State()
	assert.Equal(t, results, state.Results)
	assert.False(t, state.Validating)
	assert.NotNil(t, state.UpdatedAt)

	req := client.lastCall()
	require.NotNil(t, req.SessionID)
	assert.Equal(t, models.SessionID("1700000000123"), *req.SessionID)
}

func TestValidateAll_FailureKeepsPreviousMap(t *testing.T) {
	client := newFakeClient()
	c, n := newTestController(t, client, nil)

	before, err := c.ValidateAll(context.Background(), batch("ok"))
	require.NoError(t, err)

	client.mu.Lock()
	client.err = errors.New("connection reset")
	client.mu.Unlock()

	_, err = c.ValidateAll(context.Background(), batch("ok", "other"))
	require.Error(t, err)
	assert.Equal(t, before, c.State().Results)
	require.Len(t, n.Recent(), 1)
	assert.Equal(t, MsgValidateFailed, n.Recent()[0].Message)
}

func TestValidateAll_StaleResponseIsDropped(t *testing.T) {
	client := newFakeClient()
	c, _ := newTestController(t, client, nil)
	gate := client.gate("slow")

	errs := make(chan error, 1)
	go func() {
		_, err := c.ValidateAll(context.Background(), batch("slow"))
		errs <- err
	}()
	require.Eventually(t, func() bool { return client.callCount() == 1 }, time.Second, time.Millisecond)

	newer, err := c.ValidateAll(context.Background(), batch("ok"))
	require.NoError(t, err)

	close(gate)
	assert.ErrorIs(t, <-errs, ErrSuperseded)
	assert.Equal(t, newer, c.State().Results)
}

func TestValidateAll_ResetDropsInFlight(t *testing.T) {
	client := newFakeClient()
	c, _ := newTestController(t, client, nil)
	gate := client.gate("slow")

	errs := make(chan error, 1)
	go func() {
		_, err := c.ValidateAll(context.Background(), batch("slow"))
		errs <- err
	}()
	require.Eventually(t, func() bool { return client.callCount() == 1 }, time.Second, time.Millisecond)

	c.Reset()
	close(gate)
	assert.ErrorIs(t, <-errs, ErrSuperseded)
	assert.Empty(t, c.State().Results)
}

func TestValidateAll_IdenticalRequestsHitCache(t *testing.T) {
	client := newFakeClient()
	c, _ := newTestController(t, client, &memCache{m: map[string]models.Results{}})

	first, err := c.ValidateAll(context.Background(), batch("ok", "nope"))
	require.NoError(t, err)
	second, err := c.ValidateAll(context.Background(), batch("ok", "nope"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.callCount())
}

func TestValidateDraft_Debounces(t *testing.T) {
	client := newFakeClient()
	c, _ := newTestController(t, client, nil)

	c.ValidateDraft("o", batch())
	c.ValidateDraft("ok", batch())
	d := c.ValidateDraft("boom", batch())
	assert.True(t, d.Pending)

	require.Eventually(t, func() bool { return !c.CurrentDraft().Pending }, time.Second, time.Millisecond)
	assert.Equal(t, 1, client.callCount())
	assert.Equal(t, map[string]string{"solution0": "boom"}, client.lastCall().Solutions)

	d = c.CurrentDraft()
	assert.Equal(t, "Exception when evaluating test case 1: boom", d.Error)
	assert.Equal(t, 2, d.Results.ExampleCount())
}

func TestValidateDraft_BlankCancelsPending(t *testing.T) {
	client := newFakeClient()
	c, _ := newTestController(t, client, nil)

	c.ValidateDraft("ok", batch())
	d := c.ValidateDraft("  ", batch())
	assert.False(t, d.Pending)

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, client.callCount())
	assert.Empty(t, c.CurrentDraft().Error)
}

func TestValidateDraft_StaleResponseIsDropped(t *testing.T) {
	client := newFakeClient()
	c, _ := newTestController(t, client, nil)
	gate := client.gate("boom")

	c.ValidateDraft("boom", batch())
	require.Eventually(t, func() bool { return client.callCount() == 1 }, time.Second, time.Millisecond)

	c.ValidateDraft("ok", batch())
	close(gate)

	require.Eventually(t, func() bool {
		d := c.CurrentDraft()
		return !d.Pending && d.Expression == "ok"
	}, time.Second, time.Millisecond)
	assert.Empty(t, c.CurrentDraft().Error)
	assert.Equal(t, 2, client.callCount())
}

func TestValidateDraft_InvalidTestCases(t *testing.T) {
	client := newFakeClient()
	c, _ := newTestController(t, client, nil)
	b := batch()
	b.Valid = false

	c.ValidateDraft("ok", b)
	require.Eventually(t, func() bool { return !c.CurrentDraft().Pending }, time.Second, time.Millisecond)
	assert.Equal(t, MsgDraftInvalidInputs, c.CurrentDraft().Error)
	assert.Zero(t, client.callCount())
}

func TestValidateDraft_TransportFailureNotifies(t *testing.T) {
	client := newFakeClient()
	client.err = errors.New("connection refused")
	c, n := newTestController(t, client, nil)

	c.ValidateDraft("ok", batch())
	require.Eventually(t, func() bool { return !c.CurrentDraft().Pending }, time.Second, time.Millisecond)
	assert.Contains(t, c.CurrentDraft().Error, "connection refused")
	require.Eventually(t, func() bool { return len(n.Recent()) == 1 }, time.Second, time.Millisecond)
}
