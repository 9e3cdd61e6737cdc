package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/intent/dashboard/internal/session"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingConn struct {
	msgs []*nats.Msg
	err  error
}

func (r *recordingConn) PublishMsg(m *nats.Msg) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, m)
	return nil
}

func TestPublishSessionEvent(t *testing.T) {
	conn := &recordingConn{}
	p := newSessionPublisher(conn, "", zap.NewNop())
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := p.PublishSessionEvent(context.Background(), session.Event{
		Type:      session.EventCompleted,
		SessionID: "1714564800000",
		Solutions: 2,
		Time:      at,
	})
	require.NoError(t, err)
	require.Len(t, conn.msgs, 1)

	msg := conn.msgs[0]
	assert.Equal(t, "intent.session.completed", msg.Subject)
	assert.NotEmpty(t, msg.Header.Get(nats.MsgIdHdr))
	assert.JSONEq(t, `{"type":"completed","session_id":1714564800000,"solutions":2,"time":"2024-05-01T12:00:00Z"}`, string(msg.Data))

	var back session.Event
	require.NoError(t, json.Unmarshal(msg.Data, &back))
	assert.Equal(t, session.EventCompleted, back.Type)
}

func TestPublishSessionEvent_Errors(t *testing.T) {
	conn := &recordingConn{err: nats.ErrConnectionClosed}
	p := newSessionPublisher(conn, "dash", zap.NewNop())

	err := p.PublishSessionEvent(context.Background(), session.Event{Type: session.EventAborted})
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)
	assert.Contains(t, err.Error(), "dash.aborted")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.PublishSessionEvent(ctx, session.Event{Type: session.EventAborted})
	assert.True(t, errors.Is(err, context.Canceled))
}
