// Package eventbus publishes synthesis session lifecycle events to NATS.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/intent/dashboard/internal/session"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubject is the subject prefix of session events; the event type is
// appended, e.g. "intent.session.completed".
const DefaultSubject = "intent.session"

// Bus wraps a NATS connection.
type Bus struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *zap.Logger
}

// Connect dials NATS. JetStream is optional: without it events are still
// published on core NATS.
func Connect(url string, logger *zap.Logger) (*Bus, error) {
	nc, err := nats.Connect(url,
		nats.Name("intent-dashboard"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	b := &Bus{conn: nc, logger: logger}
	js, err := nc.JetStream()
	if err != nil {
		logger.Warn("jetstream unavailable, publishing on core nats", zap.Error(err))
	} else {
		b.js = js
	}
	logger.Info("connected to nats", zap.String("url", nc.ConnectedUrl()))
	return b, nil
}

// EnsureStream makes sure a JetStream stream captures every subject under
// subject, so published events are retained. It is a no-op without
// JetStream.
func (b *Bus) EnsureStream(name, subject string) error {
	if b.js == nil {
		return nil
	}
	if _, err := b.js.StreamInfo(name); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("look up stream %s: %w", name, err)
	}
	_, err := b.js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{subject + ".>"},
		MaxAge:   24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", name, err)
	}
	b.logger.Info("created event stream", zap.String("stream", name), zap.String("subject", subject))
	return nil
}

// Ping checks that the connection is up.
func (b *Bus) Ping(ctx context.Context) error {
	if !b.conn.IsConnected() {
		return nats.ErrConnectionClosed
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(2 * time.Second)
	}
	return b.conn.FlushTimeout(time.Until(deadline))
}

// Close drains and closes the connection.
func (b *Bus) Close() {
	if err := b.conn.Drain(); err != nil {
		b.logger.Warn("nats drain failed", zap.Error(err))
		b.conn.Close()
	}
}

// msgPublisher is satisfied by *nats.Conn.
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// SessionPublisher implements session.EventPublisher on top of NATS.
type SessionPublisher struct {
	pub     msgPublisher
	subject string
	logger  *zap.Logger
}

// NewSessionPublisher publishes session events under subject.
func NewSessionPublisher(b *Bus, subject string, logger *zap.Logger) *SessionPublisher {
	return newSessionPublisher(b.conn, subject, logger)
}

func newSessionPublisher(pub msgPublisher, subject string, logger *zap.Logger) *SessionPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &SessionPublisher{pub: pub, subject: subject, logger: logger}
}

// PublishSessionEvent publishes event as JSON on "<subject>.<type>". The
// Nats-Msg-Id header lets a JetStream stream drop duplicates.
func (p *SessionPublisher) PublishSessionEvent(ctx context.Context, event session.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode session event: %w", err)
	}
	msg := nats.NewMsg(p.subject + "." + string(event.Type))
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())
	msg.Data = data
	if err := p.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	p.logger.Debug("published session event",
		zap.String("subject", msg.Subject),
		zap.String("session_id", string(event.SessionID)),
	)
	return nil
}
