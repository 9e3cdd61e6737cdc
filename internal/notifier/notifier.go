// Package notifier broadcasts user-facing notifications to every connected
// dashboard client.
package notifier

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Level is the severity shown by the client.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// historySize bounds the notifications replayed to a new subscriber.
const historySize = 32

// Notification is one message for the user.
type Notification struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier fans notifications out to all subscribed listeners.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Notification]struct{}
	history   []Notification
	logger    *zap.Logger
}

// New creates a new Notifier instance.
func New(logger *zap.Logger) *Notifier {
	return &Notifier{
		listeners: make(map[chan Notification]struct{}),
		logger:    logger,
	}
}

// Subscribe returns a channel that receives notifications.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (n *Notifier) Subscribe() chan Notification {
	ch := make(chan Notification, 16)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Notification) {
	n.mu.Lock()
	_, ok := n.listeners[ch]
	delete(n.listeners, ch)
	n.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Error broadcasts an error notification.
func (n *Notifier) Error(message string) Notification {
	return n.Notify(LevelError, message)
}

// Info broadcasts an informational notification.
func (n *Notifier) Info(message string) Notification {
	return n.Notify(LevelInfo, message)
}

// Notify records and broadcasts a notification.
// Non-blocking: a listener whose buffer is full misses it.
func (n *Notifier) Notify(level Level, message string) Notification {
	note := Notification{
		ID:      uuid.NewString(),
		Level:   level,
		Message: message,
		Time:    time.Now().UTC(),
	}
	n.logger.Info("notification",
		zap.String("level", string(level)),
		zap.String("message", message),
	)

	n.mu.Lock()
	n.history = append(n.history, note)
	if len(n.history) > historySize {
		n.history = n.history[len(n.history)-historySize:]
	}
	n.mu.Unlock()

	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.listeners {
		select {
		case ch <- note:
		default:
			n.logger.Warn("dropping notification for slow listener", zap.String("id", note.ID))
		}
	}
	return note
}

// Recent returns the retained notifications, oldest first.
func (n *Notifier) Recent() []Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Notification(nil), n.history...)
}
