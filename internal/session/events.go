package session

import (
	"context"
	"time"

	"github.com/intent/dashboard/internal/models"
)

// EventType names a session lifecycle transition.
type EventType string

const (
	EventSubmitted EventType = "submitted"
	EventSolutions EventType = "solutions"
	EventCompleted EventType = "completed"
	EventAborted   EventType = "aborted"
	EventFailed    EventType = "failed"
)

// Event is published on every lifecycle transition.
type Event struct {
	Type      EventType        `json:"type"`
	SessionID models.SessionID `json:"session_id,omitempty"`
	Solutions int              `json:"solutions"`
	Time      time.Time        `json:"time"`
}

// EventPublisher receives lifecycle events. Publishing is best effort.
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, event Event) error
}
