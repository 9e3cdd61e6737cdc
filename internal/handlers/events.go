package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/intent/dashboard/internal/notifier"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// EventMessage is one frame sent to a connected dashboard
type EventMessage struct {
	Type         string                 `json:"type"`
	ClientID     string                 `json:"client_id,omitempty"`
	Notification *notifier.Notification `json:"notification,omitempty"`
}

// EventsHandler streams notifications over a websocket
type EventsHandler struct {
	notifier *notifier.Notifier
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewEventsHandler creates a new events handler. An empty origin list admits
// any origin.
func NewEventsHandler(n *notifier.Notifier, origins []string, logger *zap.Logger) *EventsHandler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &EventsHandler{
		notifier: n,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// Stream upgrades the connection and forwards every notification until the
// client disconnects. Recent notifications are replayed first.
// @Summary Notification stream (websocket)
// @Tags events
// @Router /events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade the websocket", zap.Error(err))
		return
	}

	clientID := uuid.NewString()
	logger := h.logger.With(zap.String("client_id", clientID))
	logger.Info("websocket client connected")

	ch := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(ch)

	// The read side only watches for close frames and pongs.
	closed := make(chan struct{})
	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
	defer func() {
		ws.Close()
		<-closed
	}()

	send := func(msg EventMessage) bool {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(msg); err != nil {
			logger.Debug("websocket write failed", zap.Error(err))
			return false
		}
		return true
	}

	if !send(EventMessage{Type: "hello", ClientID: clientID}) {
		return
	}
	for _, n := range h.notifier.Recent() {
		if !send(EventMessage{Type: "notification", Notification: &n}) {
			return
		}
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			logger.Info("websocket client disconnected")
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if !send(EventMessage{Type: "notification", Notification: &n}) {
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
