// Package logging configures the process logger and bridges log records to
// connected UI clients.
package logging

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mailquill/backend/internal/websocket"
)

// NewLogger builds the process logger. Production logs JSON; development
// keeps the human-readable text format.
func NewLogger(environment string) *logrus.Logger {
	log := logrus.New()
	if environment == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

// HubHook forwards warning-and-above log records to the WebSocket hub so
// the UI can surface them. Writes are fire-and-forget; a hook failure never
// affects the operation that logged.
type HubHook struct {
	hub *websocket.Hub
}

// NewHubHook creates a hook that mirrors log records to the hub.
func NewHubHook(hub *websocket.Hub) *HubHook {
	return &HubHook{hub: hub}
}

// Levels reports which log levels the hook receives.
func (h *HubHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

type logEvent struct {
	Type    string    `json:"type"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Fire mirrors one log record to the hub.
func (h *HubHook) Fire(entry *logrus.Entry) error {
	payload, err := json.Marshal(logEvent{
		Type:    "log",
		Level:   entry.Level.String(),
		Message: entry.Message,
		Time:    entry.Time,
	})
	if err != nil {
		// Never let a marshalling problem surface through the logger.
		return nil
	}

	h.hub.Broadcast(payload)
	return nil
}
