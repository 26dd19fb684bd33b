package api

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/mailquill/backend/internal/websocket"
)

// WSHandler upgrades HTTP connections for the progress and log stream.
type WSHandler struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
	log      *logrus.Logger
}

func NewWSHandler(hub *websocket.Hub, log *logrus.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Single-user tool served from the same origin as the UI.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// ServeHTTP upgrades the connection and holds it open. The stream is
// server-to-client only; inbound messages are read and discarded to keep
// control frames flowing.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := h.hub.Register(conn)
	if client == nil {
		return
	}
	defer h.hub.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
