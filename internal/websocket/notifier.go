package websocket

import (
	"encoding/json"

	"github.com/mailquill/backend/internal/query"
)

// QueryNotifier bridges query progress events onto the hub so connected
// clients see the run move through its phases live.
type QueryNotifier struct {
	hub *Hub
}

func NewQueryNotifier(hub *Hub) *QueryNotifier {
	return &QueryNotifier{hub: hub}
}

// Notify broadcasts the event. Marshal failures are impossible for this
// payload shape, so they are silently dropped rather than surfaced.
func (n *QueryNotifier) Notify(event query.ProgressEvent) {
	payload, err := json.Marshal(struct {
		Type   string `json:"type"`
		Phase  string `json:"phase"`
		Detail string `json:"detail,omitempty"`
	}{
		Type:   "progress",
		Phase:  string(event.Phase),
		Detail: event.Detail,
	})
	if err != nil {
		return
	}

	n.hub.Broadcast(payload)
}

var _ query.Notifier = (*QueryNotifier)(nil)
