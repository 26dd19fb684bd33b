package api

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mailquill/backend/internal/imap"
)

// TestConnectionHandler probes the mailbox with the supplied credentials.
type TestConnectionHandler struct {
	fetcher imap.Fetcher
	log     *logrus.Logger
}

func NewTestConnectionHandler(fetcher imap.Fetcher, log *logrus.Logger) *TestConnectionHandler {
	return &TestConnectionHandler{fetcher: fetcher, log: log}
}

// ServeHTTP reports success or failure with a 200 either way so the client
// can show the server's error text instead of a generic HTTP failure.
func (h *TestConnectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.validate(); err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.fetcher.TestConnection(req.toCredentials()); err != nil {
		h.log.WithField("host", req.Host).WithError(err).Warn("Connection test failed")
		WriteJSONResponse(w, h.log, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	WriteJSONResponse(w, h.log, map[string]any{"success": true})
}
