package api

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mailquill/backend/internal/imap"
)

// FoldersHandler enumerates the selectable folders of an account.
type FoldersHandler struct {
	fetcher imap.Fetcher
	log     *logrus.Logger
}

func NewFoldersHandler(fetcher imap.Fetcher, log *logrus.Logger) *FoldersHandler {
	return &FoldersHandler{fetcher: fetcher, log: log}
}

func (h *FoldersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	folders, err := h.fetcher.ListFolders(req.toCredentials())
	if err != nil {
		h.log.WithField("host", req.Host).WithError(err).Warn("Folder listing failed")
		WriteJSONError(w, http.StatusBadGateway, err.Error())
		return
	}

	WriteJSONResponse(w, h.log, map[string]any{"folders": folders})
}
