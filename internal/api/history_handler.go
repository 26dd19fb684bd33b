package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mailquill/backend/internal/db"
	"github.com/mailquill/backend/internal/models"
)

// HistoryHandler serves recorded query runs for review and replay.
// GET /api/v1/history lists entries newest first, GET /api/v1/history/{id}
// returns one entry, DELETE /api/v1/history clears everything.
type HistoryHandler struct {
	store *db.HistoryStore
	log   *logrus.Logger
}

func NewHistoryHandler(store *db.HistoryStore, log *logrus.Logger) *HistoryHandler {
	return &HistoryHandler{store: store, log: log}
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/history"), "/")

	switch {
	case r.Method == http.MethodGet && id == "":
		h.list(w, r)
	case r.Method == http.MethodGet:
		h.get(w, r, id)
	case r.Method == http.MethodDelete && id == "":
		h.clear(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HistoryHandler) list(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListHistory(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to list history")
		WriteJSONError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}
	if entries == nil {
		entries = []models.QueryHistoryEntry{}
	}

	WriteJSONResponse(w, h.log, map[string]any{"history": entries})
}

func (h *HistoryHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	entry, err := h.store.GetHistoryEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrHistoryNotFound) {
			WriteJSONError(w, http.StatusNotFound, "History entry not found")
			return
		}
		h.log.WithError(err).Error("Failed to load history entry")
		WriteJSONError(w, http.StatusInternalServerError, "Failed to load history entry")
		return
	}

	WriteJSONResponse(w, h.log, map[string]any{"query": entry})
}

func (h *HistoryHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearHistory(r.Context()); err != nil {
		h.log.WithError(err).Error("Failed to clear history")
		WriteJSONError(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}

	WriteJSONResponse(w, h.log, map[string]any{"success": true})
}
