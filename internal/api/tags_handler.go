package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/mailquill/backend/internal/db"
	"github.com/mailquill/backend/internal/models"
	"github.com/mailquill/backend/internal/tags"
)

// TagsHandler manages tag definitions. The marker is always derived from the
// name on save, so [[Name]] in an AI response and the stored definition can
// never drift apart.
type TagsHandler struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

func NewTagsHandler(pool *pgxpool.Pool, log *logrus.Logger) *TagsHandler {
	return &TagsHandler{pool: pool, log: log}
}

func (h *TagsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/tags"), "/")

	switch {
	case r.Method == http.MethodGet && name == "":
		h.list(w, r)
	case r.Method == http.MethodPost && name == "":
		h.save(w, r)
	case r.Method == http.MethodDelete && name != "":
		h.delete(w, r, name)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TagsHandler) list(w http.ResponseWriter, r *http.Request) {
	defs, err := db.ListTags(r.Context(), h.pool)
	if err != nil {
		h.log.WithError(err).Error("Failed to list tags")
		WriteJSONError(w, http.StatusInternalServerError, "Failed to list tags")
		return
	}
	if defs == nil {
		defs = []models.Tag{}
	}

	WriteJSONResponse(w, h.log, map[string]any{"tags": defs})
}

func (h *TagsHandler) save(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		WriteJSONError(w, http.StatusBadRequest, "name is required")
		return
	}

	tag := models.Tag{
		Name:   req.Name,
		Marker: tags.MarkerFor(req.Name),
		Color:  req.Color,
	}

	if err := db.SaveTag(r.Context(), h.pool, &tag); err != nil {
		if errors.Is(err, db.ErrDuplicateTag) {
			WriteJSONError(w, http.StatusConflict, "A tag with this name already exists")
			return
		}
		h.log.WithError(err).Error("Failed to save tag")
		WriteJSONError(w, http.StatusInternalServerError, "Failed to save tag")
		return
	}

	WriteJSONResponse(w, h.log, map[string]any{"tag": tag})
}

func (h *TagsHandler) delete(w http.ResponseWriter, r *http.Request, name string) {
	if err := db.DeleteTag(r.Context(), h.pool, name); err != nil {
		if errors.Is(err, db.ErrTagNotFound) {
			WriteJSONError(w, http.StatusNotFound, "Tag not found")
			return
		}
		h.log.WithError(err).Error("Failed to delete tag")
		WriteJSONError(w, http.StatusInternalServerError, "Failed to delete tag")
		return
	}

	WriteJSONResponse(w, h.log, map[string]any{"success": true})
}
