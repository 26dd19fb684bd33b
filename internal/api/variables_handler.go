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
)

// VariablesHandler manages the reusable prompt substitution values.
type VariablesHandler struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

func NewVariablesHandler(pool *pgxpool.Pool, log *logrus.Logger) *VariablesHandler {
	return &VariablesHandler{pool: pool, log: log}
}

func (h *VariablesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/variables"), "/")

	switch {
	case r.Method == http.MethodGet && key == "":
		h.list(w, r)
	case r.Method == http.MethodPost && key == "":
		h.save(w, r)
	case r.Method == http.MethodDelete && key != "":
		h.delete(w, r, key)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *VariablesHandler) list(w http.ResponseWriter, r *http.Request) {
	variables, err := db.ListVariables(r.Context(), h.pool)
	if err != nil {
		h.log.WithError(err).Error("Failed to list variables")
		WriteJSONError(w, http.StatusInternalServerError, "Failed to list variables")
		return
	}
	if variables == nil {
		variables = []models.PromptVariable{}
	}

	WriteJSONResponse(w, h.log, map[string]any{"variables": variables})
}

func (h *VariablesHandler) save(w http.ResponseWriter, r *http.Request) {
	var variable models.PromptVariable
	if err := json.NewDecoder(r.Body).Decode(&variable); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	variable.Key = strings.TrimSpace(variable.Key)
	if variable.Key == "" {
		WriteJSONError(w, http.StatusBadRequest, "key is required")
		return
	}

	if err := db.SaveVariable(r.Context(), h.pool, &variable); err != nil {
		h.log.WithError(err).Error("Failed to save variable")
		WriteJSONError(w, http.StatusInternalServerError, "Failed to save variable")
		return
	}

	WriteJSONResponse(w, h.log, map[string]any{"variable": variable})
}

func (h *VariablesHandler) delete(w http.ResponseWriter, r *http.Request, key string) {
	if err := db.DeleteVariable(r.Context(), h.pool, key); err != nil {
		if errors.Is(err, db.ErrVariableNotFound) {
			WriteJSONError(w, http.StatusNotFound, "Variable not found")
			return
		}
		h.log.WithError(err).Error("Failed to delete variable")
		WriteJSONError(w, http.StatusInternalServerError, "Failed to delete variable")
		return
	}

	WriteJSONResponse(w, h.log, map[string]any{"success": true})
}
