package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/mailquill/backend/internal/db"
	"github.com/mailquill/backend/internal/imap"
	"github.com/mailquill/backend/internal/models"
	"github.com/mailquill/backend/internal/query"
)

// queryRequest extends a fetch request with processing instructions.
type queryRequest struct {
	fetchRequest
	Prompt string `json:"prompt"`
	Mode   string `json:"mode"`
}

// QueryHandler runs the full fetch-process-correlate pipeline.
type QueryHandler struct {
	runner *query.Runner
	pool   *pgxpool.Pool
	log    *logrus.Logger
}

func NewQueryHandler(runner *query.Runner, pool *pgxpool.Pool, log *logrus.Logger) *QueryHandler {
	return &QueryHandler{runner: runner, pool: pool, log: log}
}

func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.validate(); err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Prompt == "" {
		WriteJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	mode, err := parseMode(req.Mode)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	fetchReq, err := req.toFetchRequest()
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	tagDefs, err := db.ListTags(r.Context(), h.pool)
	if err != nil {
		h.log.WithError(err).Error("Failed to load tags")
		WriteJSONError(w, http.StatusInternalServerError, "Failed to load tag definitions")
		return
	}

	variables, err := db.ListVariables(r.Context(), h.pool)
	if err != nil {
		h.log.WithError(err).Error("Failed to load prompt variables")
		WriteJSONError(w, http.StatusInternalServerError, "Failed to load prompt variables")
		return
	}

	entry, err := h.runner.Run(r.Context(), query.Request{
		Fetch:  fetchReq,
		Prompt: req.Prompt,
		Options: models.QueryOptions{
			Mode:         mode,
			GroupThreads: req.GroupThreads,
		},
		Variables: variables,
		Tags:      tagDefs,
	})
	if err != nil {
		h.log.WithField("host", req.Host).WithError(err).Warn("Query failed")
		status := http.StatusBadGateway
		var connErr *imap.ConnectionError
		if !errors.As(err, &connErr) && !isFolderError(err) {
			status = http.StatusInternalServerError
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": err.Error(),
			"query": entry,
		})
		return
	}

	WriteJSONResponse(w, h.log, map[string]any{"query": entry})
}

func parseMode(mode string) (models.ProcessingMode, error) {
	switch mode {
	case "", string(models.ModeIndividual):
		return models.ModeIndividual, nil
	case string(models.ModeCombined):
		return models.ModeCombined, nil
	default:
		return "", errors.New("invalid mode: must be combined or individual")
	}
}

func isFolderError(err error) bool {
	var folderErr *imap.FolderError
	return errors.As(err, &folderErr)
}
