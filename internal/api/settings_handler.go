package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/mailquill/backend/internal/db"
	"github.com/mailquill/backend/internal/models"
)

// SettingsHandler stores the default account configuration so the user does
// not retype credentials for every query. The password is never echoed back;
// responses carry only whether one is set.
type SettingsHandler struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

func NewSettingsHandler(pool *pgxpool.Pool, log *logrus.Logger) *SettingsHandler {
	return &SettingsHandler{pool: pool, log: log}
}

// settingsResponse is the outbound shape with the password masked.
type settingsResponse struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Account       string `json:"account"`
	PasswordSet   bool   `json:"passwordSet"`
	DefaultFolder string `json:"defaultFolder"`
	MaxResults    int    `json:"maxResults"`
}

func maskSettings(s models.AccountSettings) settingsResponse {
	return settingsResponse{
		Host:          s.Host,
		Port:          s.Port,
		Account:       s.Username,
		PasswordSet:   s.Password != "",
		DefaultFolder: s.DefaultFolder,
		MaxResults:    s.MaxResults,
	}
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		h.save(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	settings, err := db.GetAccountSettings(r.Context(), h.pool)
	if err != nil {
		if errors.Is(err, db.ErrSettingsNotFound) {
			WriteJSONResponse(w, h.log, map[string]any{"settings": nil})
			return
		}
		h.log.WithError(err).Error("Failed to load settings")
		WriteJSONError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}

	WriteJSONResponse(w, h.log, map[string]any{"settings": maskSettings(*settings)})
}

func (h *SettingsHandler) save(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Host          string `json:"host"`
		Port          int    `json:"port"`
		Account       string `json:"account"`
		Secret        string `json:"secret"`
		DefaultFolder string `json:"defaultFolder"`
		MaxResults    int    `json:"maxResults"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Host == "" || req.Account == "" {
		WriteJSONError(w, http.StatusBadRequest, "host and account are required")
		return
	}
	if req.Port <= 0 || req.Port > 65535 {
		WriteJSONError(w, http.StatusBadRequest, "port must be between 1 and 65535")
		return
	}

	settings := models.AccountSettings{
		Host:          req.Host,
		Port:          req.Port,
		Username:      req.Account,
		Password:      req.Secret,
		DefaultFolder: req.DefaultFolder,
		MaxResults:    req.MaxResults,
	}

	// A blank secret means "keep what is stored", so an update form does
	// not have to resend the password to change an unrelated field.
	if settings.Password == "" {
		existing, err := db.GetAccountSettings(r.Context(), h.pool)
		if err != nil && !errors.Is(err, db.ErrSettingsNotFound) {
			h.log.WithError(err).Error("Failed to load existing settings")
			WriteJSONError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
		if existing != nil {
			settings.Password = existing.Password
		}
	}

	if err := db.SaveAccountSettings(r.Context(), h.pool, &settings); err != nil {
		h.log.WithError(err).Error("Failed to save settings")
		WriteJSONError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	WriteJSONResponse(w, h.log, map[string]any{"settings": maskSettings(settings)})
}
