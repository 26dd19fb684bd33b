package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mailquill/backend/internal/models"
)

// dateLayout is the wire format for day-granularity filter dates.
const dateLayout = "2006-01-02"

// WriteJSONResponse encodes the response to a buffer first to prevent
// partial writes, then sends it. Returns false when encoding failed and an
// error response was already written.
func WriteJSONResponse(w http.ResponseWriter, log *logrus.Logger, response any) bool {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(response); err != nil {
		log.WithError(err).Error("Failed to encode response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.WithError(err).Error("Failed to write response")
		return false
	}

	return true
}

// WriteJSONError sends {"error": message} with the given status. The raw
// underlying error text is preserved, never reworded.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// credentialsRequest carries the per-request account fields shared by every
// mailbox-touching endpoint.
type credentialsRequest struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Account string `json:"account"`
	Secret  string `json:"secret"`
}

func (r *credentialsRequest) validate() error {
	if r.Host == "" {
		return fmt.Errorf("host is required")
	}
	if r.Port <= 0 || r.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if r.Account == "" {
		return fmt.Errorf("account is required")
	}
	return nil
}

func (r *credentialsRequest) toCredentials() models.Credentials {
	return models.Credentials{
		Host:     r.Host,
		Port:     r.Port,
		Username: r.Account,
		Password: r.Secret,
	}
}

// parseCriteria builds search criteria from the wire filter fields.
func parseCriteria(status, startDate, endDate, subject string) (models.SearchCriteria, error) {
	criteria := models.SearchCriteria{Subject: subject}

	switch status {
	case "", string(models.StatusAll):
		criteria.Status = models.StatusAll
	case string(models.StatusRead):
		criteria.Status = models.StatusRead
	case string(models.StatusUnread):
		criteria.Status = models.StatusUnread
	default:
		return criteria, fmt.Errorf("invalid status %q: must be all, read or unread", status)
	}

	if startDate != "" {
		parsed, err := time.ParseInLocation(dateLayout, startDate, time.UTC)
		if err != nil {
			return criteria, fmt.Errorf("invalid startDate %q: %w", startDate, err)
		}
		criteria.StartDate = &parsed
	}

	if endDate != "" {
		parsed, err := time.ParseInLocation(dateLayout, endDate, time.UTC)
		if err != nil {
			return criteria, fmt.Errorf("invalid endDate %q: %w", endDate, err)
		}
		criteria.EndDate = &parsed
	}

	return criteria, nil
}
