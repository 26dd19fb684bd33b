package api

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mailquill/backend/internal/imap"
	"github.com/mailquill/backend/internal/models"
)

// fetchRequest is the wire shape for a retrieval-only run.
type fetchRequest struct {
	credentialsRequest
	Folder            string `json:"folder"`
	FetchAllFolders   bool   `json:"fetchAllFolders"`
	StartDate         string `json:"startDate"`
	EndDate           string `json:"endDate"`
	Status            string `json:"status"`
	SubjectSearchTerm string `json:"subjectSearchTerm"`
	MaxResults        int    `json:"maxResults"`
	GroupThreads      bool   `json:"groupThreads"`
}

func (r *fetchRequest) toFetchRequest() (imap.FetchRequest, error) {
	criteria, err := parseCriteria(r.Status, r.StartDate, r.EndDate, r.SubjectSearchTerm)
	if err != nil {
		return imap.FetchRequest{}, err
	}

	return imap.FetchRequest{
		Credentials:     r.toCredentials(),
		Folder:          r.Folder,
		FetchAllFolders: r.FetchAllFolders,
		Criteria:        criteria,
		MaxResults:      r.MaxResults,
		ResolveThreads:  r.GroupThreads,
	}, nil
}

// FetchHandler retrieves matching messages without running any processing.
type FetchHandler struct {
	fetcher imap.Fetcher
	log     *logrus.Logger
}

func NewFetchHandler(fetcher imap.Fetcher, log *logrus.Logger) *FetchHandler {
	return &FetchHandler{fetcher: fetcher, log: log}
}

func (h *FetchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.validate(); err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	fetchReq, err := req.toFetchRequest()
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	emails, err := h.fetcher.FetchEmails(r.Context(), fetchReq)
	if err != nil {
		h.log.WithField("host", req.Host).WithError(err).Warn("Fetch failed")
		WriteJSONError(w, http.StatusBadGateway, err.Error())
		return
	}

	if req.GroupThreads {
		emails = imap.GroupMessages(emails)
	}
	if emails == nil {
		emails = []models.Email{}
	}

	WriteJSONResponse(w, h.log, map[string]any{"emails": emails})
}
