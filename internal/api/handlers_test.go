package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailquill/backend/internal/imap"
	"github.com/mailquill/backend/internal/models"
)

type stubFetcher struct {
	connectErr error
	folders    []models.Folder
	foldersErr error
	emails     []models.Email
	fetchErr   error
	lastFetch  imap.FetchRequest
}

func (s *stubFetcher) TestConnection(models.Credentials) error {
	return s.connectErr
}

func (s *stubFetcher) ListFolders(models.Credentials) ([]models.Folder, error) {
	return s.folders, s.foldersErr
}

func (s *stubFetcher) FetchEmails(_ context.Context, req imap.FetchRequest) ([]models.Email, error) {
	s.lastFetch = req
	return s.emails, s.fetchErr
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

const validCreds = `"host":"imap.example.com","port":993,"account":"me@example.com","secret":"pw"`

func TestTestConnectionHandler(t *testing.T) {
	t.Run("success reports success true", func(t *testing.T) {
		handler := NewTestConnectionHandler(&stubFetcher{}, quietLogger())

		recorder := postJSON(t, handler, "/api/v1/test-connection", `{`+validCreds+`}`)

		assert.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, true, body["success"])
	})

	t.Run("failure is a 200 carrying the error text", func(t *testing.T) {
		handler := NewTestConnectionHandler(&stubFetcher{connectErr: errors.New("login rejected")}, quietLogger())

		recorder := postJSON(t, handler, "/api/v1/test-connection", `{`+validCreds+`}`)

		assert.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "login rejected", body["error"])
	})

	t.Run("invalid credentials are a 400", func(t *testing.T) {
		handler := NewTestConnectionHandler(&stubFetcher{}, quietLogger())

		recorder := postJSON(t, handler, "/api/v1/test-connection", `{"host":"","port":993}`)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("GET is rejected", func(t *testing.T) {
		handler := NewTestConnectionHandler(&stubFetcher{}, quietLogger())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/test-connection", nil)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
	})
}

func TestFoldersHandler(t *testing.T) {
	t.Run("lists folders", func(t *testing.T) {
		fetcher := &stubFetcher{folders: []models.Folder{{Path: "INBOX"}, {Path: "Work"}}}
		handler := NewFoldersHandler(fetcher, quietLogger())

		recorder := postJSON(t, handler, "/api/v1/folders", `{`+validCreds+`}`)

		assert.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Len(t, body["folders"], 2)
	})

	t.Run("listing failure maps to 502", func(t *testing.T) {
		fetcher := &stubFetcher{foldersErr: errors.New("no route to host")}
		handler := NewFoldersHandler(fetcher, quietLogger())

		recorder := postJSON(t, handler, "/api/v1/folders", `{`+validCreds+`}`)

		assert.Equal(t, http.StatusBadGateway, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Equal(t, "no route to host", body["error"])
	})
}

func TestFetchHandler(t *testing.T) {
	sample := []models.Email{
		{ID: "INBOX:2", Subject: "Two", Date: time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC), Folder: "INBOX"},
		{ID: "INBOX:1", Subject: "One", Date: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), Folder: "INBOX"},
	}

	t.Run("returns matching emails", func(t *testing.T) {
		fetcher := &stubFetcher{emails: sample}
		handler := NewFetchHandler(fetcher, quietLogger())

		recorder := postJSON(t, handler, "/api/v1/fetch",
			`{`+validCreds+`,"folder":"INBOX","status":"unread","maxResults":10}`)

		assert.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Len(t, body["emails"], 2)
		assert.Equal(t, "INBOX", fetcher.lastFetch.Folder)
		assert.Equal(t, models.StatusUnread, fetcher.lastFetch.Criteria.Status)
		assert.Equal(t, 10, fetcher.lastFetch.MaxResults)
	})

	t.Run("date filters reach the fetch request", func(t *testing.T) {
		fetcher := &stubFetcher{}
		handler := NewFetchHandler(fetcher, quietLogger())

		recorder := postJSON(t, handler, "/api/v1/fetch",
			`{`+validCreds+`,"startDate":"2026-03-01","endDate":"2026-03-15"}`)

		assert.Equal(t, http.StatusOK, recorder.Code)
		require.NotNil(t, fetcher.lastFetch.Criteria.StartDate)
		assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), *fetcher.lastFetch.Criteria.StartDate)
	})

	t.Run("empty result is an empty array, not null", func(t *testing.T) {
		handler := NewFetchHandler(&stubFetcher{}, quietLogger())

		recorder := postJSON(t, handler, "/api/v1/fetch", `{`+validCreds+`}`)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), `"emails":[]`)
	})

	t.Run("bad date is a 400", func(t *testing.T) {
		handler := NewFetchHandler(&stubFetcher{}, quietLogger())

		recorder := postJSON(t, handler, "/api/v1/fetch", `{`+validCreds+`,"startDate":"yesterday"}`)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("fetch failure maps to 502 with the error text", func(t *testing.T) {
		fetcher := &stubFetcher{fetchErr: errors.New("folder \"X\": failed to open")}
		handler := NewFetchHandler(fetcher, quietLogger())

		recorder := postJSON(t, handler, "/api/v1/fetch", `{`+validCreds+`}`)

		assert.Equal(t, http.StatusBadGateway, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Contains(t, body["error"], "failed to open")
	})

	t.Run("groupThreads collapses a conversation", func(t *testing.T) {
		fetcher := &stubFetcher{emails: []models.Email{
			{ID: "INBOX:1", ThreadID: "t", Subject: "A", Date: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), Folder: "INBOX"},
			{ID: "INBOX:2", ThreadID: "t", Subject: "Re: A", Date: time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC), Folder: "INBOX"},
		}}
		handler := NewFetchHandler(fetcher, quietLogger())

		recorder := postJSON(t, handler, "/api/v1/fetch", `{`+validCreds+`,"groupThreads":true}`)

		assert.Equal(t, http.StatusOK, recorder.Code)
		body := decodeBody(t, recorder)
		assert.Len(t, body["emails"], 1)
		assert.True(t, fetcher.lastFetch.ResolveThreads)
	})
}
