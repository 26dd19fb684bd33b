package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailquill/backend/internal/models"
)

func TestCredentialsRequestValidate(t *testing.T) {
	valid := credentialsRequest{Host: "imap.example.com", Port: 993, Account: "me@example.com", Secret: "s"}

	t.Run("valid request passes", func(t *testing.T) {
		assert.NoError(t, valid.validate())
	})

	t.Run("missing host rejected", func(t *testing.T) {
		req := valid
		req.Host = ""
		assert.Error(t, req.validate())
	})

	t.Run("port out of range rejected", func(t *testing.T) {
		req := valid
		req.Port = 0
		assert.Error(t, req.validate())

		req.Port = 70000
		assert.Error(t, req.validate())
	})

	t.Run("missing account rejected", func(t *testing.T) {
		req := valid
		req.Account = ""
		assert.Error(t, req.validate())
	})
}

func TestParseCriteria(t *testing.T) {
	t.Run("defaults to all statuses with no dates", func(t *testing.T) {
		criteria, err := parseCriteria("", "", "", "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusAll, criteria.Status)
		assert.Nil(t, criteria.StartDate)
		assert.Nil(t, criteria.EndDate)
	})

	t.Run("parses status and dates", func(t *testing.T) {
		criteria, err := parseCriteria("unread", "2026-03-01", "2026-03-15", "invoice")
		require.NoError(t, err)
		assert.Equal(t, models.StatusUnread, criteria.Status)
		assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), *criteria.StartDate)
		assert.Equal(t, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC), *criteria.EndDate)
		assert.Equal(t, "invoice", criteria.Subject)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := parseCriteria("starred", "", "", "")
		assert.Error(t, err)
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		_, err := parseCriteria("", "03/01/2026", "", "")
		assert.Error(t, err)

		_, err = parseCriteria("", "", "not-a-date", "")
		assert.Error(t, err)
	})
}

func TestParseMode(t *testing.T) {
	mode, err := parseMode("")
	require.NoError(t, err)
	assert.Equal(t, models.ModeIndividual, mode)

	mode, err = parseMode("combined")
	require.NoError(t, err)
	assert.Equal(t, models.ModeCombined, mode)

	_, err = parseMode("batch")
	assert.Error(t, err)
}
