package imap

import (
	"strings"
	"time"

	"github.com/emersion/go-imap"

	"github.com/mailquill/backend/internal/models"
)

// BuildSearchCriteria translates the user's filter into an IMAP search
// predicate. With no filters set the returned criteria match every message.
func BuildSearchCriteria(c models.SearchCriteria) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()

	switch c.Status {
	case models.StatusUnread:
		criteria.WithoutFlags = []string{imap.SeenFlag}
	case models.StatusRead:
		criteria.WithFlags = []string{imap.SeenFlag}
	}

	if c.StartDate != nil {
		criteria.Since = utcMidnight(*c.StartDate)
	}

	if c.EndDate != nil {
		// BEFORE is exclusive, so the bound is the end date's UTC midnight
		// plus 24 hours. That makes the end date itself inclusive.
		criteria.Before = utcMidnight(*c.EndDate).Add(24 * time.Hour)
	}

	if subject := strings.TrimSpace(c.Subject); subject != "" {
		criteria.Header.Add("Subject", subject)
	}

	return criteria
}

func utcMidnight(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
