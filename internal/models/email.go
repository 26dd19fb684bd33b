package models

import "time"

// Folder is a selectable mailbox path on the IMAP server.
type Folder struct {
	Path string `json:"path"`
}

// ReadStatus filters messages by their seen flag.
type ReadStatus string

const (
	StatusAll    ReadStatus = "all"
	StatusRead   ReadStatus = "read"
	StatusUnread ReadStatus = "unread"
)

// SearchCriteria describes the user's message filter. The zero value matches
// everything. Date bounds are day-granularity UTC; EndDate is inclusive.
type SearchCriteria struct {
	Status    ReadStatus `json:"status"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Subject   string     `json:"subject"`
}

// Email is the canonical in-memory representation of a fetched mail item,
// independent of the wire format it arrived in.
type Email struct {
	// ID is stable within a query: "<folder>:<uid>". Result correlation is
	// keyed on it, never on slice position.
	ID       string    `json:"id"`
	UID      uint32    `json:"uid"`
	ThreadID string    `json:"thread_id,omitempty"`
	From     string    `json:"from"`
	Subject  string    `json:"subject"`
	Date     time.Time `json:"date"`
	IsRead   bool      `json:"is_read"`
	// Flags holds system flags (e.g. \Seen) plus any server-specific
	// keywords the FETCH response carried.
	Flags []string `json:"flags,omitempty"`
	Body  string   `json:"body"`
	// Folder is the mailbox the message was fetched from. Folders is the
	// union of all mailboxes it was seen in after thread grouping.
	Folder  string   `json:"folder"`
	Folders []string `json:"folders,omitempty"`
}
