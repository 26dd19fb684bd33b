package models

import "time"

// Credentials identify one IMAP account. They are supplied per request and
// never owned by the engines.
type Credentials struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ProcessingMode selects how fetched messages are sent to the AI.
type ProcessingMode string

const (
	// ModeCombined sends all messages in one completion request.
	ModeCombined ProcessingMode = "combined"
	// ModeIndividual sends one completion request per message.
	ModeIndividual ProcessingMode = "individual"
)

// QueryOptions are the processing knobs of a single query run.
type QueryOptions struct {
	Mode         ProcessingMode `json:"mode"`
	GroupThreads bool           `json:"group_threads"`
}

// ProcessedResult is the AI output correlated back to one source message.
// Subject, From and Date are copied from the source so the UI can render a
// result without re-joining against the email set.
type ProcessedResult struct {
	EmailID string    `json:"email_id"`
	Subject string    `json:"subject"`
	From    string    `json:"from"`
	Date    time.Time `json:"date"`
	// Content is the response text with all tag markers stripped.
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
	// Error is set when the AI call for this message failed. Failed
	// dispatches still produce a result; they are flagged, never dropped.
	Error string `json:"error,omitempty"`
}

// QueryHistoryEntry records one completed or failed query so a later view can
// replay the exact result set without touching the mail server again.
// Entries are immutable once written.
type QueryHistoryEntry struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Criteria  SearchCriteria `json:"criteria"`
	Options   QueryOptions   `json:"options"`
	Folder    string         `json:"folder"`
	AllFolder bool           `json:"all_folders"`
	// Prompt is the original template, before variable substitution.
	Prompt       string            `json:"prompt"`
	Emails       []Email           `json:"emails"`
	Results      []ProcessedResult `json:"results,omitempty"`
	CombinedText string            `json:"combined_text,omitempty"`
	CombinedTags []string          `json:"combined_tags,omitempty"`
	Error        string            `json:"error,omitempty"`
}
