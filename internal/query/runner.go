// Package query orchestrates one user query end to end: fetch, optional
// thread grouping, prompt substitution, AI dispatch, tag extraction and
// history persistence.
package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mailquill/backend/internal/ai"
	"github.com/mailquill/backend/internal/imap"
	"github.com/mailquill/backend/internal/models"
	"github.com/mailquill/backend/internal/prompt"
	"github.com/mailquill/backend/internal/tags"
)

// Phase is the lifecycle state of a query run.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseFetching    Phase = "fetching"
	PhaseDispatching Phase = "dispatching"
	PhaseCorrelating Phase = "correlating"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

// ProgressEvent is pushed to the UI as the run moves between phases.
type ProgressEvent struct {
	Phase  Phase  `json:"phase"`
	Detail string `json:"detail,omitempty"`
}

// Notifier receives progress events. Implementations are fire-and-forget;
// a notifier that fails must not affect the query outcome.
type Notifier interface {
	Notify(event ProgressEvent)
}

// HistoryStore persists completed and failed query runs.
type HistoryStore interface {
	AppendHistory(ctx context.Context, entry *models.QueryHistoryEntry) error
}

// Request is the input bundle of one query run. Everything the run needs is
// passed in explicitly; the runner reads no ambient state.
type Request struct {
	Fetch     imap.FetchRequest
	Prompt    string
	Options   models.QueryOptions
	Variables []models.PromptVariable
	Tags      []models.Tag
}

// Runner executes queries one at a time. The mutex enforces the
// single-query invariant: the mailbox session is owned exclusively by the
// in-flight query, so a second run waits for the first to resolve.
type Runner struct {
	fetcher  imap.Fetcher
	dispatch *ai.Dispatcher
	history  HistoryStore
	notifier Notifier
	log      *logrus.Logger
	mu       sync.Mutex
}

// NewRunner wires a query runner from its collaborators.
func NewRunner(fetcher imap.Fetcher, completer ai.Completer, history HistoryStore, notifier Notifier, log *logrus.Logger) *Runner {
	return &Runner{
		fetcher:  fetcher,
		dispatch: ai.NewDispatcher(completer),
		history:  history,
		notifier: notifier,
		log:      log,
	}
}

// Run executes the full pipeline and returns the history entry that was
// recorded for it. Failed runs are recorded too: the entry carries the
// error, and it is returned alongside the error itself.
func (r *Runner) Run(ctx context.Context, req Request) (*models.QueryHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := &models.QueryHistoryEntry{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Criteria:  req.Fetch.Criteria,
		Options:   req.Options,
		Folder:    req.Fetch.Folder,
		AllFolder: req.Fetch.FetchAllFolders,
		Prompt:    req.Prompt,
	}

	if err := tags.ValidateSet(req.Tags); err != nil {
		return r.fail(ctx, entry, fmt.Errorf("invalid tag configuration: %w", err))
	}

	r.notify(ProgressEvent{Phase: PhaseFetching})

	fetchReq := req.Fetch
	fetchReq.ResolveThreads = req.Options.GroupThreads
	emails, err := r.fetcher.FetchEmails(ctx, fetchReq)
	if err != nil {
		return r.fail(ctx, entry, err)
	}

	if req.Options.GroupThreads {
		emails = imap.GroupMessages(emails)
	}
	entry.Emails = emails

	systemPrompt := prompt.Substitute(req.Prompt, req.Variables)

	r.notify(ProgressEvent{Phase: PhaseDispatching, Detail: fmt.Sprintf("%d messages", len(emails))})

	switch req.Options.Mode {
	case models.ModeCombined:
		text, err := r.dispatch.Combined(ctx, systemPrompt, emails)
		if err != nil {
			return r.fail(ctx, entry, err)
		}
		r.notify(ProgressEvent{Phase: PhaseCorrelating})
		entry.CombinedText, entry.CombinedTags = tags.Extract(text, req.Tags)

	default:
		results := r.dispatch.Individual(ctx, systemPrompt, emails)
		r.notify(ProgressEvent{Phase: PhaseCorrelating})
		for i := range results {
			if results[i].Error != "" {
				continue
			}
			results[i].Content, results[i].Tags = tags.Extract(results[i].Content, req.Tags)
		}
		entry.Results = results
	}

	r.persist(ctx, entry)
	r.notify(ProgressEvent{Phase: PhaseDone})

	return entry, nil
}

// fail records the attempt with its error and reports the failure.
func (r *Runner) fail(ctx context.Context, entry *models.QueryHistoryEntry, err error) (*models.QueryHistoryEntry, error) {
	entry.Error = err.Error()
	r.persist(ctx, entry)
	r.notify(ProgressEvent{Phase: PhaseFailed, Detail: err.Error()})
	return entry, err
}

// persist appends the entry to history. A store failure is logged and
// otherwise ignored; the results the user is waiting on are already in hand.
func (r *Runner) persist(ctx context.Context, entry *models.QueryHistoryEntry) {
	if r.history == nil {
		return
	}
	if err := r.history.AppendHistory(ctx, entry); err != nil {
		r.log.WithError(err).Warn("Failed to record query in history")
	}
}

func (r *Runner) notify(event ProgressEvent) {
	if r.notifier == nil {
		return
	}
	r.notifier.Notify(event)
}
