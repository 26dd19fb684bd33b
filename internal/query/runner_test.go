package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailquill/backend/internal/ai"
	"github.com/mailquill/backend/internal/imap"
	"github.com/mailquill/backend/internal/models"
)

type fakeFetcher struct {
	emails   []models.Email
	err      error
	lastReq  imap.FetchRequest
}

func (f *fakeFetcher) TestConnection(models.Credentials) error { return nil }

func (f *fakeFetcher) ListFolders(models.Credentials) ([]models.Folder, error) { return nil, nil }

func (f *fakeFetcher) FetchEmails(_ context.Context, req imap.FetchRequest) ([]models.Email, error) {
	f.lastReq = req
	return f.emails, f.err
}

type fakeCompleter struct {
	mu      sync.Mutex
	prompts []string
	respond func(systemPrompt, userContent string) (string, error)
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt, userContent string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, systemPrompt)
	f.mu.Unlock()

	if f.respond != nil {
		return f.respond(systemPrompt, userContent)
	}
	return "ok", nil
}

type memoryHistory struct {
	mu      sync.Mutex
	entries []*models.QueryHistoryEntry
	err     error
}

func (m *memoryHistory) AppendHistory(_ context.Context, entry *models.QueryHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (n *recordingNotifier) Notify(event ProgressEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) phases() []Phase {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Phase, 0, len(n.events))
	for _, event := range n.events {
		out = append(out, event.Phase)
	}
	return out
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func sampleEmails() []models.Email {
	return []models.Email{
		{ID: "INBOX:1", Subject: "First", From: "a@example.com", Date: time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC), Body: "body one"},
		{ID: "INBOX:2", Subject: "Second", From: "b@example.com", Date: time.Date(2026, 7, 2, 9, 0, 0, 0, time.UTC), Body: "body two"},
	}
}

func newTestRunner(fetcher imap.Fetcher, completer ai.Completer, history HistoryStore, notifier Notifier) *Runner {
	return NewRunner(fetcher, completer, history, notifier, quietLogger())
}

func TestRunnerRun(t *testing.T) {
	t.Run("combined mode extracts tags from the single response", func(t *testing.T) {
		fetcher := &fakeFetcher{emails: sampleEmails()}
		completer := &fakeCompleter{respond: func(string, string) (string, error) {
			return "Summary [[Urgent]] done", nil
		}}
		history := &memoryHistory{}
		notifier := &recordingNotifier{}
		runner := newTestRunner(fetcher, completer, history, notifier)

		entry, err := runner.Run(context.Background(), Request{
			Fetch:   imap.FetchRequest{Folder: "INBOX"},
			Prompt:  "Summarize",
			Options: models.QueryOptions{Mode: models.ModeCombined},
			Tags:    []models.Tag{{Name: "Urgent", Marker: "[[Urgent]]"}},
		})
		require.NoError(t, err)

		assert.Equal(t, "Summary  done", entry.CombinedText)
		assert.Equal(t, []string{"Urgent"}, entry.CombinedTags)
		assert.Len(t, entry.Emails, 2)
		assert.Empty(t, entry.Error)
		require.Len(t, history.entries, 1)
		assert.Equal(t, []Phase{PhaseFetching, PhaseDispatching, PhaseCorrelating, PhaseDone}, notifier.phases())
	})

	t.Run("individual mode yields a result per message", func(t *testing.T) {
		fetcher := &fakeFetcher{emails: sampleEmails()}
		completer := &fakeCompleter{respond: func(_, userContent string) (string, error) {
			return "processed [[Later]]", nil
		}}
		runner := newTestRunner(fetcher, completer, &memoryHistory{}, nil)

		entry, err := runner.Run(context.Background(), Request{
			Fetch:   imap.FetchRequest{Folder: "INBOX"},
			Prompt:  "Process",
			Options: models.QueryOptions{Mode: models.ModeIndividual},
			Tags:    []models.Tag{{Name: "Later", Marker: "[[Later]]"}},
		})
		require.NoError(t, err)

		require.Len(t, entry.Results, 2)
		for i, result := range entry.Results {
			assert.Equal(t, entry.Emails[i].ID, result.EmailID)
			assert.Equal(t, "processed ", result.Content)
			assert.Equal(t, []string{"Later"}, result.Tags)
		}
	})

	t.Run("prompt variables are substituted before dispatch", func(t *testing.T) {
		fetcher := &fakeFetcher{emails: sampleEmails()}
		completer := &fakeCompleter{}
		runner := newTestRunner(fetcher, completer, &memoryHistory{}, nil)

		entry, err := runner.Run(context.Background(), Request{
			Fetch:     imap.FetchRequest{Folder: "INBOX"},
			Prompt:    "Act as {ROLE}",
			Options:   models.QueryOptions{Mode: models.ModeCombined},
			Variables: []models.PromptVariable{{Key: "ROLE", Value: "an assistant"}},
		})
		require.NoError(t, err)

		require.NotEmpty(t, completer.prompts)
		assert.Equal(t, "Act as an assistant", completer.prompts[0])
		// The recorded entry keeps the original template for replay.
		assert.Equal(t, "Act as {ROLE}", entry.Prompt)
	})

	t.Run("fetch failure is recorded in history", func(t *testing.T) {
		fetcher := &fakeFetcher{err: errors.New("mailbox unreachable")}
		history := &memoryHistory{}
		notifier := &recordingNotifier{}
		runner := newTestRunner(fetcher, &fakeCompleter{}, history, notifier)

		entry, err := runner.Run(context.Background(), Request{
			Fetch:  imap.FetchRequest{Folder: "INBOX"},
			Prompt: "p",
		})
		require.Error(t, err)

		assert.Equal(t, "mailbox unreachable", entry.Error)
		require.Len(t, history.entries, 1)
		assert.Equal(t, "mailbox unreachable", history.entries[0].Error)
		assert.Equal(t, []Phase{PhaseFetching, PhaseFailed}, notifier.phases())
	})

	t.Run("combined dispatch failure fails the run", func(t *testing.T) {
		fetcher := &fakeFetcher{emails: sampleEmails()}
		completer := &fakeCompleter{respond: func(string, string) (string, error) {
			return "", errors.New("model down")
		}}
		history := &memoryHistory{}
		runner := newTestRunner(fetcher, completer, history, nil)

		entry, err := runner.Run(context.Background(), Request{
			Fetch:   imap.FetchRequest{Folder: "INBOX"},
			Prompt:  "p",
			Options: models.QueryOptions{Mode: models.ModeCombined},
		})
		require.Error(t, err)
		assert.Contains(t, entry.Error, "model down")
		require.Len(t, history.entries, 1)
	})

	t.Run("individual dispatch failures stay per result", func(t *testing.T) {
		fetcher := &fakeFetcher{emails: sampleEmails()}
		completer := &fakeCompleter{respond: func(_, userContent string) (string, error) {
			return "", errors.New("overloaded")
		}}
		runner := newTestRunner(fetcher, completer, &memoryHistory{}, nil)

		entry, err := runner.Run(context.Background(), Request{
			Fetch:   imap.FetchRequest{Folder: "INBOX"},
			Prompt:  "p",
			Options: models.QueryOptions{Mode: models.ModeIndividual},
		})
		require.NoError(t, err)

		require.Len(t, entry.Results, 2)
		for _, result := range entry.Results {
			assert.Equal(t, "overloaded", result.Error)
			assert.Empty(t, result.Tags)
		}
		assert.Empty(t, entry.Error)
	})

	t.Run("invalid tag set refuses to run", func(t *testing.T) {
		fetcher := &fakeFetcher{emails: sampleEmails()}
		history := &memoryHistory{}
		runner := newTestRunner(fetcher, &fakeCompleter{}, history, nil)

		entry, err := runner.Run(context.Background(), Request{
			Fetch:  imap.FetchRequest{Folder: "INBOX"},
			Prompt: "p",
			Tags: []models.Tag{
				{Name: "Urgent", Marker: "[[Urgent]]"},
				{Name: "urgent", Marker: "[[other]]"},
			},
		})
		require.Error(t, err)
		assert.Contains(t, entry.Error, "invalid tag configuration")
		// The fetcher must not have been touched.
		assert.Empty(t, fetcher.lastReq.Folder)
	})

	t.Run("thread grouping is requested from the fetcher", func(t *testing.T) {
		fetcher := &fakeFetcher{emails: sampleEmails()}
		runner := newTestRunner(fetcher, &fakeCompleter{}, &memoryHistory{}, nil)

		_, err := runner.Run(context.Background(), Request{
			Fetch:   imap.FetchRequest{Folder: "INBOX"},
			Prompt:  "p",
			Options: models.QueryOptions{Mode: models.ModeCombined, GroupThreads: true},
		})
		require.NoError(t, err)

		assert.True(t, fetcher.lastReq.ResolveThreads)
	})

	t.Run("history store failure does not fail the run", func(t *testing.T) {
		fetcher := &fakeFetcher{emails: sampleEmails()}
		history := &memoryHistory{err: errors.New("db gone")}
		runner := newTestRunner(fetcher, &fakeCompleter{}, history, nil)

		entry, err := runner.Run(context.Background(), Request{
			Fetch:   imap.FetchRequest{Folder: "INBOX"},
			Prompt:  "p",
			Options: models.QueryOptions{Mode: models.ModeCombined},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, entry.ID)
	})
}
