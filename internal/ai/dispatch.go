package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailquill/backend/internal/models"
)

// messageSeparator divides individual emails inside a combined prompt.
const messageSeparator = "\n\n---\n\n"

// Dispatcher fans prompts out to the completion collaborator and correlates
// responses back to their source messages.
type Dispatcher struct {
	completer Completer
}

// NewDispatcher creates a dispatcher over the given completion client.
func NewDispatcher(completer Completer) *Dispatcher {
	return &Dispatcher{completer: completer}
}

// Combined concatenates all message contents into one user message and runs
// a single completion. One failure fails the whole dispatch.
func (d *Dispatcher) Combined(ctx context.Context, systemPrompt string, emails []models.Email) (string, error) {
	parts := make([]string, 0, len(emails))
	for _, email := range emails {
		parts = append(parts, formatEmail(email))
	}

	text, err := d.completer.Complete(ctx, systemPrompt, strings.Join(parts, messageSeparator))
	if err != nil {
		return "", fmt.Errorf("combined dispatch failed: %w", err)
	}

	return text, nil
}

type completion struct {
	emailID string
	content string
	err     error
}

// Individual runs one completion per message. All requests are fired
// concurrently and the full set is awaited; a failing request is converted
// into a result carrying the error and never aborts its siblings. Every
// dispatched message yields exactly one result, correlated by the message's
// identifier rather than by completion order.
func (d *Dispatcher) Individual(ctx context.Context, systemPrompt string, emails []models.Email) []models.ProcessedResult {
	completions := make(chan completion, len(emails))

	for _, email := range emails {
		go func(e models.Email) {
			content, err := d.completer.Complete(ctx, systemPrompt, formatEmail(e))
			completions <- completion{emailID: e.ID, content: content, err: err}
		}(email)
	}

	// Completions resolve in arbitrary order; collect them keyed by message
	// identifier and only then reassemble in input order.
	byID := make(map[string]completion, len(emails))
	for range emails {
		c := <-completions
		byID[c.emailID] = c
	}

	results := make([]models.ProcessedResult, 0, len(emails))
	for _, email := range emails {
		result := models.ProcessedResult{
			EmailID: email.ID,
			Subject: email.Subject,
			From:    email.From,
			Date:    email.Date,
		}

		c := byID[email.ID]
		if c.err != nil {
			result.Content = c.err.Error()
			result.Error = c.err.Error()
		} else {
			result.Content = c.content
		}

		results = append(results, result)
	}

	return results
}

// formatEmail renders one message as completion input.
func formatEmail(email models.Email) string {
	var sb strings.Builder
	sb.WriteString("From: " + email.From + "\n")
	sb.WriteString("Subject: " + email.Subject + "\n")
	sb.WriteString("Date: " + email.Date.UTC().Format(time.RFC1123) + "\n\n")
	sb.WriteString(email.Body)
	return sb.String()
}
