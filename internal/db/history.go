package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailquill/backend/internal/models"
)

// ErrHistoryNotFound is returned when no history entry has the given id.
var ErrHistoryNotFound = errors.New("history entry not found")

// HistoryStore persists query history entries with a fixed capacity:
// appending beyond it evicts the oldest entries.
type HistoryStore struct {
	pool     *pgxpool.Pool
	capacity int
}

// NewHistoryStore creates a history store with the given capacity.
func NewHistoryStore(pool *pgxpool.Pool, capacity int) *HistoryStore {
	return &HistoryStore{pool: pool, capacity: capacity}
}

// AppendHistory writes the entry and evicts the oldest entries beyond the
// store's capacity. Entries are immutable once written.
func (s *HistoryStore) AppendHistory(ctx context.Context, entry *models.QueryHistoryEntry) error {
	criteriaJSON, err := json.Marshal(entry.Criteria)
	if err != nil {
		return fmt.Errorf("failed to encode criteria: %w", err)
	}
	optionsJSON, err := json.Marshal(entry.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	emailsJSON, err := json.Marshal(emptyIfNilEmails(entry.Emails))
	if err != nil {
		return fmt.Errorf("failed to encode emails: %w", err)
	}

	var resultsJSON []byte
	if entry.Results != nil {
		resultsJSON, err = json.Marshal(entry.Results)
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
	}

	var combinedTagsJSON []byte
	if entry.CombinedTags != nil {
		combinedTagsJSON, err = json.Marshal(entry.CombinedTags)
		if err != nil {
			return fmt.Errorf("failed to encode combined tags: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO query_history (
			id, created_at, folder, all_folders, criteria, options,
			prompt, emails, results, combined_text, combined_tags, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		entry.ID,
		entry.CreatedAt,
		entry.Folder,
		entry.AllFolder,
		criteriaJSON,
		optionsJSON,
		entry.Prompt,
		emailsJSON,
		resultsJSON,
		entry.CombinedText,
		combinedTagsJSON,
		entry.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	// Oldest entries beyond capacity are dropped first.
	_, err = s.pool.Exec(ctx, `
		DELETE FROM query_history
		WHERE id NOT IN (
			SELECT id FROM query_history ORDER BY created_at DESC LIMIT $1
		)
	`, s.capacity)
	if err != nil {
		return fmt.Errorf("failed to evict old history entries: %w", err)
	}

	return nil
}

// ListHistory returns all entries newest first.
func (s *HistoryStore) ListHistory(ctx context.Context) ([]models.QueryHistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, created_at, folder, all_folders, criteria, options,
		       prompt, emails, results, combined_text, combined_tags, error
		FROM query_history
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []models.QueryHistoryEntry
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return entries, nil
}

// GetHistoryEntry returns the entry with the given id, replaying the exact
// result set that was recorded.
func (s *HistoryStore) GetHistoryEntry(ctx context.Context, id string) (*models.QueryHistoryEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, created_at, folder, all_folders, criteria, options,
		       prompt, emails, results, combined_text, combined_tags, error
		FROM query_history
		WHERE id = $1
	`, id)

	entry, err := scanHistoryEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrHistoryNotFound
	}
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// ClearHistory removes every entry.
func (s *HistoryStore) ClearHistory(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM query_history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func scanHistoryEntry(row pgx.Row) (*models.QueryHistoryEntry, error) {
	var entry models.QueryHistoryEntry
	var criteriaJSON, optionsJSON, emailsJSON []byte
	var resultsJSON, combinedTagsJSON []byte

	err := row.Scan(
		&entry.ID,
		&entry.CreatedAt,
		&entry.Folder,
		&entry.AllFolder,
		&criteriaJSON,
		&optionsJSON,
		&entry.Prompt,
		&emailsJSON,
		&resultsJSON,
		&entry.CombinedText,
		&combinedTagsJSON,
		&entry.Error,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan history entry: %w", err)
	}

	if err := json.Unmarshal(criteriaJSON, &entry.Criteria); err != nil {
		return nil, fmt.Errorf("failed to decode criteria: %w", err)
	}
	if err := json.Unmarshal(optionsJSON, &entry.Options); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}
	if err := json.Unmarshal(emailsJSON, &entry.Emails); err != nil {
		return nil, fmt.Errorf("failed to decode emails: %w", err)
	}
	if resultsJSON != nil {
		if err := json.Unmarshal(resultsJSON, &entry.Results); err != nil {
			return nil, fmt.Errorf("failed to decode results: %w", err)
		}
	}
	if combinedTagsJSON != nil {
		if err := json.Unmarshal(combinedTagsJSON, &entry.CombinedTags); err != nil {
			return nil, fmt.Errorf("failed to decode combined tags: %w", err)
		}
	}

	return &entry, nil
}

func emptyIfNilEmails(emails []models.Email) []models.Email {
	if emails == nil {
		return []models.Email{}
	}
	return emails
}
