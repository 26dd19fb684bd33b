package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailquill/backend/internal/models"
)

// ErrVariableNotFound is returned when the keyed variable does not exist.
var ErrVariableNotFound = errors.New("prompt variable not found")

// ListVariables returns all prompt variables in creation order.
func ListVariables(ctx context.Context, pool *pgxpool.Pool) ([]models.PromptVariable, error) {
	rows, err := pool.Query(ctx, `
		SELECT key, value
		FROM prompt_variables
		ORDER BY created_at, key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompt variables: %w", err)
	}
	defer rows.Close()

	var result []models.PromptVariable
	for rows.Next() {
		var variable models.PromptVariable
		if err := rows.Scan(&variable.Key, &variable.Value); err != nil {
			return nil, fmt.Errorf("failed to scan prompt variable: %w", err)
		}
		result = append(result, variable)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prompt variables: %w", err)
	}

	return result, nil
}

// SaveVariable inserts or updates a prompt variable. Keys are unique
// case-insensitively; writing an existing key replaces its value.
func SaveVariable(ctx context.Context, pool *pgxpool.Pool, variable *models.PromptVariable) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO prompt_variables (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, variable.Key, variable.Value)

	if isUniqueViolation(err) {
		// The case-insensitive index caught a key differing only in case;
		// route the write to the existing row instead.
		_, err = pool.Exec(ctx, `
			UPDATE prompt_variables SET value = $2 WHERE LOWER(key) = LOWER($1)
		`, variable.Key, variable.Value)
	}

	if err != nil {
		return fmt.Errorf("failed to save prompt variable: %w", err)
	}

	return nil
}

// DeleteVariable removes the keyed prompt variable.
func DeleteVariable(ctx context.Context, pool *pgxpool.Pool, key string) error {
	commandTag, err := pool.Exec(ctx, `
		DELETE FROM prompt_variables WHERE LOWER(key) = LOWER($1)
	`, key)
	if err != nil {
		return fmt.Errorf("failed to delete prompt variable: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrVariableNotFound
	}

	return nil
}
