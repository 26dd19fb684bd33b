package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailquill/backend/internal/models"
)

// ErrSettingsNotFound is returned when no account has been configured yet.
var ErrSettingsNotFound = errors.New("account settings not found")

// GetAccountSettings returns the stored mailbox configuration.
func GetAccountSettings(ctx context.Context, pool *pgxpool.Pool) (*models.AccountSettings, error) {
	var settings models.AccountSettings

	err := pool.QueryRow(ctx, `
		SELECT host, port, username, password, default_folder, max_results
		FROM account_settings
		WHERE id = 1
	`).Scan(
		&settings.Host,
		&settings.Port,
		&settings.Username,
		&settings.Password,
		&settings.DefaultFolder,
		&settings.MaxResults,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSettingsNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get account settings: %w", err)
	}

	return &settings, nil
}

// SaveAccountSettings stores the mailbox configuration, replacing any
// previous one. Write-through: the whole row is written on every change.
func SaveAccountSettings(ctx context.Context, pool *pgxpool.Pool, settings *models.AccountSettings) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO account_settings (id, host, port, username, password, default_folder, max_results)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			host = EXCLUDED.host,
			port = EXCLUDED.port,
			username = EXCLUDED.username,
			password = EXCLUDED.password,
			default_folder = EXCLUDED.default_folder,
			max_results = EXCLUDED.max_results,
			updated_at = NOW()
	`,
		settings.Host,
		settings.Port,
		settings.Username,
		settings.Password,
		settings.DefaultFolder,
		settings.MaxResults,
	)

	if err != nil {
		return fmt.Errorf("failed to save account settings: %w", err)
	}

	return nil
}
