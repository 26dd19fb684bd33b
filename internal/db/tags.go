package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailquill/backend/internal/models"
)

// ErrDuplicateTag is returned when a tag's name or marker collides with an
// existing tag, compared case-insensitively.
var ErrDuplicateTag = errors.New("a tag with this name or marker already exists")

// ErrTagNotFound is returned when the named tag does not exist.
var ErrTagNotFound = errors.New("tag not found")

// ListTags returns all tag definitions in creation order.
func ListTags(ctx context.Context, pool *pgxpool.Pool) ([]models.Tag, error) {
	rows, err := pool.Query(ctx, `
		SELECT name, marker, color
		FROM tags
		ORDER BY created_at, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var result []models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.Name, &tag.Marker, &tag.Color); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		result = append(result, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	return result, nil
}

// SaveTag inserts a new tag definition. Name and marker collisions are a
// configuration invariant violation and are rejected here, at definition
// time.
func SaveTag(ctx context.Context, pool *pgxpool.Pool, tag *models.Tag) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO tags (name, marker, color)
		VALUES ($1, $2, $3)
	`, tag.Name, tag.Marker, tag.Color)

	if isUniqueViolation(err) {
		return ErrDuplicateTag
	}

	if err != nil {
		return fmt.Errorf("failed to save tag: %w", err)
	}

	return nil
}

// DeleteTag removes the named tag.
func DeleteTag(ctx context.Context, pool *pgxpool.Pool, name string) error {
	commandTag, err := pool.Exec(ctx, `
		DELETE FROM tags WHERE LOWER(name) = LOWER($1)
	`, name)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrTagNotFound
	}

	return nil
}

// isUniqueViolation reports whether the error is a unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
