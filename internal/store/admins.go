package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-ticket-desk/internal/database"
	"github.com/safar/go-ticket-desk/internal/models"
)

func (s *Store) CreateAdmin(ctx context.Context, username, displayName, passwordHash string) (*models.Admin, error) {
	admin := &models.Admin{}

	query := `
		INSERT INTO admins (username, display_name, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, username, display_name, password_hash, created_at`

	err := s.conn(ctx).QueryRowContext(ctx, query, username, displayName, passwordHash).Scan(
		&admin.ID,
		&admin.Username,
		&admin.DisplayName,
		&admin.PasswordHash,
		&admin.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrUsernameTaken
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}

	return admin, nil
}

func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	admin := &models.Admin{}

	query := `
		SELECT id, username, display_name, password_hash, created_at
		FROM admins
		WHERE username = $1`

	err := s.conn(ctx).QueryRowContext(ctx, query, username).Scan(
		&admin.ID,
		&admin.Username,
		&admin.DisplayName,
		&admin.PasswordHash,
		&admin.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrAdminNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}

	return admin, nil
}
