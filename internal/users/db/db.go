package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"ms-checkin/internal/database"
	"ms-checkin/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := database.Conn(ctx, d.Bun).NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &user, nil
}

// GetByEmail matches case-insensitively; emails are stored lower-cased.
func (d *DB) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := database.Conn(ctx, d.Bun).NewSelect().
		Model(&user).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx)
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("user %s: %w", email, models.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &user, nil
}

func (d *DB) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := database.Conn(ctx, d.Bun).NewUpdate().
		Model((*models.User)(nil)).
		Set("last_login_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update last_login_at: %w", err)
	}
	return nil
}
