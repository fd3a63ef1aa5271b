package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-checkin/internal/database"
	"ms-checkin/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.WithTx(ctx, d.Bun, fn)
}

func (d *DB) GetParticipantByID(ctx context.Context, id string) (*models.Participant, error) {
	var p models.Participant
	err := database.Conn(ctx, d.Bun).NewSelect().
		Model(&p).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("participant %s: %w", id, models.ErrParticipantNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select participant: %w", err)
	}
	return &p, nil
}

// GetByEventAndEmail expects email already normalised.
func (d *DB) GetByEventAndEmail(ctx context.Context, eventID, email string) (*models.Participant, error) {
	var p models.Participant
	err := database.Conn(ctx, d.Bun).NewSelect().
		Model(&p).
		Where("event_id = ?", eventID).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("participant %s in event %s: %w", email, eventID, models.ErrParticipantNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select participant: %w", err)
	}
	return &p, nil
}

// InsertParticipant returns the raw driver error on a unique violation so callers can retry.
func (d *DB) InsertParticipant(ctx context.Context, p *models.Participant) error {
	if _, err := database.Conn(ctx, d.Bun).NewInsert().Model(p).Exec(ctx); err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// UpdateParticipant writes the mutable profile fields. Email and event never change.
func (d *DB) UpdateParticipant(ctx context.Context, p *models.Participant) error {
	_, err := database.Conn(ctx, d.Bun).NewUpdate().
		Model(p).
		Column("full_name", "national_id", "phone", "institution", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update participant: %w", err)
	}
	return nil
}

// ListParticipants returns one page in creation order plus the event's total.
func (d *DB) ListParticipants(ctx context.Context, eventID string, offset, limit int) ([]models.Participant, int, error) {
	participants := []models.Participant{}
	total, err := database.Conn(ctx, d.Bun).NewSelect().
		Model(&participants).
		Where("event_id = ?", eventID).
		OrderExpr("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list participants: %w", err)
	}
	return participants, total, nil
}

func (d *DB) CountParticipants(ctx context.Context, eventID string) (int, error) {
	n, err := database.Conn(ctx, d.Bun).NewSelect().
		Model((*models.Participant)(nil)).
		Where("event_id = ?", eventID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}
