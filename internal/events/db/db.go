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

func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	if _, err := database.Conn(ctx, d.Bun).NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := database.Conn(ctx, d.Bun).NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("event %s: %w", id, models.ErrEventNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select event: %w", err)
	}
	return &event, nil
}

func (d *DB) EventExists(ctx context.Context, id string) (bool, error) {
	exists, err := database.Conn(ctx, d.Bun).NewSelect().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check event: %w", err)
	}
	return exists, nil
}

// ListEvents orders by start time, newest first.
func (d *DB) ListEvents(ctx context.Context) ([]models.Event, error) {
	events := []models.Event{}
	err := database.Conn(ctx, d.Bun).NewSelect().
		Model(&events).
		OrderExpr("start_at DESC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// UpdateStatus moves the event from one status to another and reports whether a row changed.
func (d *DB) UpdateStatus(ctx context.Context, id string, from, to models.EventStatus) (bool, error) {
	res, err := database.Conn(ctx, d.Bun).NewUpdate().
		Model((*models.Event)(nil)).
		Set("status = ?", to).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("update event status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
