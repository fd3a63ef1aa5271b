package db

import (
	"context"
	"fmt"
	"time"

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

func (d *DB) InsertCheckin(ctx context.Context, c *models.Checkin) error {
	if _, err := database.Conn(ctx, d.Bun).NewInsert().Model(c).Exec(ctx); err != nil {
		return fmt.Errorf("insert checkin: %w", err)
	}
	return nil
}

func (d *DB) GetCheckinByTicket(ctx context.Context, ticketID string) (*models.Checkin, error) {
	var c models.Checkin
	err := database.Conn(ctx, d.Bun).NewSelect().
		Model(&c).
		Where("ticket_id = ?", ticketID).
		Limit(1).
		Scan(ctx)
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("checkin for ticket %s: %w", ticketID, models.ErrTicketNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select checkin: %w", err)
	}
	return &c, nil
}

func (d *DB) CountCheckins(ctx context.Context, eventID string) (int, error) {
	n, err := database.Conn(ctx, d.Bun).NewSelect().
		Model((*models.Checkin)(nil)).
		Where("event_id = ?", eventID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count checkins: %w", err)
	}
	return n, nil
}

// ScanTimes returns every scan instant of an event in ascending order.
func (d *DB) ScanTimes(ctx context.Context, eventID string) ([]time.Time, error) {
	var times []time.Time
	err := database.Conn(ctx, d.Bun).NewSelect().
		Model((*models.Checkin)(nil)).
		Column("scanned_at").
		Where("event_id = ?", eventID).
		Order("scanned_at ASC").
		Scan(ctx, &times)
	if err != nil {
		return nil, fmt.Errorf("select scan times: %w", err)
	}
	return times, nil
}
