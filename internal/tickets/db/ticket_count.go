package db

import (
	"context"
	"fmt"

	"ms-checkin/internal/database"
	"ms-checkin/internal/models"
)

// CountByStatus returns the number of tickets of an event per status. Statuses
// with no tickets are absent.
func (d *DB) CountByStatus(ctx context.Context, eventID string) ([]models.TicketCount, error) {
	var counts []models.TicketCount
	err := database.Conn(ctx, d.Bun).NewSelect().
		Model((*models.Ticket)(nil)).
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS count").
		Where("event_id = ?", eventID).
		Group("status").
		Order("status").
		Scan(ctx, &counts)
	if err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}
	return counts, nil
}
