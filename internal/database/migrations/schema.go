package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-checkin/internal/models"
)

var tables = []any{
	(*models.User)(nil),
	(*models.Event)(nil),
	(*models.Participant)(nil),
	(*models.Ticket)(nil),
	(*models.Checkin)(nil),
	(*models.AuditLog)(nil),
}

var indexes = []struct {
	model   any
	name    string
	columns []string
}{
	{(*models.Participant)(nil), "participants_event_created_idx", []string{"event_id", "created_at", "id"}},
	{(*models.Ticket)(nil), "tickets_event_status_idx", []string{"event_id", "status"}},
	{(*models.Checkin)(nil), "checkins_event_scanned_idx", []string{"event_id", "scanned_at"}},
}

// CreateSchema creates every table from the bun models. Used for sqlite and tests.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// DropSchema removes every table in reverse creation order.
func DropSchema(ctx context.Context, db bun.IDB) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(tables[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", tables[i], err)
		}
	}
	return nil
}
