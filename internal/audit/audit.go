// Package audit persists a trail of who changed what.
package audit

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-checkin/internal/clock"
	"ms-checkin/internal/database"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/utils"
)

const (
	ActionEventCreated         = "event.created"
	ActionEventStatusChanged   = "event.status_changed"
	ActionParticipantCreated   = "participant.created"
	ActionParticipantsImported = "participants.imported"
	ActionTicketsIssued        = "tickets.issued"
	ActionTicketSent           = "ticket.sent"
	ActionCheckinConfirmed     = "checkin.confirmed"
)

// Recorder is the narrow interface services write through.
type Recorder interface {
	Record(ctx context.Context, actorID, action, entity, entityID string, metadata map[string]any)
}

type DB struct {
	Bun    *bun.DB
	Clock  clock.Clock
	Logger *logger.Logger
}

func NewDB(db *bun.DB, clk clock.Clock, log *logger.Logger) *DB {
	return &DB{Bun: db, Clock: clk, Logger: log}
}

// Record stores an entry. Failures are logged and swallowed: the audited operation has
// already committed by the time it is called.
func (d *DB) Record(ctx context.Context, actorID, action, entity, entityID string, metadata map[string]any) {
	entry := &models.AuditLog{
		ID:        utils.GenerateUUID(),
		ActorID:   actorID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Timestamp: d.Clock.Now(),
		Metadata:  metadata,
	}
	if _, err := database.Conn(ctx, d.Bun).NewInsert().Model(entry).Exec(ctx); err != nil {
		d.Logger.Error("AUDIT", fmt.Sprintf("Failed to record %s on %s/%s: %v", action, entity, entityID, err))
	}
}

// List returns the entries for one entity, oldest first.
func (d *DB) List(ctx context.Context, entity, entityID string) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := database.Conn(ctx, d.Bun).NewSelect().
		Model(&entries).
		Where("entity = ?", entity).
		Where("entity_id = ?", entityID).
		OrderExpr("timestamp ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select audit logs: %w", err)
	}
	return entries, nil
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, string, string, string, string, map[string]any) {}
