package models

import (
	"time"

	"github.com/uptrace/bun"
)

type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:a"`

	ID        string         `bun:"id,pk" json:"id"`
	ActorID   string         `bun:"actor_id,notnull" json:"actor_id"`
	Action    string         `bun:"action,notnull" json:"action"`
	Entity    string         `bun:"entity,notnull" json:"entity"`
	EntityID  string         `bun:"entity_id,notnull" json:"entity_id"`
	Timestamp time.Time      `bun:"timestamp,notnull" json:"timestamp"`
	Metadata  map[string]any `bun:"metadata" json:"metadata,omitempty"`
}
