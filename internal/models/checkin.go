package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Checkin struct {
	bun.BaseModel `bun:"table:checkins,alias:c"`

	ID         string    `bun:"id,pk" json:"id"`
	EventID    string    `bun:"event_id,notnull" json:"event_id"`
	TicketID   string    `bun:"ticket_id,notnull,unique" json:"ticket_id"`
	ScannedAt  time.Time `bun:"scanned_at,notnull" json:"scanned_at"`
	ScannedBy  string    `bun:"scanned_by,notnull" json:"scanned_by"`
	DeviceInfo string    `bun:"device_info" json:"device_info"`
}

type CheckinRequest struct {
	Token      string `json:"token" validate:"required"`
	DeviceInfo string `json:"deviceInfo" validate:"max=500"`
}

// HourlyCount is one bucket of the check-ins-by-hour report.
type HourlyCount struct {
	Hour  time.Time `json:"hour"`
	Time  string    `json:"time"`
	Count int       `json:"count"`
}
