package models

import (
	"time"

	"github.com/uptrace/bun"
)

type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusFinished  EventStatus = "finished"
)

// rank orders statuses so transitions can be checked as strictly increasing.
func (s EventStatus) rank() int {
	switch s {
	case EventStatusDraft:
		return 0
	case EventStatusPublished:
		return 1
	case EventStatusFinished:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving from s to next keeps the status monotonic.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	return s.rank() >= 0 && next.rank() == s.rank()+1
}

type EventBrand struct {
	PrimaryColor   string `bun:"primary_color" json:"primary_color"`
	SecondaryColor string `bun:"secondary_color" json:"secondary_color"`
	LogoURL        string `bun:"logo_url" json:"logo_url"`
}

type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID          string      `bun:"id,pk" json:"id"`
	Name        string      `bun:"name,notnull" json:"name"`
	Description string      `bun:"description" json:"description"`
	Location    string      `bun:"location" json:"location"`
	StartAt     time.Time   `bun:"start_at,notnull" json:"start_at"`
	EndAt       time.Time   `bun:"end_at,notnull" json:"end_at"`
	Status      EventStatus `bun:"status,notnull" json:"status"`
	Brand       EventBrand  `bun:"embed:brand_" json:"brand"`
	CreatedAt   time.Time   `bun:"created_at,notnull" json:"created_at"`
}

type CreateEventRequest struct {
	Name        string     `json:"name" validate:"required,max=200"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartAt     time.Time  `json:"start_at" validate:"required"`
	EndAt       time.Time  `json:"end_at" validate:"required,gtfield=StartAt"`
	Brand       EventBrand `json:"brand"`
}
