package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Participant struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID           string       `bun:"id,pk" json:"id"`
	EventID      string       `bun:"event_id,notnull,unique:participants_event_email" json:"event_id"`
	FullName     string       `bun:"full_name,notnull" json:"full_name"`
	Email        string       `bun:"email,notnull,unique:participants_event_email" json:"email"`
	NationalID   string       `bun:"national_id" json:"national_id,omitempty"`
	Phone        string       `bun:"phone" json:"phone,omitempty"`
	Institution  string       `bun:"institution" json:"institution,omitempty"`
	TicketStatus TicketStatus `bun:"ticket_status,nullzero" json:"ticket_status,omitempty"`
	CreatedAt    time.Time    `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time    `bun:"updated_at,notnull" json:"updated_at"`
}

// ParticipantRow is one already-parsed line of a bulk import.
type ParticipantRow struct {
	FullName    string `json:"fullName" validate:"required,max=200"`
	Email       string `json:"email" validate:"required,email"`
	NationalID  string `json:"nationalId,omitempty" validate:"omitempty,max=32"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Institution string `json:"institution,omitempty" validate:"omitempty,max=200"`
}

type RowError struct {
	Index  int    `json:"index"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Inserted   int        `json:"inserted"`
	Updated    int        `json:"updated"`
	Duplicated int        `json:"duplicated"`
	Errors     []RowError `json:"errors"`
}

type ParticipantPage struct {
	Data  []Participant `json:"data"`
	Total int           `json:"total"`
}

type ImportRequest struct {
	Rows []ParticipantRow `json:"rows" validate:"required"`
}
