package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TicketStatus string

const (
	TicketStatusGenerated TicketStatus = "generated"
	TicketStatusSent      TicketStatus = "sent"
	TicketStatusCheckedIn TicketStatus = "checked_in"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets,alias:t"`

	ID            string       `bun:"id,pk" json:"id"`
	EventID       string       `bun:"event_id,notnull" json:"event_id"`
	ParticipantID string       `bun:"participant_id,notnull,unique" json:"participant_id"`
	Token         string       `bun:"token,notnull,unique" json:"token"`
	Status        TicketStatus `bun:"status,notnull" json:"status"`
	SentAt        *time.Time   `bun:"sent_at" json:"sent_at,omitempty"`
	CheckedInAt   *time.Time   `bun:"checked_in_at" json:"checked_in_at,omitempty"`
	CreatedAt     time.Time    `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time    `bun:"updated_at,notnull" json:"updated_at"`

	Participant *Participant `bun:"rel:belongs-to,join:participant_id=id" json:"participant,omitempty"`
}

type IssueTicketsRequest struct {
	ParticipantIDs []string `json:"participantIds" validate:"required,min=1,dive,required"`
}

type IssueResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}
