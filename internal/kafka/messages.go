package kafka

import "time"

type TicketIssued struct {
	TicketID      string    `json:"ticket_id"`
	EventID       string    `json:"event_id"`
	ParticipantID string    `json:"participant_id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	Token         string    `json:"token"`
	IssuedAt      time.Time `json:"issued_at"`
}

type TicketSent struct {
	TicketID string    `json:"ticket_id"`
	EventID  string    `json:"event_id"`
	SentAt   time.Time `json:"sent_at"`
}

type CheckinConfirmed struct {
	CheckinID     string    `json:"checkin_id"`
	TicketID      string    `json:"ticket_id"`
	EventID       string    `json:"event_id"`
	ParticipantID string    `json:"participant_id"`
	ScannedBy     string    `json:"scanned_by"`
	ScannedAt     time.Time `json:"scanned_at"`
}

type ParticipantsImported struct {
	EventID    string    `json:"event_id"`
	ActorID    string    `json:"actor_id"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Duplicated int       `json:"duplicated"`
	Failed     int       `json:"failed"`
	ImportedAt time.Time `json:"imported_at"`
}

// DeliveryReceipt is emitted by the mailer once a ticket e-mail left the building.
type DeliveryReceipt struct {
	TicketID    string    `json:"ticket_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}
