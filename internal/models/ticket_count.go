package models

// TicketCount is the number of tickets of an event in one status.
type TicketCount struct {
	Status TicketStatus `bun:"status" json:"status"`
	Count  int          `bun:"count" json:"count"`
}

// EventSummary aggregates the operational numbers of one event.
type EventSummary struct {
	EventID      string               `json:"event_id"`
	Participants int                  `json:"participants"`
	Tickets      int                  `json:"tickets"`
	ByStatus     map[TicketStatus]int `json:"by_status"`
	Checkins     int                  `json:"checkins"`
}
