package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// CheckinEvent is pushed to dashboards each time a ticket is scanned.
type CheckinEvent struct {
	CheckinID       string    `json:"checkin_id"`
	TicketID        string    `json:"ticket_id"`
	EventID         string    `json:"event_id"`
	ParticipantID   string    `json:"participant_id"`
	ParticipantName string    `json:"participant_name"`
	ScannedBy       string    `json:"scanned_by"`
	ScannedAt       time.Time `json:"scanned_at"`
}

// CheckinEventEmitter fans check-in events out to the clients watching an event.
type CheckinEventEmitter struct {
	mu      sync.RWMutex
	clients map[string][]chan CheckinEvent
	buffer  int
}

func NewCheckinEventEmitter() *CheckinEventEmitter {
	return &CheckinEventEmitter{
		clients: make(map[string][]chan CheckinEvent),
		buffer:  16,
	}
}

// Subscribe registers a client for eventID. The channel is closed once ctx is done.
func (e *CheckinEventEmitter) Subscribe(ctx context.Context, eventID string) <-chan CheckinEvent {
	ch := make(chan CheckinEvent, e.buffer)

	e.mu.Lock()
	e.clients[eventID] = append(e.clients[eventID], ch)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(eventID, ch)
	}()
	return ch
}

// Emit never blocks. Clients whose buffer is full miss the event.
func (e *CheckinEventEmitter) Emit(ev CheckinEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ch := range e.clients[ev.EventID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (e *CheckinEventEmitter) remove(eventID string, ch chan CheckinEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[eventID]
	for i, c := range clients {
		if c == ch {
			e.clients[eventID] = append(clients[:i], clients[i+1:]...)
			close(ch)
			break
		}
	}
	if len(e.clients[eventID]) == 0 {
		delete(e.clients, eventID)
	}
}

func (e *CheckinEventEmitter) ClientCount(eventID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[eventID])
}

// SetupHeaders prepares w for an event stream.
func SetupHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// WriteEvent writes one named SSE frame and flushes it.
func WriteEvent(w http.ResponseWriter, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
