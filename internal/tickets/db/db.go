package db

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-checkin/internal/database"
	"ms-checkin/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.WithTx(ctx, d.Bun, fn)
}

// CreateTicket returns the raw driver error on unique violations (participant or token).
func (d *DB) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	if _, err := database.Conn(ctx, d.Bun).NewInsert().Model(ticket).Exec(ctx); err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (d *DB) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	return d.getTicket(ctx, "t.id = ?", id)
}

// GetTicketByToken loads the ticket together with its participant in one statement.
func (d *DB) GetTicketByToken(ctx context.Context, token string) (*models.Ticket, error) {
	return d.getTicket(ctx, "t.token = ?", token)
}

func (d *DB) GetTicketByParticipant(ctx context.Context, participantID string) (*models.Ticket, error) {
	return d.getTicket(ctx, "t.participant_id = ?", participantID)
}

func (d *DB) getTicket(ctx context.Context, where string, arg any) (*models.Ticket, error) {
	var ticket models.Ticket
	err := database.Conn(ctx, d.Bun).NewSelect().
		Model(&ticket).
		Relation("Participant").
		Where(where, arg).
		Limit(1).
		Scan(ctx)
	if database.IsNoRows(err) {
		return nil, models.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select ticket: %w", err)
	}
	return &ticket, nil
}

func (d *DB) TokenExists(ctx context.Context, token string) (bool, error) {
	exists, err := database.Conn(ctx, d.Bun).NewSelect().
		Model((*models.Ticket)(nil)).
		Where("token = ?", token).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check token: %w", err)
	}
	return exists, nil
}

// TransitionStatus moves a ticket to `to` only while its status is one of `from`.
// It reports false when no row matched, leaving the caller to work out why.
func (d *DB) TransitionStatus(ctx context.Context, id string, from []models.TicketStatus, to models.TicketStatus, at time.Time) (bool, error) {
	q := database.Conn(ctx, d.Bun).NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("status IN (?)", bun.In(from))
	switch to {
	case models.TicketStatusSent:
		q = q.Set("sent_at = ?", at)
	case models.TicketStatusCheckedIn:
		q = q.Set("checked_in_at = ?", at)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("update ticket status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// SetParticipantTicketStatus keeps participants.ticket_status in step with the ticket.
func (d *DB) SetParticipantTicketStatus(ctx context.Context, participantID string, status models.TicketStatus) error {
	_, err := database.Conn(ctx, d.Bun).NewUpdate().
		Model((*models.Participant)(nil)).
		Set("ticket_status = ?", status).
		Where("id = ?", participantID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mirror ticket status: %w", err)
	}
	return nil
}

func (d *DB) GetParticipantsByIDs(ctx context.Context, eventID string, ids []string) ([]models.Participant, error) {
	var out []models.Participant
	if len(ids) == 0 {
		return out, nil
	}
	err := database.Conn(ctx, d.Bun).NewSelect().
		Model(&out).
		Where("event_id = ?", eventID).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select participants: %w", err)
	}
	return out, nil
}
