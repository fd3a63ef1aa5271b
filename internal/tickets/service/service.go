package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-checkin/internal/access"
	"ms-checkin/internal/audit"
	"ms-checkin/internal/clock"
	"ms-checkin/internal/database"
	"ms-checkin/internal/kafka"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/tickets/token"
	"ms-checkin/internal/utils"
)

type DBLayer interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	GetTicketByToken(ctx context.Context, token string) (*models.Ticket, error)
	GetTicketByParticipant(ctx context.Context, participantID string) (*models.Ticket, error)
	TokenExists(ctx context.Context, token string) (bool, error)
	TransitionStatus(ctx context.Context, id string, from []models.TicketStatus, to models.TicketStatus, at time.Time) (bool, error)
	SetParticipantTicketStatus(ctx context.Context, participantID string, status models.TicketStatus) error
	GetParticipantsByIDs(ctx context.Context, eventID string, ids []string) ([]models.Participant, error)
}

type EventLookup interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
}

type TicketService struct {
	DB            DBLayer
	Events        EventLookup
	Tokens        token.Generator
	TokenAttempts int
	Publisher     kafka.Publisher
	Audit         audit.Recorder
	Clock         clock.Clock
	Logger        *logger.Logger
}

func NewTicketService(db DBLayer, events EventLookup, gen token.Generator, attempts int, pub kafka.Publisher, rec audit.Recorder, clk clock.Clock, log *logger.Logger) *TicketService {
	if attempts < 1 {
		attempts = 1
	}
	return &TicketService{
		DB:            db,
		Events:        events,
		Tokens:        gen,
		TokenAttempts: attempts,
		Publisher:     pub,
		Audit:         rec,
		Clock:         clk,
		Logger:        log,
	}
}

// Issue creates the participant's ticket in generated state and mirrors the
// status onto the participant. A participant holds at most one ticket.
func (s *TicketService) Issue(ctx context.Context, p *models.Participant) (*models.Ticket, error) {
	for attempt := 1; attempt <= s.TokenAttempts; attempt++ {
		tok, err := s.Tokens.Generate()
		if err != nil {
			return nil, err
		}
		taken, err := s.DB.TokenExists(ctx, tok)
		if err != nil {
			return nil, err
		}
		if taken {
			s.Logger.Warn("TICKET", fmt.Sprintf("Token collision for participant %s (attempt %d)", p.ID, attempt))
			continue
		}

		now := s.Clock.Now()
		ticket := &models.Ticket{
			ID:            utils.GenerateUUID(),
			EventID:       p.EventID,
			ParticipantID: p.ID,
			Token:         tok,
			Status:        models.TicketStatusGenerated,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		err = s.DB.WithTx(ctx, func(ctx context.Context) error {
			if err := s.ensureNoTicket(ctx, p.ID); err != nil {
				return err
			}
			if err := s.DB.CreateTicket(ctx, ticket); err != nil {
				return err
			}
			return s.DB.SetParticipantTicketStatus(ctx, p.ID, ticket.Status)
		})
		if err == nil {
			return ticket, nil
		}
		if !database.IsUniqueViolation(err) {
			return nil, err
		}

		// Either someone issued this participant's ticket concurrently or the
		// token was taken after the pre-check.
		if err := s.ensureNoTicket(ctx, p.ID); err != nil {
			return nil, err
		}
		s.Logger.Warn("TICKET", fmt.Sprintf("Token rejected by unique index for participant %s (attempt %d)", p.ID, attempt))
	}
	return nil, fmt.Errorf("participant %s after %d attempts: %w", p.ID, s.TokenAttempts, models.ErrTokenExhausted)
}

func (s *TicketService) ensureNoTicket(ctx context.Context, participantID string) error {
	_, err := s.DB.GetTicketByParticipant(ctx, participantID)
	if err == nil {
		return fmt.Errorf("participant %s: %w", participantID, models.ErrDuplicateTicket)
	}
	if errors.Is(err, models.ErrTicketNotFound) {
		return nil
	}
	return err
}

// MarkTicketSent moves t from generated to sent.
func (s *TicketService) MarkTicketSent(ctx context.Context, t *models.Ticket) error {
	return s.advance(ctx, t, []models.TicketStatus{models.TicketStatusGenerated}, models.TicketStatusSent)
}

// CheckIn moves t from generated or sent to checked_in. Concurrent callers race on a
// conditional update; exactly one wins and the rest get ErrAlreadyCheckedIn.
func (s *TicketService) CheckIn(ctx context.Context, t *models.Ticket) error {
	return s.advance(ctx, t, []models.TicketStatus{models.TicketStatusGenerated, models.TicketStatusSent}, models.TicketStatusCheckedIn)
}

func (s *TicketService) advance(ctx context.Context, t *models.Ticket, from []models.TicketStatus, to models.TicketStatus) error {
	now := s.Clock.Now()
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.DB.TransitionStatus(ctx, t.ID, from, to, now)
		if err != nil {
			return err
		}
		if !ok {
			return s.whyNot(ctx, t.ID, to)
		}
		if err := s.DB.SetParticipantTicketStatus(ctx, t.ParticipantID, to); err != nil {
			return err
		}

		t.Status = to
		t.UpdatedAt = now
		switch to {
		case models.TicketStatusSent:
			t.SentAt = &now
		case models.TicketStatusCheckedIn:
			t.CheckedInAt = &now
		}
		if t.Participant != nil {
			t.Participant.TicketStatus = to
		}
		return nil
	})
}

func (s *TicketService) whyNot(ctx context.Context, id string, to models.TicketStatus) error {
	current, err := s.DB.GetTicketByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == models.TicketStatusCheckedIn && to == models.TicketStatusCheckedIn {
		return fmt.Errorf("ticket %s: %w", id, models.ErrAlreadyCheckedIn)
	}
	return fmt.Errorf("ticket %s %s -> %s: %w", id, current.Status, to, models.ErrInvalidTransition)
}

// IssueTickets issues one ticket per listed participant. Participants that already
// hold a ticket, or do not belong to the event, are skipped.
func (s *TicketService) IssueTickets(ctx context.Context, actor *models.User, eventID string, participantIDs []string) (*models.IssueResult, error) {
	if err := access.Require(actor, access.CanGenerateTickets); err != nil {
		return nil, err
	}
	if err := utils.Validate(models.IssueTicketsRequest{ParticipantIDs: participantIDs}); err != nil {
		return nil, err
	}
	if _, err := s.Events.GetEventByID(ctx, eventID); err != nil {
		return nil, err
	}

	ids := dedupe(participantIDs)
	found, err := s.DB.GetParticipantsByIDs(ctx, eventID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Participant, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	result := &models.IssueResult{}
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			result.Skipped++
			continue
		}
		ticket, err := s.Issue(ctx, p)
		if errors.Is(err, models.ErrDuplicateTicket) {
			result.Skipped++
			continue
		}
		if err != nil {
			s.Logger.Error("TICKET", fmt.Sprintf("Issuing for %s failed after %d tickets: %v", eventID, result.Created, err))
			return result, err
		}
		result.Created++
		s.publishIssued(ctx, ticket, p)
	}

	s.Logger.LogTicket("ISSUE", eventID, fmt.Sprintf("created=%d skipped=%d", result.Created, result.Skipped))
	s.Audit.Record(ctx, actor.ID, audit.ActionTicketsIssued, "event", eventID, map[string]any{
		"created": result.Created,
		"skipped": result.Skipped,
	})
	return result, nil
}

func (s *TicketService) publishIssued(ctx context.Context, t *models.Ticket, p *models.Participant) {
	msg := kafka.TicketIssued{
		TicketID:      t.ID,
		EventID:       t.EventID,
		ParticipantID: p.ID,
		Email:         p.Email,
		FullName:      p.FullName,
		Token:         t.Token,
		IssuedAt:      t.CreatedAt,
	}
	if err := s.Publisher.PublishTicketIssued(ctx, msg); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish ticket.issued for %s: %v", t.ID, err))
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// MarkSent records that the ticket was delivered to its participant.
func (s *TicketService) MarkSent(ctx context.Context, actor *models.User, ticketID string) (*models.Ticket, error) {
	if err := access.Require(actor, access.CanSendEmails); err != nil {
		return nil, err
	}
	t, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.MarkTicketSent(ctx, t); err != nil {
		return nil, err
	}

	s.Logger.LogTicket("SENT", t.ID, "marked as sent by "+actor.ID)
	s.Audit.Record(ctx, actor.ID, audit.ActionTicketSent, "ticket", t.ID, nil)
	if err := s.Publisher.PublishTicketSent(ctx, kafka.TicketSent{TicketID: t.ID, EventID: t.EventID, SentAt: *t.SentAt}); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish ticket.sent for %s: %v", t.ID, err))
	}
	return t, nil
}

// HandleDeliveryReceipt applies a mail delivery receipt. Receipts for unknown or
// already sent tickets are acknowledged and dropped.
func (s *TicketService) HandleDeliveryReceipt(ctx context.Context, receipt kafka.DeliveryReceipt) error {
	_, err := s.MarkSent(ctx, access.SystemActor, receipt.TicketID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrTicketNotFound), errors.Is(err, models.ErrInvalidTransition):
		s.Logger.Info("KAFKA", fmt.Sprintf("Ignoring delivery receipt for %s: %v", receipt.TicketID, err))
		return nil
	default:
		return err
	}
}

// GetTicketByToken resolves a scanned token with its participant.
func (s *TicketService) GetTicketByToken(ctx context.Context, actor *models.User, tok string) (*models.Ticket, error) {
	if err := access.Require(actor, access.CanPerformCheckin); err != nil {
		return nil, err
	}
	return s.DB.GetTicketByToken(ctx, tok)
}

// PrintableTicket returns what the QR and PDF renderers need.
func (s *TicketService) PrintableTicket(ctx context.Context, actor *models.User, tok string) (*models.Ticket, *models.Event, error) {
	if err := access.Require(actor, access.CanGenerateTickets); err != nil {
		return nil, nil, err
	}
	t, err := s.DB.GetTicketByToken(ctx, tok)
	if err != nil {
		return nil, nil, err
	}
	event, err := s.Events.GetEventByID(ctx, t.EventID)
	if err != nil {
		return nil, nil, err
	}
	return t, event, nil
}
