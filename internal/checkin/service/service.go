package checkin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ms-checkin/internal/access"
	"ms-checkin/internal/audit"
	"ms-checkin/internal/clock"
	"ms-checkin/internal/database"
	"ms-checkin/internal/kafka"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/sse"
	"ms-checkin/internal/utils"
)

type DBLayer interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	InsertCheckin(ctx context.Context, c *models.Checkin) error
}

type TicketLookup interface {
	GetTicketByToken(ctx context.Context, token string) (*models.Ticket, error)
}

// Lifecycle is the part of the ticket engine a check-in drives.
type Lifecycle interface {
	CheckIn(ctx context.Context, t *models.Ticket) error
}

type Broadcaster interface {
	Emit(ev sse.CheckinEvent)
}

type CheckinService struct {
	DB        DBLayer
	Tickets   TicketLookup
	Lifecycle Lifecycle
	Feed      Broadcaster
	Publisher kafka.Publisher
	Audit     audit.Recorder
	Clock     clock.Clock
	Logger    *logger.Logger
}

func NewCheckinService(db DBLayer, tickets TicketLookup, lifecycle Lifecycle, feed Broadcaster, pub kafka.Publisher, rec audit.Recorder, clk clock.Clock, log *logger.Logger) *CheckinService {
	return &CheckinService{
		DB:        db,
		Tickets:   tickets,
		Lifecycle: lifecycle,
		Feed:      feed,
		Publisher: pub,
		Audit:     rec,
		Clock:     clk,
		Logger:    log,
	}
}

// ConfirmCheckin records attendance for the ticket holding token. The ticket
// transition, the checkin record and the participant mirror commit together.
// A second scan of the same token fails with ErrDuplicateCheckin.
func (s *CheckinService) ConfirmCheckin(ctx context.Context, actor *models.User, token, deviceInfo string) (*models.Checkin, error) {
	if err := access.Require(actor, access.CanPerformCheckin); err != nil {
		return nil, err
	}
	req := models.CheckinRequest{Token: strings.TrimSpace(token), DeviceInfo: deviceInfo}
	if err := utils.Validate(req); err != nil {
		return nil, err
	}

	var (
		record *models.Checkin
		ticket *models.Ticket
	)
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.Tickets.GetTicketByToken(ctx, req.Token)
		if err != nil {
			return err
		}
		if err := s.Lifecycle.CheckIn(ctx, t); err != nil {
			if errors.Is(err, models.ErrAlreadyCheckedIn) {
				return fmt.Errorf("ticket %s: %w", t.ID, models.ErrDuplicateCheckin)
			}
			return err
		}

		scannedAt := s.Clock.Now()
		if t.CheckedInAt != nil {
			scannedAt = *t.CheckedInAt
		}
		record = &models.Checkin{
			ID:         utils.GenerateUUID(),
			EventID:    t.EventID,
			TicketID:   t.ID,
			ScannedAt:  scannedAt,
			ScannedBy:  actor.ID,
			DeviceInfo: req.DeviceInfo,
		}
		ticket = t
		return s.DB.InsertCheckin(ctx, record)
	})
	if database.IsUniqueViolation(err) {
		err = fmt.Errorf("%w: checkin record exists", models.ErrDuplicateCheckin)
	}
	if err != nil {
		if errors.Is(err, models.ErrDuplicateCheckin) {
			s.Logger.LogCheckin("DUPLICATE", req.Token, "scanned by "+actor.ID)
		}
		return nil, err
	}

	s.Logger.LogCheckin("CONFIRMED", ticket.ID, "scanned by "+actor.ID)
	s.afterCommit(ctx, actor, ticket, record)
	return record, nil
}

// afterCommit fans the check-in out. Failures here are logged and never undo the check-in.
func (s *CheckinService) afterCommit(ctx context.Context, actor *models.User, t *models.Ticket, c *models.Checkin) {
	name := ""
	if t.Participant != nil {
		name = t.Participant.FullName
	}
	s.Feed.Emit(sse.CheckinEvent{
		CheckinID:       c.ID,
		TicketID:        t.ID,
		EventID:         c.EventID,
		ParticipantID:   t.ParticipantID,
		ParticipantName: name,
		ScannedBy:       c.ScannedBy,
		ScannedAt:       c.ScannedAt,
	})

	msg := kafka.CheckinConfirmed{
		CheckinID:     c.ID,
		TicketID:      t.ID,
		EventID:       c.EventID,
		ParticipantID: t.ParticipantID,
		ScannedBy:     c.ScannedBy,
		ScannedAt:     c.ScannedAt,
	}
	if err := s.Publisher.PublishCheckinConfirmed(ctx, msg); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish checkin.confirmed for %s: %v", t.ID, err))
	}

	s.Audit.Record(ctx, actor.ID, audit.ActionCheckinConfirmed, "ticket", t.ID, map[string]any{
		"checkin_id":  c.ID,
		"device_info": c.DeviceInfo,
	})
}
