package participants

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
	"ms-checkin/internal/lock"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/utils"
)

// MaxPageSize caps listParticipants.
const MaxPageSize = 500

type DBLayer interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetParticipantByID(ctx context.Context, id string) (*models.Participant, error)
	GetByEventAndEmail(ctx context.Context, eventID, email string) (*models.Participant, error)
	InsertParticipant(ctx context.Context, p *models.Participant) error
	UpdateParticipant(ctx context.Context, p *models.Participant) error
	ListParticipants(ctx context.Context, eventID string, offset, limit int) ([]models.Participant, int, error)
}

type EventLookup interface {
	EventExists(ctx context.Context, id string) (bool, error)
}

type rowOutcome int

const (
	rowInserted rowOutcome = iota
	rowUpdated
	rowDuplicated
)

type ParticipantService struct {
	DB        DBLayer
	Events    EventLookup
	Locker    lock.Locker
	Publisher kafka.Publisher
	Audit     audit.Recorder
	Clock     clock.Clock
	Logger    *logger.Logger
}

func NewParticipantService(db DBLayer, events EventLookup, locker lock.Locker, pub kafka.Publisher, rec audit.Recorder, clk clock.Clock, log *logger.Logger) *ParticipantService {
	return &ParticipantService{
		DB:        db,
		Events:    events,
		Locker:    locker,
		Publisher: pub,
		Audit:     rec,
		Clock:     clk,
		Logger:    log,
	}
}

// NormalizeEmail trims and lower-cases an address. Participant identity within an event is the normalised email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeRow(row models.ParticipantRow) models.ParticipantRow {
	return models.ParticipantRow{
		FullName:    strings.TrimSpace(row.FullName),
		Email:       NormalizeEmail(row.Email),
		NationalID:  strings.TrimSpace(row.NationalID),
		Phone:       strings.TrimSpace(row.Phone),
		Institution: strings.TrimSpace(row.Institution),
	}
}

func (s *ParticipantService) requireEvent(ctx context.Context, eventID string) error {
	ok, err := s.Events.EventExists(ctx, eventID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("event %s: %w", eventID, models.ErrEventNotFound)
	}
	return nil
}

// ImportParticipants reconciles rows against the event's participants in input order.
// Invalid rows are reported in the result and skipped. A storage failure stops the
// batch; rows already applied stay applied and the import can simply be re-run.
func (s *ParticipantService) ImportParticipants(ctx context.Context, actor *models.User, eventID string, rows []models.ParticipantRow) (*models.ImportResult, error) {
	if err := access.Require(actor, access.CanManageParticipants); err != nil {
		if actor != nil {
			s.Logger.LogSecurity("FORBIDDEN", fmt.Sprintf("%s tried to import participants into %s", actor.ID, eventID))
		}
		return nil, err
	}
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}

	result := &models.ImportResult{Errors: []models.RowError{}}
	for i, raw := range rows {
		row := normalizeRow(raw)
		if reason := utils.ValidationReason(row); reason != "" {
			result.Errors = append(result.Errors, models.RowError{Index: i, Email: row.Email, Reason: reason})
			continue
		}

		outcome, err := s.importRow(ctx, eventID, row)
		if err != nil {
			s.Logger.Error("IMPORT", fmt.Sprintf("Import into %s aborted at row %d: %v", eventID, i, err))
			return result, fmt.Errorf("import row %d: %w", i, err)
		}
		switch outcome {
		case rowInserted:
			result.Inserted++
		case rowUpdated:
			result.Updated++
		case rowDuplicated:
			result.Duplicated++
		}
	}

	s.Logger.LogImport(eventID, fmt.Sprintf("inserted=%d updated=%d duplicated=%d errors=%d",
		result.Inserted, result.Updated, result.Duplicated, len(result.Errors)))
	s.Audit.Record(ctx, actor.ID, audit.ActionParticipantsImported, "event", eventID, map[string]any{
		"inserted":   result.Inserted,
		"updated":    result.Updated,
		"duplicated": result.Duplicated,
		"errors":     len(result.Errors),
	})
	msg := kafka.ParticipantsImported{
		EventID:    eventID,
		ActorID:    actor.ID,
		Inserted:   result.Inserted,
		Updated:    result.Updated,
		Duplicated: result.Duplicated,
		Failed:     len(result.Errors),
		ImportedAt: s.Clock.Now(),
	}
	if err := s.Publisher.PublishParticipantsImported(ctx, msg); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish import summary for %s: %v", eventID, err))
	}
	return result, nil
}

// importRow holds the (event, email) lock for the duration of the row. If another
// process inserts the same email between our read and insert, the unique index rejects
// ours and the row is retried once, now resolving as update or duplicate.
func (s *ParticipantService) importRow(ctx context.Context, eventID string, row models.ParticipantRow) (rowOutcome, error) {
	unlock, err := s.Locker.Lock(ctx, participantKey(eventID, row.Email))
	if err != nil {
		return 0, err
	}
	defer unlock()

	outcome, err := s.applyRow(ctx, eventID, row)
	if database.IsUniqueViolation(err) {
		outcome, err = s.applyRow(ctx, eventID, row)
	}
	return outcome, err
}

func (s *ParticipantService) applyRow(ctx context.Context, eventID string, row models.ParticipantRow) (rowOutcome, error) {
	var outcome rowOutcome
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.DB.GetByEventAndEmail(ctx, eventID, row.Email)
		if errors.Is(err, models.ErrParticipantNotFound) {
			outcome = rowInserted
			return s.DB.InsertParticipant(ctx, s.newParticipant(eventID, row))
		}
		if err != nil {
			return err
		}

		if !merge(existing, row) {
			outcome = rowDuplicated
			return nil
		}
		existing.UpdatedAt = s.Clock.Now()
		outcome = rowUpdated
		return s.DB.UpdateParticipant(ctx, existing)
	})
	return outcome, err
}

// merge copies row into p and reports whether anything changed. Empty optional
// fields in row leave the stored value alone.
func merge(p *models.Participant, row models.ParticipantRow) bool {
	changed := false
	set := func(dst *string, v string, optional bool) {
		if optional && v == "" {
			return
		}
		if *dst != v {
			*dst = v
			changed = true
		}
	}
	set(&p.FullName, row.FullName, false)
	set(&p.NationalID, row.NationalID, true)
	set(&p.Phone, row.Phone, true)
	set(&p.Institution, row.Institution, true)
	return changed
}

func (s *ParticipantService) newParticipant(eventID string, row models.ParticipantRow) *models.Participant {
	now := s.Clock.Now()
	return &models.Participant{
		ID:          utils.GenerateOrderedID(),
		EventID:     eventID,
		FullName:    row.FullName,
		Email:       row.Email,
		NationalID:  row.NationalID,
		Phone:       row.Phone,
		Institution: row.Institution,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func participantKey(eventID, email string) string {
	return "participant:" + eventID + ":" + email
}

// RegisterParticipant adds a single participant and refuses an email already registered for the event.
func (s *ParticipantService) RegisterParticipant(ctx context.Context, actor *models.User, eventID string, raw models.ParticipantRow) (*models.Participant, error) {
	if err := access.Require(actor, access.CanManageParticipants); err != nil {
		return nil, err
	}
	row := normalizeRow(raw)
	if err := utils.Validate(row); err != nil {
		return nil, err
	}
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}

	unlock, err := s.Locker.Lock(ctx, participantKey(eventID, row.Email))
	if err != nil {
		return nil, err
	}
	defer unlock()

	p := s.newParticipant(eventID, row)
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		_, err := s.DB.GetByEventAndEmail(ctx, eventID, row.Email)
		if err == nil {
			return fmt.Errorf("%w: %s", models.ErrDuplicateEmail, row.Email)
		}
		if !errors.Is(err, models.ErrParticipantNotFound) {
			return err
		}
		return s.DB.InsertParticipant(ctx, p)
	})
	if database.IsUniqueViolation(err) {
		err = fmt.Errorf("%w: %s", models.ErrDuplicateEmail, row.Email)
	}
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, actor.ID, audit.ActionParticipantCreated, "participant", p.ID, map[string]any{"event_id": eventID})
	return p, nil
}

// ListParticipants returns page (1-based) of the event's participants in creation order.
func (s *ParticipantService) ListParticipants(ctx context.Context, actor *models.User, eventID string, page, pageSize int) (*models.ParticipantPage, error) {
	if err := access.Require(actor, access.CanViewReports); err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1", models.ErrValidation)
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return nil, fmt.Errorf("%w: pageSize must be between 1 and %d", models.ErrValidation, MaxPageSize)
	}
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}

	out := &models.ParticipantPage{}
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		data, total, err := s.DB.ListParticipants(ctx, eventID, (page-1)*pageSize, pageSize)
		if err != nil {
			return err
		}
		out.Data, out.Total = data, total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
