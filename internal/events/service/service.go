package events

import (
	"context"
	"fmt"

	"ms-checkin/internal/access"
	"ms-checkin/internal/audit"
	"ms-checkin/internal/clock"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/utils"
)

type DBLayer interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	UpdateStatus(ctx context.Context, id string, from, to models.EventStatus) (bool, error)
}

type EventService struct {
	DB     DBLayer
	Audit  audit.Recorder
	Clock  clock.Clock
	Logger *logger.Logger
}

func NewEventService(db DBLayer, rec audit.Recorder, clk clock.Clock, log *logger.Logger) *EventService {
	return &EventService{DB: db, Audit: rec, Clock: clk, Logger: log}
}

func (s *EventService) ListEvents(ctx context.Context, actor *models.User) ([]models.Event, error) {
	if actor == nil {
		return nil, models.ErrUnauthenticated
	}
	return s.DB.ListEvents(ctx)
}

func (s *EventService) GetEvent(ctx context.Context, actor *models.User, id string) (*models.Event, error) {
	if actor == nil {
		return nil, models.ErrUnauthenticated
	}
	return s.DB.GetEventByID(ctx, id)
}

// CreateEvent stores a new event in draft.
func (s *EventService) CreateEvent(ctx context.Context, actor *models.User, req models.CreateEventRequest) (*models.Event, error) {
	if err := access.Require(actor, access.CanCreateEvents); err != nil {
		return nil, err
	}
	if err := utils.Validate(req); err != nil {
		return nil, err
	}

	event := &models.Event{
		ID:          utils.GenerateUUID(),
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		StartAt:     req.StartAt.UTC(),
		EndAt:       req.EndAt.UTC(),
		Status:      models.EventStatusDraft,
		Brand:       req.Brand,
		CreatedAt:   s.Clock.Now(),
	}
	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, actor.ID, audit.ActionEventCreated, "event", event.ID, map[string]any{"name": event.Name})
	s.Logger.Info("EVENT", fmt.Sprintf("Event %s created by %s", event.ID, actor.ID))
	return event, nil
}

func (s *EventService) Publish(ctx context.Context, actor *models.User, id string) (*models.Event, error) {
	return s.transition(ctx, actor, id, models.EventStatusPublished)
}

func (s *EventService) Finish(ctx context.Context, actor *models.User, id string) (*models.Event, error) {
	return s.transition(ctx, actor, id, models.EventStatusFinished)
}

// transition only ever advances the status by one step.
func (s *EventService) transition(ctx context.Context, actor *models.User, id string, to models.EventStatus) (*models.Event, error) {
	if err := access.Require(actor, access.CanEditEvents); err != nil {
		return nil, err
	}

	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := event.Status
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: event %s is %s, cannot become %s", models.ErrInvalidTransition, id, from, to)
	}

	changed, err := s.DB.UpdateStatus(ctx, id, from, to)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, fmt.Errorf("%w: event %s changed concurrently", models.ErrInvalidTransition, id)
	}
	event.Status = to

	s.Audit.Record(ctx, actor.ID, audit.ActionEventStatusChanged, "event", id, map[string]any{"from": string(from), "to": string(to)})
	s.Logger.Info("EVENT", fmt.Sprintf("Event %s moved %s -> %s", id, from, to))
	return event, nil
}
