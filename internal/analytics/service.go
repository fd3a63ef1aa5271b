package analytics

import (
	"context"
	"time"

	"ms-checkin/internal/access"
	"ms-checkin/internal/models"
	"ms-checkin/internal/utils"
)

type EventLookup interface {
	EventExists(ctx context.Context, id string) (bool, error)
}

type ParticipantCounter interface {
	CountParticipants(ctx context.Context, eventID string) (int, error)
}

type TicketCounter interface {
	CountByStatus(ctx context.Context, eventID string) ([]models.TicketCount, error)
}

type CheckinSource interface {
	CountCheckins(ctx context.Context, eventID string) (int, error)
	ScanTimes(ctx context.Context, eventID string) ([]time.Time, error)
}

// Service answers the reporting queries of an event.
type Service struct {
	Events       EventLookup
	Participants ParticipantCounter
	Tickets      TicketCounter
	Checkins     CheckinSource
}

func NewService(events EventLookup, participants ParticipantCounter, tickets TicketCounter, checkins CheckinSource) *Service {
	return &Service{
		Events:       events,
		Participants: participants,
		Tickets:      tickets,
		Checkins:     checkins,
	}
}

func (s *Service) authorize(ctx context.Context, actor *models.User, eventID string) error {
	if err := access.Require(actor, access.CanViewReports); err != nil {
		return err
	}
	ok, err := s.Events.EventExists(ctx, eventID)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrEventNotFound
	}
	return nil
}

// CheckinsByHour buckets the event's check-ins by UTC hour. The series runs from
// the first to the last hour with a check-in, gaps included as zero.
func (s *Service) CheckinsByHour(ctx context.Context, actor *models.User, eventID string) ([]models.HourlyCount, error) {
	if err := s.authorize(ctx, actor, eventID); err != nil {
		return nil, err
	}
	times, err := s.Checkins.ScanTimes(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return HourlySeries(times), nil
}

// HourlySeries is the pure part of CheckinsByHour. times need not be sorted.
func HourlySeries(times []time.Time) []models.HourlyCount {
	out := []models.HourlyCount{}
	if len(times) == 0 {
		return out
	}

	counts := make(map[time.Time]int, len(times))
	first, last := utils.HourBucket(times[0]), utils.HourBucket(times[0])
	for _, t := range times {
		h := utils.HourBucket(t)
		counts[h]++
		if h.Before(first) {
			first = h
		}
		if h.After(last) {
			last = h
		}
	}

	for h := first; !h.After(last); h = h.Add(time.Hour) {
		out = append(out, models.HourlyCount{Hour: h, Time: utils.HourLabel(h), Count: counts[h]})
	}
	return out
}

func (s *Service) EventSummary(ctx context.Context, actor *models.User, eventID string) (*models.EventSummary, error) {
	if err := s.authorize(ctx, actor, eventID); err != nil {
		return nil, err
	}

	summary := &models.EventSummary{
		EventID: eventID,
		ByStatus: map[models.TicketStatus]int{
			models.TicketStatusGenerated: 0,
			models.TicketStatusSent:      0,
			models.TicketStatusCheckedIn: 0,
		},
	}

	var err error
	if summary.Participants, err = s.Participants.CountParticipants(ctx, eventID); err != nil {
		return nil, err
	}
	counts, err := s.Tickets.CountByStatus(ctx, eventID)
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		summary.ByStatus[c.Status] = c.Count
		summary.Tickets += c.Count
	}
	if summary.Checkins, err = s.Checkins.CountCheckins(ctx, eventID); err != nil {
		return nil, err
	}
	return summary, nil
}
