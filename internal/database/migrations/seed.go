package migrations

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-checkin/internal/database"
	"ms-checkin/internal/models"
	"ms-checkin/internal/tickets/token"
)

const seedParticipants = 55

// Seed loads demo users, two events and a participant list with tickets. It is a
// no-op when users already exist.
func Seed(ctx context.Context, db *bun.DB, now time.Time) error {
	count, err := db.NewSelect().Model((*models.User)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	return database.WithTx(ctx, db, func(ctx context.Context) error {
		conn := database.Conn(ctx, db)

		users := []models.User{
			{ID: "user-1", DisplayName: "Admin User", Email: "admin@evento.pro", Role: models.RoleAdmin, CreatedAt: now},
			{ID: "user-2", DisplayName: "Organizer User", Email: "org@evento.pro", Role: models.RoleOrganizer, CreatedAt: now},
			{ID: "user-3", DisplayName: "Staff User", Email: "staff@evento.pro", Role: models.RoleStaff, CreatedAt: now},
			{ID: "user-4", DisplayName: "Viewer User", Email: "viewer@evento.pro", Role: models.RoleViewer, CreatedAt: now},
		}
		if _, err := conn.NewInsert().Model(&users).Exec(ctx); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}

		start := now.Truncate(time.Hour)
		events := []models.Event{
			{
				ID:          "event-1",
				Name:        "Technology Conference",
				Description: "Two days of talks and workshops.",
				Location:    "Convention Center",
				StartAt:     start,
				EndAt:       start.Add(33 * time.Hour),
				Status:      models.EventStatusPublished,
				Brand:       models.EventBrand{PrimaryColor: "#007BFF", SecondaryColor: "#6C757D", LogoURL: "https://picsum.photos/100"},
				CreatedAt:   now,
			},
			{
				ID:          "event-2",
				Name:        "Design Thinking Workshop",
				Description: "Hands-on design thinking session.",
				Location:    "InovaHub",
				StartAt:     start.Add(30 * 24 * time.Hour),
				EndAt:       start.Add(30*24*time.Hour + 7*time.Hour),
				Status:      models.EventStatusDraft,
				Brand:       models.EventBrand{PrimaryColor: "#28A745", SecondaryColor: "#343A40", LogoURL: "https://picsum.photos/101"},
				CreatedAt:   now,
			},
		}
		if _, err := conn.NewInsert().Model(&events).Exec(ctx); err != nil {
			return fmt.Errorf("seed events: %w", err)
		}

		participants := make([]models.Participant, 0, seedParticipants)
		tickets := make([]models.Ticket, 0, seedParticipants)
		var checkins []models.Checkin

		for i := 0; i < seedParticipants; i++ {
			created := now.Add(time.Duration(i) * time.Millisecond)
			status := models.TicketStatusGenerated
			switch {
			case i%4 == 0:
				status = models.TicketStatusCheckedIn
			case i%3 == 0:
				status = models.TicketStatusSent
			}

			p := models.Participant{
				ID:           fmt.Sprintf("p-%d", i+1),
				EventID:      "event-1",
				FullName:     fmt.Sprintf("Participant %d", i+1),
				Email:        fmt.Sprintf("participant%d@email.com", i+1),
				NationalID:   fmt.Sprintf("123.456.789-0%d", i%10),
				Institution:  "Example University",
				TicketStatus: status,
				CreatedAt:    created,
				UpdatedAt:    created,
			}
			participants = append(participants, p)

			tok, err := token.New()
			if err != nil {
				return err
			}
			t := models.Ticket{
				ID:            "t-" + p.ID,
				EventID:       p.EventID,
				ParticipantID: p.ID,
				Token:         tok,
				Status:        status,
				CreatedAt:     created,
				UpdatedAt:     created,
			}
			if status != models.TicketStatusGenerated {
				sent := created
				t.SentAt = &sent
			}
			if status == models.TicketStatusCheckedIn {
				scanned := start.Add(time.Duration(i%5) * time.Hour).Add(time.Duration(i) * time.Minute)
				t.CheckedInAt = &scanned
				checkins = append(checkins, models.Checkin{
					ID:         "c-" + p.ID,
					EventID:    p.EventID,
					TicketID:   t.ID,
					ScannedAt:  scanned,
					ScannedBy:  "user-3",
					DeviceInfo: "seed",
				})
			}
			tickets = append(tickets, t)
		}

		if _, err := conn.NewInsert().Model(&participants).Exec(ctx); err != nil {
			return fmt.Errorf("seed participants: %w", err)
		}
		if _, err := conn.NewInsert().Model(&tickets).Exec(ctx); err != nil {
			return fmt.Errorf("seed tickets: %w", err)
		}
		if _, err := conn.NewInsert().Model(&checkins).Exec(ctx); err != nil {
			return fmt.Errorf("seed checkins: %w", err)
		}
		return nil
	})
}
