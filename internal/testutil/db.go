// Package testutil holds fixtures shared by repository and service tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"ms-checkin/internal/database"
	"ms-checkin/internal/database/migrations"
	"ms-checkin/internal/models"
)

// NewDB returns an in-memory sqlite database with the full schema.
func NewDB(t *testing.T) *bun.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	if err := migrations.CreateSchema(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Base is a fixed instant used by tests that need deterministic timestamps.
var Base = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

func Users() map[models.Role]*models.User {
	return map[models.Role]*models.User{
		models.RoleAdmin:     {ID: "u-admin", DisplayName: "Admin", Email: "admin@test.io", Role: models.RoleAdmin, CreatedAt: Base},
		models.RoleOrganizer: {ID: "u-org", DisplayName: "Organizer", Email: "org@test.io", Role: models.RoleOrganizer, CreatedAt: Base},
		models.RoleStaff:     {ID: "u-staff", DisplayName: "Staff", Email: "staff@test.io", Role: models.RoleStaff, CreatedAt: Base},
		models.RoleViewer:    {ID: "u-viewer", DisplayName: "Viewer", Email: "viewer@test.io", Role: models.RoleViewer, CreatedAt: Base},
	}
}

// InsertUsers stores one user per role and returns them keyed by role.
func InsertUsers(t *testing.T, db bun.IDB) map[models.Role]*models.User {
	t.Helper()
	users := Users()
	for _, u := range users {
		if _, err := db.NewInsert().Model(u).Exec(context.Background()); err != nil {
			t.Fatalf("insert user: %v", err)
		}
	}
	return users
}

func InsertEvent(t *testing.T, db bun.IDB, id string, status models.EventStatus) *models.Event {
	t.Helper()
	e := &models.Event{
		ID:        id,
		Name:      "Event " + id,
		StartAt:   Base,
		EndAt:     Base.Add(8 * time.Hour),
		Status:    status,
		CreatedAt: Base,
	}
	if _, err := db.NewInsert().Model(e).Exec(context.Background()); err != nil {
		t.Fatalf("insert event: %v", err)
	}
	return e
}

func InsertParticipant(t *testing.T, db bun.IDB, id, eventID, email string) *models.Participant {
	t.Helper()
	p := &models.Participant{
		ID:        id,
		EventID:   eventID,
		FullName:  "Participant " + id,
		Email:     email,
		CreatedAt: Base,
		UpdatedAt: Base,
	}
	if _, err := db.NewInsert().Model(p).Exec(context.Background()); err != nil {
		t.Fatalf("insert participant: %v", err)
	}
	return p
}

func InsertTicket(t *testing.T, db bun.IDB, id, eventID, participantID, token string, status models.TicketStatus) *models.Ticket {
	t.Helper()
	tk := &models.Ticket{
		ID:            id,
		EventID:       eventID,
		ParticipantID: participantID,
		Token:         token,
		Status:        status,
		CreatedAt:     Base,
		UpdatedAt:     Base,
	}
	if status != models.TicketStatusGenerated {
		sent := Base
		tk.SentAt = &sent
	}
	if _, err := db.NewInsert().Model(tk).Exec(context.Background()); err != nil {
		t.Fatalf("insert ticket: %v", err)
	}
	return tk
}
