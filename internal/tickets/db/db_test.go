package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-checkin/internal/database"
	"ms-checkin/internal/models"
	"ms-checkin/internal/testutil"
	"ms-checkin/internal/tickets/db"
)

func TestGetTicketEmbedsParticipant(t *testing.T) {
	bunDB := testutil.NewDB(t)
	tickets := &db.DB{Bun: bunDB}
	ctx := context.Background()

	testutil.InsertEvent(t, bunDB, "e1", models.EventStatusPublished)
	testutil.InsertParticipant(t, bunDB, "p1", "e1", "ada@x.io")
	testutil.InsertTicket(t, bunDB, "t1", "e1", "p1", "tok-1", models.TicketStatusGenerated)

	tk, err := tickets.GetTicketByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "t1", tk.ID)
	require.NotNil(t, tk.Participant)
	assert.Equal(t, "ada@x.io", tk.Participant.Email)

	tk, err = tickets.GetTicketByParticipant(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tk.Token)

	_, err = tickets.GetTicketByToken(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrTicketNotFound)

	exists, err := tickets.TokenExists(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUniqueConstraints(t *testing.T) {
	bunDB := testutil.NewDB(t)
	tickets := &db.DB{Bun: bunDB}
	ctx := context.Background()

	testutil.InsertEvent(t, bunDB, "e1", models.EventStatusPublished)
	testutil.InsertParticipant(t, bunDB, "p1", "e1", "a@x.io")
	testutil.InsertParticipant(t, bunDB, "p2", "e1", "b@x.io")
	testutil.InsertTicket(t, bunDB, "t1", "e1", "p1", "tok-1", models.TicketStatusGenerated)

	second := &models.Ticket{ID: "t2", EventID: "e1", ParticipantID: "p1", Token: "tok-2", Status: models.TicketStatusGenerated, CreatedAt: testutil.Base, UpdatedAt: testutil.Base}
	err := tickets.CreateTicket(ctx, second)
	assert.True(t, database.IsUniqueViolation(err), "second ticket for participant: %v", err)

	sameToken := &models.Ticket{ID: "t3", EventID: "e1", ParticipantID: "p2", Token: "tok-1", Status: models.TicketStatusGenerated, CreatedAt: testutil.Base, UpdatedAt: testutil.Base}
	err = tickets.CreateTicket(ctx, sameToken)
	assert.True(t, database.IsUniqueViolation(err), "reused token: %v", err)
}

func TestTransitionStatusIsConditional(t *testing.T) {
	bunDB := testutil.NewDB(t)
	tickets := &db.DB{Bun: bunDB}
	ctx := context.Background()

	testutil.InsertEvent(t, bunDB, "e1", models.EventStatusPublished)
	testutil.InsertParticipant(t, bunDB, "p1", "e1", "a@x.io")
	testutil.InsertTicket(t, bunDB, "t1", "e1", "p1", "tok-1", models.TicketStatusGenerated)

	at := testutil.Base.Add(time.Hour)
	ok, err := tickets.TransitionStatus(ctx, "t1", []models.TicketStatus{models.TicketStatusGenerated}, models.TicketStatusSent, at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tickets.TransitionStatus(ctx, "t1", []models.TicketStatus{models.TicketStatusGenerated}, models.TicketStatusSent, at)
	require.NoError(t, err)
	assert.False(t, ok)

	from := []models.TicketStatus{models.TicketStatusGenerated, models.TicketStatusSent}
	ok, err = tickets.TransitionStatus(ctx, "t1", from, models.TicketStatusCheckedIn, at)
	require.NoError(t, err)
	assert.True(t, ok)

	tk, err := tickets.GetTicketByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusCheckedIn, tk.Status)
	require.NotNil(t, tk.SentAt)
	require.NotNil(t, tk.CheckedInAt)
	assert.True(t, tk.CheckedInAt.Equal(at))

	require.NoError(t, tickets.SetParticipantTicketStatus(ctx, "p1", models.TicketStatusCheckedIn))
	ps, err := tickets.GetParticipantsByIDs(ctx, "e1", []string{"p1", "ghost"})
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, models.TicketStatusCheckedIn, ps[0].TicketStatus)
}

func TestCountByStatus(t *testing.T) {
	bunDB := testutil.NewDB(t)
	tickets := &db.DB{Bun: bunDB}

	testutil.InsertEvent(t, bunDB, "e1", models.EventStatusPublished)
	testutil.InsertEvent(t, bunDB, "e2", models.EventStatusPublished)
	statuses := []models.TicketStatus{models.TicketStatusGenerated, models.TicketStatusGenerated, models.TicketStatusSent, models.TicketStatusCheckedIn}
	for i, st := range statuses {
		id := string(rune('a' + i))
		testutil.InsertParticipant(t, bunDB, "p"+id, "e1", id+"@x.io")
		testutil.InsertTicket(t, bunDB, "t"+id, "e1", "p"+id, "tok-"+id, st)
	}
	testutil.InsertParticipant(t, bunDB, "other", "e2", "z@x.io")
	testutil.InsertTicket(t, bunDB, "tz", "e2", "other", "tok-z", models.TicketStatusSent)

	counts, err := tickets.CountByStatus(context.Background(), "e1")
	require.NoError(t, err)

	got := map[models.TicketStatus]int{}
	for _, c := range counts {
		got[c.Status] = c.Count
	}
	assert.Equal(t, map[models.TicketStatus]int{
		models.TicketStatusGenerated: 2,
		models.TicketStatusSent:      1,
		models.TicketStatusCheckedIn: 1,
	}, got)
}
