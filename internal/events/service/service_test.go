package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-checkin/internal/audit"
	"ms-checkin/internal/clock"
	"ms-checkin/internal/events/db"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/testutil"
)

func setupService(t *testing.T) (*EventService, map[models.Role]*models.User) {
	bunDB := testutil.NewDB(t)
	users := testutil.InsertUsers(t, bunDB)
	svc := NewEventService(&db.DB{Bun: bunDB}, audit.Nop{}, clock.NewManual(testutil.Base), logger.Nop())
	return svc, users
}

func createRequest() models.CreateEventRequest {
	return models.CreateEventRequest{
		Name:    "Launch",
		StartAt: testutil.Base.Add(24 * time.Hour),
		EndAt:   testutil.Base.Add(30 * time.Hour),
	}
}

func TestCreateEvent(t *testing.T) {
	svc, users := setupService(t)
	ctx := context.Background()

	e, err := svc.CreateEvent(ctx, users[models.RoleOrganizer], createRequest())
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusDraft, e.Status)

	got, err := svc.GetEvent(ctx, users[models.RoleViewer], e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch", got.Name)

	_, err = svc.CreateEvent(ctx, users[models.RoleStaff], createRequest())
	assert.ErrorIs(t, err, models.ErrForbidden)

	bad := createRequest()
	bad.EndAt = bad.StartAt.Add(-time.Hour)
	_, err = svc.CreateEvent(ctx, users[models.RoleAdmin], bad)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestEventStatusIsMonotonic(t *testing.T) {
	svc, users := setupService(t)
	ctx := context.Background()
	org := users[models.RoleOrganizer]

	e, err := svc.CreateEvent(ctx, org, createRequest())
	require.NoError(t, err)

	_, err = svc.Finish(ctx, org, e.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	e, err = svc.Publish(ctx, org, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusPublished, e.Status)

	_, err = svc.Publish(ctx, org, e.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	e, err = svc.Finish(ctx, org, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusFinished, e.Status)

	_, err = svc.Publish(ctx, users[models.RoleStaff], e.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.Publish(ctx, org, "missing")
	assert.ErrorIs(t, err, models.ErrEventNotFound)
}

func TestListEventsRequiresUser(t *testing.T) {
	svc, users := setupService(t)
	_, err := svc.ListEvents(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	list, err := svc.ListEvents(context.Background(), users[models.RoleViewer])
	require.NoError(t, err)
	assert.Empty(t, list)
}
