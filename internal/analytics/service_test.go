package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	checkindb "ms-checkin/internal/checkin/db"
	eventsdb "ms-checkin/internal/events/db"
	"ms-checkin/internal/models"
	participantsdb "ms-checkin/internal/participants/db"
	"ms-checkin/internal/testutil"
	ticketsdb "ms-checkin/internal/tickets/db"
)

func TestHourlySeriesFillsGaps(t *testing.T) {
	base := testutil.Base // 08:00 UTC
	times := []time.Time{
		base.Add(3*time.Hour + 10*time.Minute),
		base.Add(5 * time.Minute),
		base.Add(59 * time.Minute),
		base.Add(3*time.Hour + 50*time.Minute).In(time.FixedZone("BRT", -3*3600)),
	}

	series := HourlySeries(times)
	require.Len(t, series, 4)

	labels := make([]string, len(series))
	counts := make([]int, len(series))
	for i, h := range series {
		labels[i], counts[i] = h.Time, h.Count
	}
	assert.Equal(t, []string{"08:00", "09:00", "10:00", "11:00"}, labels)
	assert.Equal(t, []int{2, 0, 0, 2}, counts)
	assert.Equal(t, time.UTC, series[0].Hour.Location())

	assert.Empty(t, HourlySeries(nil))
}

func setup(t *testing.T) (*Service, map[models.Role]*models.User) {
	bunDB := testutil.NewDB(t)
	users := testutil.InsertUsers(t, bunDB)
	testutil.InsertEvent(t, bunDB, "e1", models.EventStatusPublished)

	statuses := []models.TicketStatus{models.TicketStatusGenerated, models.TicketStatusSent, models.TicketStatusCheckedIn, models.TicketStatusCheckedIn}
	for i, st := range statuses {
		pid := fmt.Sprintf("p%d", i)
		testutil.InsertParticipant(t, bunDB, pid, "e1", pid+"@x.io")
		testutil.InsertTicket(t, bunDB, "t"+pid, "e1", pid, "tok-"+pid, st)
		if st == models.TicketStatusCheckedIn {
			_, err := bunDB.NewInsert().Model(&models.Checkin{
				ID: "c" + pid, EventID: "e1", TicketID: "t" + pid,
				ScannedAt: testutil.Base.Add(time.Duration(i) * time.Hour), ScannedBy: "u-staff",
			}).Exec(context.Background())
			require.NoError(t, err)
		}
	}
	testutil.InsertParticipant(t, bunDB, "no-ticket", "e1", "nt@x.io")

	svc := NewService(&eventsdb.DB{Bun: bunDB}, &participantsdb.DB{Bun: bunDB}, &ticketsdb.DB{Bun: bunDB}, &checkindb.DB{Bun: bunDB})
	return svc, users
}

func TestCheckinsByHour(t *testing.T) {
	svc, users := setup(t)
	ctx := context.Background()

	series, err := svc.CheckinsByHour(ctx, users[models.RoleViewer], "e1")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "10:00", series[0].Time)
	assert.Equal(t, "11:00", series[1].Time)

	_, err = svc.CheckinsByHour(ctx, users[models.RoleViewer], "missing")
	assert.ErrorIs(t, err, models.ErrEventNotFound)

	_, err = svc.CheckinsByHour(ctx, nil, "e1")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestEventSummary(t *testing.T) {
	svc, users := setup(t)

	s, err := svc.EventSummary(context.Background(), users[models.RoleStaff], "e1")
	require.NoError(t, err)
	assert.Equal(t, 5, s.Participants)
	assert.Equal(t, 4, s.Tickets)
	assert.Equal(t, 2, s.Checkins)
	assert.Equal(t, map[models.TicketStatus]int{
		models.TicketStatusGenerated: 1,
		models.TicketStatusSent:      1,
		models.TicketStatusCheckedIn: 2,
	}, s.ByStatus)
}
