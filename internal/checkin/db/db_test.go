package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-checkin/internal/checkin/db"
	"ms-checkin/internal/database"
	"ms-checkin/internal/models"
	"ms-checkin/internal/testutil"
)

func TestCheckinQueries(t *testing.T) {
	bunDB := testutil.NewDB(t)
	checkins := &db.DB{Bun: bunDB}
	ctx := context.Background()

	testutil.InsertEvent(t, bunDB, "e1", models.EventStatusPublished)
	for i, id := range []string{"a", "b"} {
		testutil.InsertParticipant(t, bunDB, "p"+id, "e1", id+"@x.io")
		testutil.InsertTicket(t, bunDB, "t"+id, "e1", "p"+id, "tok-"+id, models.TicketStatusCheckedIn)
		require.NoError(t, checkins.InsertCheckin(ctx, &models.Checkin{
			ID:        "c" + id,
			EventID:   "e1",
			TicketID:  "t" + id,
			ScannedAt: testutil.Base.Add(time.Duration(2-i) * time.Hour),
			ScannedBy: "u-staff",
		}))
	}

	n, err := checkins.CountCheckins(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	c, err := checkins.GetCheckinByTicket(ctx, "ta")
	require.NoError(t, err)
	assert.Equal(t, "ca", c.ID)

	times, err := checkins.ScanTimes(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, times, 2)
	assert.True(t, times[0].Equal(testutil.Base.Add(time.Hour)))
	assert.True(t, times[1].Equal(testutil.Base.Add(2*time.Hour)))

	err = checkins.InsertCheckin(ctx, &models.Checkin{ID: "c-dup", EventID: "e1", TicketID: "ta", ScannedAt: testutil.Base, ScannedBy: "u-staff"})
	assert.True(t, database.IsUniqueViolation(err))
}
