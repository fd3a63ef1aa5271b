package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-checkin/internal/audit"
	"ms-checkin/internal/clock"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/testutil"
)

func TestRecordAndList(t *testing.T) {
	db := testutil.NewDB(t)
	rec := audit.NewDB(db, clock.NewManual(testutil.Base), logger.Nop())
	ctx := context.Background()

	rec.Record(ctx, "u-staff", audit.ActionCheckinConfirmed, "ticket", "t1", map[string]any{"device": "gate-1"})
	rec.Record(ctx, "u-org", audit.ActionTicketSent, "ticket", "t1", nil)
	rec.Record(ctx, "u-org", audit.ActionTicketSent, "ticket", "t2", nil)

	entries, err := rec.List(ctx, "ticket", "t1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "gate-1", entries[0].Metadata["device"])
	assert.True(t, testutil.Base.Equal(entries[0].Timestamp))
}

func TestRecordSwallowsErrors(t *testing.T) {
	db := testutil.NewDB(t)
	rec := audit.NewDB(db, clock.NewSystem(), logger.Nop())
	require.NoError(t, db.Close())

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), "u", "x", "y", "z", nil)
	})
}
