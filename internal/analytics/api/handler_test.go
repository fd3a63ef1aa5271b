package analytics_api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-checkin/internal/analytics"
	"ms-checkin/internal/auth"
	checkindb "ms-checkin/internal/checkin/db"
	eventsdb "ms-checkin/internal/events/db"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	participantsdb "ms-checkin/internal/participants/db"
	"ms-checkin/internal/testutil"
	ticketsdb "ms-checkin/internal/tickets/db"
)

func TestReportRoutes(t *testing.T) {
	bunDB := testutil.NewDB(t)
	testutil.InsertEvent(t, bunDB, "e1", models.EventStatusPublished)
	testutil.InsertParticipant(t, bunDB, "p1", "e1", "a@x.io")

	svc := analytics.NewService(&eventsdb.DB{Bun: bunDB}, &participantsdb.DB{Bun: bunDB}, &ticketsdb.DB{Bun: bunDB}, &checkindb.DB{Bun: bunDB})
	h := NewHandler(svc, logger.Nop())

	viewer := testutil.Users()[models.RoleViewer]
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithUser(req.Context(), viewer)))
		})
	})
	r.Route("/api/events/{eventId}", h.RegisterRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/e1/checkins/hourly", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/e1/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var s models.EventSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, 1, s.Participants)
	assert.Equal(t, 0, s.Tickets)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/nope/summary", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
