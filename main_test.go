package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"ms-checkin/internal/auth"
	"ms-checkin/internal/clock"
	"ms-checkin/internal/config"
	"ms-checkin/internal/database/migrations"
	"ms-checkin/internal/kafka"
	"ms-checkin/internal/lock"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/sse"
	"ms-checkin/internal/testutil"
)

type client struct {
	t   *testing.T
	srv *httptest.Server
}

func (c *client) do(method, path, bearer, body string) (int, []byte) {
	req, err := http.NewRequest(method, c.srv.URL+path, strings.NewReader(body))
	require.NoError(c.t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := c.srv.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, b
}

func (c *client) login(email string) string {
	status, body := c.do(http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`"}`)
	require.Equal(c.t, http.StatusOK, status, string(body))
	var resp models.LoginResponse
	require.NoError(c.t, json.Unmarshal(body, &resp))
	require.NotEmpty(c.t, resp.Token)
	return resp.Token
}

func newTestServer(t *testing.T) (*client, *bun.DB) {
	bunDB := testutil.NewDB(t)
	require.NoError(t, migrations.Seed(context.Background(), bunDB, time.Now().UTC().Add(-time.Hour)))

	cfg := &config.Config{
		Server:  config.ServerConfig{AllowedOrigins: []string{"*"}},
		Tickets: config.TicketConfig{TokenAttempts: 5, QRSize: 128, PDFFontPath: "missing.ttf"},
	}
	clk := clock.NewSystem()
	hmac := auth.NewHMAC("test-secret", time.Hour, clk)
	d := deps{
		Config:    cfg,
		Logger:    logger.Nop(),
		DB:        bunDB,
		Clock:     clk,
		Locker:    lock.NewLocal(),
		Publisher: &kafka.Memory{},
		Verifier:  hmac,
		Issuer:    hmac,
		Feed:      sse.NewCheckinEventEmitter(),
	}
	srv := httptest.NewServer(newRouter(d, newServices(d)))
	t.Cleanup(srv.Close)
	return &client{t: t, srv: srv}, bunDB
}

func ticketToken(t *testing.T, db *bun.DB, id string) string {
	var tk models.Ticket
	require.NoError(t, db.NewSelect().Model(&tk).Where("id = ?", id).Scan(context.Background()))
	return tk.Token
}

func TestCheckinFlow(t *testing.T) {
	c, db := newTestServer(t)
	staff := c.login("Staff@Evento.pro ")

	status, _ := c.do(http.MethodGet, "/api/events", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := c.do(http.MethodGet, "/api/auth/me", staff, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "canPerformCheckin")

	tok := ticketToken(t, db, "t-p-2")
	status, body = c.do(http.MethodGet, "/api/tickets/by-token/"+tok, staff, "")
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), "participant2@email.com")

	status, body = c.do(http.MethodPost, "/api/checkins", staff, `{"token":"`+tok+`","deviceInfo":"gate-1"}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = c.do(http.MethodPost, "/api/checkins", staff, `{"token":"`+tok+`"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(body), "ticket already used")

	status, body = c.do(http.MethodGet, "/api/events/event-1/summary", staff, "")
	require.Equal(t, http.StatusOK, status)
	var summary models.EventSummary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, 55, summary.Participants)
	assert.Equal(t, 15, summary.Checkins)
	assert.Equal(t, 15, summary.ByStatus[models.TicketStatusCheckedIn])

	status, body = c.do(http.MethodGet, "/api/events/event-1/checkins/hourly", staff, "")
	require.Equal(t, http.StatusOK, status)
	var series []models.HourlyCount
	require.NoError(t, json.Unmarshal(body, &series))
	total := 0
	for _, h := range series {
		total += h.Count
	}
	assert.Equal(t, 15, total)

	status, _ = c.do(http.MethodPost, "/api/events/event-1/participants/import", staff, `{"rows":[{"fullName":"X","email":"x@x.io"}]}`)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestOrganizerImportAndIssue(t *testing.T) {
	c, _ := newTestServer(t)
	org := c.login("org@evento.pro")

	status, body := c.do(http.MethodPost, "/api/events/event-1/participants/import", org,
		`{"rows":[{"fullName":"Participant 1 Renamed","email":"PARTICIPANT1@email.com"},{"fullName":"New Person","email":"new@x.io"},{"fullName":"","email":"broken"}]}`)
	require.Equal(t, http.StatusOK, status, string(body))
	var res models.ImportResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Updated)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Index)

	status, body = c.do(http.MethodGet, "/api/events/event-1/participants?page=6&pageSize=10", org, "")
	require.Equal(t, http.StatusOK, status)
	var page models.ParticipantPage
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, 56, page.Total)
	require.Len(t, page.Data, 6)
	assert.Equal(t, "new@x.io", page.Data[5].Email)

	status, body = c.do(http.MethodPost, "/api/events/event-1/tickets", org, `{"participantIds":["`+page.Data[5].ID+`","p-1"]}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.JSONEq(t, `{"created":1,"skipped":1}`, string(body))

	status, _ = c.do(http.MethodPost, "/api/events/event-2/publish", org, "")
	assert.Equal(t, http.StatusOK, status)
	status, _ = c.do(http.MethodPost, "/api/events/event-2/publish", org, "")
	assert.Equal(t, http.StatusConflict, status)
}
