package tickets

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-checkin/internal/audit"
	"ms-checkin/internal/clock"
	eventsdb "ms-checkin/internal/events/db"
	"ms-checkin/internal/kafka"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/testutil"
	"ms-checkin/internal/tickets/db"
	"ms-checkin/internal/tickets/token"
)

// sequence hands out the given tokens in order, then falls back to random ones.
type sequence struct {
	mu     sync.Mutex
	tokens []string
}

func (s *sequence) Generate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tokens) == 0 {
		return token.New()
	}
	tok := s.tokens[0]
	s.tokens = s.tokens[1:]
	return tok, nil
}

type fixture struct {
	svc   *TicketService
	store *db.DB
	pub   *kafka.Memory
	users map[models.Role]*models.User
}

func setup(t *testing.T, gen token.Generator) *fixture {
	bunDB := testutil.NewDB(t)
	users := testutil.InsertUsers(t, bunDB)
	testutil.InsertEvent(t, bunDB, "e1", models.EventStatusPublished)
	for i := 1; i <= 3; i++ {
		testutil.InsertParticipant(t, bunDB, fmt.Sprintf("p%d", i), "e1", fmt.Sprintf("p%d@x.io", i))
	}

	store := &db.DB{Bun: bunDB}
	pub := &kafka.Memory{}
	svc := NewTicketService(store, &eventsdb.DB{Bun: bunDB}, gen, 3, pub, audit.Nop{}, clock.NewManual(testutil.Base), logger.Nop())
	return &fixture{svc: svc, store: store, pub: pub, users: users}
}

func (f *fixture) participant(t *testing.T, id string) *models.Participant {
	var p models.Participant
	require.NoError(t, f.store.Bun.NewSelect().Model(&p).Where("id = ?", id).Scan(context.Background()))
	return &p
}

// assertMirrored checks that every participant with a ticket carries its status.
func (f *fixture) assertMirrored(t *testing.T) {
	var ts []models.Ticket
	require.NoError(t, f.store.Bun.NewSelect().Model(&ts).Relation("Participant").Scan(context.Background()))
	for _, tk := range ts {
		require.NotNil(t, tk.Participant)
		assert.Equal(t, tk.Status, tk.Participant.TicketStatus, "participant %s", tk.ParticipantID)
	}
}

func TestIssueTicketsSkipsTicketedAndUnknown(t *testing.T) {
	f := setup(t, token.Random{})
	ctx := context.Background()
	org := f.users[models.RoleOrganizer]

	res, err := f.svc.IssueTickets(ctx, org, "e1", []string{"p1", "p2", "p2", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, models.IssueResult{Created: 2, Skipped: 1}, *res)

	res, err = f.svc.IssueTickets(ctx, org, "e1", []string{"p1", "p2", "p3"})
	require.NoError(t, err)
	assert.Equal(t, models.IssueResult{Created: 1, Skipped: 2}, *res)

	assert.Len(t, f.pub.Snapshot(), 3)
	assert.Equal(t, models.TicketStatusGenerated, f.participant(t, "p1").TicketStatus)
	f.assertMirrored(t)

	_, err = f.svc.IssueTickets(ctx, org, "missing", []string{"p1"})
	assert.ErrorIs(t, err, models.ErrEventNotFound)

	_, err = f.svc.IssueTickets(ctx, org, "e1", nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.svc.IssueTickets(ctx, f.users[models.RoleViewer], "e1", []string{"p1"})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestIssueRejectsSecondTicket(t *testing.T) {
	f := setup(t, token.Random{})
	ctx := context.Background()
	p := f.participant(t, "p1")

	first, err := f.svc.Issue(ctx, p)
	require.NoError(t, err)
	assert.Len(t, first.Token, 22)

	_, err = f.svc.Issue(ctx, p)
	assert.ErrorIs(t, err, models.ErrDuplicateTicket)
}

func TestIssueRegeneratesCollidingToken(t *testing.T) {
	f := setup(t, &sequence{tokens: []string{"taken", "fresh"}})
	testutil.InsertTicket(t, f.store.Bun, "t-existing", "e1", "p2", "taken", models.TicketStatusGenerated)

	tk, err := f.svc.Issue(context.Background(), f.participant(t, "p1"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", tk.Token)
}

// blindDB hides existing tokens from the pre-check so the unique index has to catch them.
type blindDB struct {
	*db.DB
}

func (b *blindDB) TokenExists(context.Context, string) (bool, error) { return false, nil }

func TestIssueRetriesAfterTokenUniqueViolation(t *testing.T) {
	f := setup(t, &sequence{tokens: []string{"taken", "fresh"}})
	f.svc.DB = &blindDB{DB: f.store}
	testutil.InsertTicket(t, f.store.Bun, "t-existing", "e1", "p2", "taken", models.TicketStatusGenerated)

	tk, err := f.svc.Issue(context.Background(), f.participant(t, "p1"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", tk.Token)
}

func TestIssueGivesUpAfterAttempts(t *testing.T) {
	gen := token.GeneratorFunc(func() (string, error) { return "taken", nil })
	f := setup(t, gen)
	testutil.InsertTicket(t, f.store.Bun, "t-existing", "e1", "p2", "taken", models.TicketStatusGenerated)

	_, err := f.svc.Issue(context.Background(), f.participant(t, "p1"))
	assert.ErrorIs(t, err, models.ErrTokenExhausted)
	assert.Equal(t, models.KindInternal, models.KindOf(err))

	_, err = f.svc.DB.GetTicketByParticipant(context.Background(), "p1")
	assert.ErrorIs(t, err, models.ErrTicketNotFound)
}

func TestTicketTransitions(t *testing.T) {
	f := setup(t, token.Random{})
	ctx := context.Background()
	org := f.users[models.RoleOrganizer]

	tk, err := f.svc.Issue(ctx, f.participant(t, "p1"))
	require.NoError(t, err)

	sent, err := f.svc.MarkSent(ctx, org, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)
	assert.True(t, sent.SentAt.Equal(testutil.Base))

	_, err = f.svc.MarkSent(ctx, org, tk.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	require.NoError(t, f.svc.CheckIn(ctx, sent))
	assert.Equal(t, models.TicketStatusCheckedIn, sent.Status)

	err = f.svc.CheckIn(ctx, sent)
	assert.ErrorIs(t, err, models.ErrAlreadyCheckedIn)

	_, err = f.svc.MarkSent(ctx, org, tk.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = f.svc.MarkSent(ctx, org, "missing")
	assert.ErrorIs(t, err, models.ErrTicketNotFound)

	_, err = f.svc.MarkSent(ctx, f.users[models.RoleStaff], tk.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	f.assertMirrored(t)
}

func TestCheckInFromGenerated(t *testing.T) {
	f := setup(t, token.Random{})
	ctx := context.Background()

	tk, err := f.svc.Issue(ctx, f.participant(t, "p1"))
	require.NoError(t, err)
	require.NoError(t, f.svc.CheckIn(ctx, tk))
	require.NotNil(t, tk.CheckedInAt)
	assert.Nil(t, tk.SentAt)
	f.assertMirrored(t)
}

func TestHandleDeliveryReceipt(t *testing.T) {
	f := setup(t, token.Random{})
	ctx := context.Background()

	tk, err := f.svc.Issue(ctx, f.participant(t, "p1"))
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleDeliveryReceipt(ctx, kafka.DeliveryReceipt{TicketID: tk.ID}))
	got, err := f.store.GetTicketByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusSent, got.Status)

	assert.NoError(t, f.svc.HandleDeliveryReceipt(ctx, kafka.DeliveryReceipt{TicketID: tk.ID}))
	assert.NoError(t, f.svc.HandleDeliveryReceipt(ctx, kafka.DeliveryReceipt{TicketID: "missing"}))
}

func TestGetTicketByTokenPermissions(t *testing.T) {
	f := setup(t, token.Random{})
	ctx := context.Background()

	tk, err := f.svc.Issue(ctx, f.participant(t, "p1"))
	require.NoError(t, err)

	got, err := f.svc.GetTicketByToken(ctx, f.users[models.RoleStaff], tk.Token)
	require.NoError(t, err)
	require.NotNil(t, got.Participant)
	assert.Equal(t, "p1@x.io", got.Participant.Email)

	_, err = f.svc.GetTicketByToken(ctx, f.users[models.RoleViewer], tk.Token)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.svc.GetTicketByToken(ctx, nil, tk.Token)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	_, _, err = f.svc.PrintableTicket(ctx, f.users[models.RoleStaff], tk.Token)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, event, err := f.svc.PrintableTicket(ctx, f.users[models.RoleOrganizer], tk.Token)
	require.NoError(t, err)
	assert.Equal(t, "e1", event.ID)
}
