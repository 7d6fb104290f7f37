package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rifahub/raffle-api/internal/domain"
	"github.com/rifahub/raffle-api/internal/repository"
)

type fakeTicketRepo struct {
	tickets  []domain.Ticket
	version  int64
	failSave bool
	saves    int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets: domain.NewTicketSet(),
		version: 1,
	}
}

func (f *fakeTicketRepo) Load(_ context.Context) ([]domain.Ticket, int64, error) {
	return cloneTickets(f.tickets), f.version, nil
}

func (f *fakeTicketRepo) Save(_ context.Context, tickets []domain.Ticket, expectedVersion int64) (int64, error) {
	if len(tickets) == 0 {
		return expectedVersion, nil
	}
	if f.failSave || expectedVersion != f.version {
		return 0, repository.ErrSnapshotConflict
	}

	f.tickets = cloneTickets(tickets)
	f.version++
	f.saves++

	return f.version, nil
}

func cloneTickets(tickets []domain.Ticket) []domain.Ticket {
	out := make([]domain.Ticket, len(tickets))
	for i, t := range tickets {
		out[i] = t
		if t.ReservedAt != nil {
			at := *t.ReservedAt
			out[i].ReservedAt = &at
		}
		if t.Buyer != nil {
			b := *t.Buyer
			out[i].Buyer = &b
		}
	}

	return out
}

type fakeNotifier struct {
	notified chan []string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{notified: make(chan []string, 1)}
}

func (f *fakeNotifier) NotifyReservation(_ context.Context, _ domain.BuyerInfo, numbers []string) error {
	f.notified <- numbers

	return nil
}

var (
	testInfo = domain.RaffleInfo{
		Title: "Sorteio de teste",
		Price: 30,
	}
	testBuyer = domain.BuyerInfo{
		Name:     "Maria Silva",
		WhatsApp: "5537999990000",
	}
)

func newTestService(repo *fakeTicketRepo, ntf *fakeNotifier, at time.Time) *RaffleService {
	svc := NewRaffleService(repo, NewSelectionTracker(time.Hour), ntf, testInfo, 48*time.Hour)
	svc.now = func() time.Time { return at }

	return svc
}

func TestRaffleService_Checkout(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	repo := newFakeTicketRepo()
	ntf := newFakeNotifier()
	svc := newTestService(repo, ntf, now)

	_, err := svc.ToggleSelection(ctx, "visitor-1", "005")
	require.NoError(t, err)
	_, err = svc.ToggleSelection(ctx, "visitor-1", "012")
	require.NoError(t, err)

	result, err := svc.Checkout(ctx, "visitor-1", testBuyer)
	require.NoError(t, err)

	assert.Equal(t, []string{"005", "012"}, result.Numbers)
	assert.Equal(t, now, result.ReservedAt)
	assert.Equal(t, now.Add(48*time.Hour), result.ExpiresAt)
	assert.Equal(t, 60.0, result.TotalPrice)
	assert.Contains(t, result.Notice, "48 horas")

	// Both tickets persisted as reserved with the same timestamp and buyer.
	for _, number := range result.Numbers {
		ticket := findTicket(repo.tickets, number)
		require.NotNil(t, ticket)
		assert.Equal(t, domain.StatusReserved, ticket.Status)
		require.NotNil(t, ticket.ReservedAt)
		assert.Equal(t, now, *ticket.ReservedAt)
		require.NotNil(t, ticket.Buyer)
		assert.Equal(t, testBuyer, *ticket.Buyer)
	}

	assert.Empty(t, svc.Selection("visitor-1"), "selection cleared on successful checkout")

	select {
	case numbers := <-ntf.notified:
		assert.Equal(t, []string{"005", "012"}, numbers)
	case <-time.After(time.Second):
		t.Fatal("notification was never dispatched")
	}
}

func TestRaffleService_Checkout_EmptySelection(t *testing.T) {
	svc := newTestService(newFakeTicketRepo(), newFakeNotifier(), time.Now())

	_, err := svc.Checkout(context.Background(), "visitor-1", testBuyer)
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestRaffleService_Checkout_StaleSelection(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	repo := newFakeTicketRepo()
	svc := newTestService(repo, newFakeNotifier(), now)

	_, err := svc.ToggleSelection(ctx, "visitor-1", "005")
	require.NoError(t, err)

	// Another session reserves 005 underneath the selection.
	require.NoError(t, repo.tickets[5].Reserve(testBuyer, now))
	repo.version++

	_, err = svc.Checkout(ctx, "visitor-1", testBuyer)
	assert.ErrorIs(t, err, ErrTicketUnavailable)
}

func TestRaffleService_Checkout_SaveConflict(t *testing.T) {
	ctx := context.Background()

	repo := newFakeTicketRepo()
	svc := newTestService(repo, newFakeNotifier(), time.Now())

	_, err := svc.ToggleSelection(ctx, "visitor-1", "005")
	require.NoError(t, err)

	repo.failSave = true
	_, err = svc.Checkout(ctx, "visitor-1", testBuyer)
	assert.ErrorIs(t, err, ErrStoreConflict)

	// A failed checkout keeps the selection so the visitor can retry.
	assert.Equal(t, []string{"005"}, svc.Selection("visitor-1"))
}

func TestRaffleService_ToggleSelection(t *testing.T) {
	ctx := context.Background()

	repo := newFakeTicketRepo()
	svc := newTestService(repo, newFakeNotifier(), time.Now())

	numbers, err := svc.ToggleSelection(ctx, "visitor-1", "007")
	require.NoError(t, err)
	assert.Equal(t, []string{"007"}, numbers)

	// Toggle is its own inverse.
	numbers, err = svc.ToggleSelection(ctx, "visitor-1", "007")
	require.NoError(t, err)
	assert.Empty(t, numbers)

	// Toggling a non-available number is a silent no-op.
	require.NoError(t, repo.tickets[9].Reserve(testBuyer, time.Now()))
	repo.version++
	numbers, err = svc.ToggleSelection(ctx, "visitor-1", "009")
	require.NoError(t, err)
	assert.Empty(t, numbers)

	_, err = svc.ToggleSelection(ctx, "visitor-1", "999")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestRaffleService_ConfirmPayment(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	repo := newFakeTicketRepo()
	require.NoError(t, repo.tickets[5].Reserve(testBuyer, now))
	svc := newTestService(repo, newFakeNotifier(), now)

	require.NoError(t, svc.ConfirmPayment(ctx, []string{"005"}))

	ticket := findTicket(repo.tickets, "005")
	assert.Equal(t, domain.StatusPaid, ticket.Status)
	require.NotNil(t, ticket.Buyer)
	assert.Equal(t, testBuyer, *ticket.Buyer)

	// Everything else untouched.
	stats := domain.CountByStatus(repo.tickets)
	assert.Equal(t, domain.TicketCount-1, stats.Available)
	assert.Equal(t, 1, stats.Paid)
}

func TestRaffleService_ConfirmPayment_RejectsNonReserved(t *testing.T) {
	ctx := context.Background()

	repo := newFakeTicketRepo()
	svc := newTestService(repo, newFakeNotifier(), time.Now())

	err := svc.ConfirmPayment(ctx, []string{"005"})
	assert.ErrorIs(t, err, ErrTicketNotReserved)
	assert.Zero(t, repo.saves, "a rejected confirmation must not persist anything")

	assert.ErrorIs(t, svc.ConfirmPayment(ctx, nil), ErrNoNumbers)
	assert.ErrorIs(t, svc.ConfirmPayment(ctx, []string{"998"}), ErrTicketNotFound)
}

func TestRaffleService_ExpirySweepOnLoad(t *testing.T) {
	ctx := context.Background()
	reservedAt := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	repo := newFakeTicketRepo()
	require.NoError(t, repo.tickets[3].Reserve(testBuyer, reservedAt))

	svc := newTestService(repo, newFakeNotifier(), reservedAt.Add(48*time.Hour+time.Minute))

	tickets, stats, err := svc.ListTickets(ctx)
	require.NoError(t, err)

	ticket := findTicket(tickets, "003")
	assert.Equal(t, domain.StatusAvailable, ticket.Status)
	assert.Nil(t, ticket.ReservedAt)
	assert.Nil(t, ticket.Buyer)
	assert.Equal(t, domain.TicketCount, stats.Available)

	// The demotion was persisted, not just served.
	assert.Equal(t, domain.StatusAvailable, repo.tickets[3].Status)
	assert.Equal(t, 1, repo.saves)
}

func TestRaffleService_ReleaseAndUnavailable(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	repo := newFakeTicketRepo()
	require.NoError(t, repo.tickets[1].Reserve(testBuyer, now))
	svc := newTestService(repo, newFakeNotifier(), now)

	require.NoError(t, svc.ReleaseTickets(ctx, []string{"001"}))
	assert.Equal(t, domain.StatusAvailable, repo.tickets[1].Status)
	assert.Nil(t, repo.tickets[1].Buyer)

	require.NoError(t, svc.MarkUnavailable(ctx, []string{"002"}))
	assert.Equal(t, domain.StatusUnavailable, repo.tickets[2].Status)

	assert.ErrorIs(t, svc.MarkUnavailable(ctx, []string{"002"}), ErrTicketUnavailable)
}
