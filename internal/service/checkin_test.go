package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uch-creative-hub/booking-api/internal/model"
	q "github.com/uch-creative-hub/booking-api/internal/queue"
)

type checkinFixture struct {
	svc   *CheckinService
	store *memStore
	pub   *recordingPublisher
	clock time.Time
}

func newCheckinFixture() *checkinFixture {
	f := &checkinFixture{
		store: newMemStore(),
		pub:   &recordingPublisher{},
		clock: time.Date(2025, 6, 2, 9, 45, 0, 0, wib),
	}
	f.store.addUser(1, "Sari", "sari@uch.ac.id")
	f.store.addUser(2, "Budi", "budi@uch.ac.id")
	f.svc = NewCheckinService(testCalendar(), f.store, f.store, f.store, NewNotifier(f.pub), "admin@uch.ac.id")
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *checkinFixture) approved(owner uint64) uint64 {
	return f.store.put(localBooking(owner, "Think Tank Room", "2025-06-02", 10, 12, model.BookingApproved))
}

func TestIssueToken(t *testing.T) {
	f := newCheckinFixture()
	id := f.approved(1)

	tok, err := f.svc.IssueToken(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, tok.Token, 64)
	assert.Equal(t, id, tok.BookingID)
	endOfDay := time.Date(2025, 6, 2, 23, 59, 59, 999999999, wib)
	assert.True(t, tok.ExpiresAt.Equal(endOfDay), "expires %s", tok.ExpiresAt)
	assert.Equal(t, time.UTC, tok.ExpiresAt.Location())

	again, err := f.svc.IssueToken(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, tok.Token, again.Token)
}

func TestIssueTokenRejects(t *testing.T) {
	f := newCheckinFixture()
	pending := f.store.put(localBooking(1, "Think Tank Room", "2025-06-02", 10, 12, model.BookingPending))

	_, err := f.svc.IssueToken(context.Background(), pending)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.IssueToken(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

// racingTokens makes the first Create lose to a token inserted meanwhile.
type racingTokens struct {
	*memStore
	once sync.Once
}

func (r *racingTokens) Create(ctx context.Context, t *model.QRToken) error {
	r.once.Do(func() {
		winner := model.QRToken{BookingID: t.BookingID, Token: "winner", ExpiresAt: t.ExpiresAt}
		_ = r.memStore.Create(ctx, &winner)
	})
	return r.memStore.Create(ctx, t)
}

func TestIssueTokenLosingRaceReturnsWinner(t *testing.T) {
	f := newCheckinFixture()
	id := f.approved(1)
	f.svc.tokens = &racingTokens{memStore: f.store}

	tok, err := f.svc.IssueToken(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "winner", tok.Token)
}

func TestIssueTokenRandomFailure(t *testing.T) {
	f := newCheckinFixture()
	id := f.approved(1)
	f.svc.random = func(int) (string, error) { return "", errors.New("entropy exhausted") }

	_, err := f.svc.IssueToken(context.Background(), id)
	assert.Error(t, err)
	_, err = f.store.GetByBookingID(context.Background(), id)
	assert.Error(t, err, "no token stored")
}

func TestRedeemOnce(t *testing.T) {
	f := newCheckinFixture()
	id := f.approved(1)
	tok, err := f.svc.IssueToken(context.Background(), id)
	require.NoError(t, err)

	res, err := f.svc.Redeem(context.Background(), tok.Token, 1)
	require.NoError(t, err)
	assert.Equal(t, id, res.Checkin.BookingID)
	assert.Equal(t, uint64(1), res.Checkin.UserID)
	assert.Equal(t, model.BookingCheckedIn, res.Booking.Status)
	assert.Equal(t, model.BookingCheckedIn, f.store.status(id))

	_, err = f.svc.Redeem(context.Background(), tok.Token, 1)
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)
	assert.ErrorIs(t, err, ErrConflict)

	require.Eventually(t, func() bool { return len(f.pub.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	ev := f.pub.snapshot()[0]
	assert.Equal(t, q.EventBookingCheckedIn, ev.Type)
	assert.Equal(t, "admin@uch.ac.id", ev.Recipient)
	assert.Equal(t, "09:45", ev.OccurredAt)
}

func TestRedeemExpiredLeavesBookingApproved(t *testing.T) {
	f := newCheckinFixture()
	id := f.approved(1)
	tok, err := f.svc.IssueToken(context.Background(), id)
	require.NoError(t, err)

	f.clock = time.Date(2025, 6, 3, 0, 0, 1, 0, wib)
	_, err = f.svc.Redeem(context.Background(), tok.Token, 1)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, model.BookingApproved, f.store.status(id))
	assert.Empty(t, f.store.checkins)
}

func TestRedeemByOtherUserIsForbidden(t *testing.T) {
	f := newCheckinFixture()
	id := f.approved(1)
	tok, err := f.svc.IssueToken(context.Background(), id)
	require.NoError(t, err)

	_, err = f.svc.Redeem(context.Background(), tok.Token, 2)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, model.BookingApproved, f.store.status(id))
	assert.Empty(t, f.store.checkins)
}

func TestRedeemRejectedAfterIssue(t *testing.T) {
	f := newCheckinFixture()
	id := f.approved(1)
	tok, err := f.svc.IssueToken(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateStatus(context.Background(), id, model.BookingRejected))

	_, err = f.svc.Redeem(context.Background(), tok.Token, 1)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrAlreadyRedeemed)
}

func TestRedeemUnknownOrEmptyToken(t *testing.T) {
	f := newCheckinFixture()
	_, err := f.svc.Redeem(context.Background(), "deadbeef", 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Redeem(context.Background(), " ", 1)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestConcurrentRedeemSucceedsOnce(t *testing.T) {
	f := newCheckinFixture()
	id := f.approved(1)
	tok, err := f.svc.IssueToken(context.Background(), id)
	require.NoError(t, err)

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		redeemed  int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Redeem(context.Background(), tok.Token, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrAlreadyRedeemed):
				redeemed++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, redeemed)
	assert.Len(t, f.store.checkins, 1)
}
