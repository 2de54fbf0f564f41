package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookingFixture struct {
	db                      *DB
	owner, booker           *models.User
	item                    *models.Item
	now                     time.Time
	past, current, future   *models.Booking
	waitingFuture, rejected *models.Booking
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	db := setupTestDB(t)
	f := &bookingFixture{db: db, now: time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC)}
	f.owner = createTestUser(t, db, "owner")
	f.booker = createTestUser(t, db, "booker")
	f.item = createTestItem(t, db, f.owner.ID, "kayak", true)

	h := time.Hour
	f.past = createTestBooking(t, db, f.item.ID, f.booker.ID, f.now.Add(-72*h), f.now.Add(-48*h), models.StatusApproved)
	f.current = createTestBooking(t, db, f.item.ID, f.booker.ID, f.now.Add(-h), f.now.Add(h), models.StatusApproved)
	f.future = createTestBooking(t, db, f.item.ID, f.booker.ID, f.now.Add(48*h), f.now.Add(72*h), models.StatusApproved)
	f.waitingFuture = createTestBooking(t, db, f.item.ID, f.booker.ID, f.now.Add(96*h), f.now.Add(120*h), models.StatusWaiting)
	f.rejected = createTestBooking(t, db, f.item.ID, f.booker.ID, f.now.Add(24*h), f.now.Add(30*h), models.StatusRejected)
	return f
}

func ids(bookings []*models.Booking) []int64 {
	out := make([]int64, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.ID)
	}
	return out
}

func TestListBookings_States(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	page := models.NewPage(0, 20)

	tests := []struct {
		state models.BookingState
		want  []int64
	}{
		{models.StateAll, []int64{f.waitingFuture.ID, f.future.ID, f.rejected.ID, f.current.ID, f.past.ID}},
		{models.StateCurrent, []int64{f.current.ID}},
		{models.StatePast, []int64{f.past.ID}},
		{models.StateFuture, []int64{f.waitingFuture.ID, f.future.ID, f.rejected.ID}},
		{models.StateWaiting, []int64{f.waitingFuture.ID}},
		{models.StateRejected, []int64{f.rejected.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			byBooker, err := f.db.ListBookings(ctx, models.BookingFilter{BookerID: f.booker.ID, State: tt.state, Now: f.now, Page: page})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(byBooker))

			byOwner, err := f.db.ListBookings(ctx, models.BookingFilter{OwnerID: f.owner.ID, State: tt.state, Now: f.now, Page: page})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(byOwner))
		})
	}
}

func TestListBookings_Paging(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	first, err := f.db.ListBookings(ctx, models.BookingFilter{BookerID: f.booker.ID, Now: f.now, Page: models.NewPage(0, 2)})
	require.NoError(t, err)
	assert.Equal(t, []int64{f.waitingFuture.ID, f.future.ID}, ids(first))

	second, err := f.db.ListBookings(ctx, models.BookingFilter{BookerID: f.booker.ID, Now: f.now, Page: models.NewPage(2, 2)})
	require.NoError(t, err)
	assert.Equal(t, []int64{f.rejected.ID, f.current.ID}, ids(second))

	third, err := f.db.ListBookings(ctx, models.BookingFilter{BookerID: f.booker.ID, Now: f.now, Page: models.NewPage(4, 2)})
	require.NoError(t, err)
	assert.Equal(t, []int64{f.past.ID}, ids(third))
}

func TestListBookings_OtherUsers(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	list, err := f.db.ListBookings(ctx, models.BookingFilter{BookerID: f.owner.ID, Now: f.now, Page: models.NewPage(0, 20)})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.db.ListBookings(ctx, models.BookingFilter{OwnerID: f.booker.ID, Now: f.now, Page: models.NewPage(0, 20)})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetBooking_RoundTripsTimes(t *testing.T) {
	f := newBookingFixture(t)

	got, err := f.db.GetBooking(context.Background(), f.current.ID)
	require.NoError(t, err)
	assert.True(t, got.Start.Equal(f.now.Add(-time.Hour)))
	assert.True(t, got.End.Equal(f.now.Add(time.Hour)))
	assert.Equal(t, models.StatusApproved, got.Status)

	_, err = f.db.GetBooking(context.Background(), 9999)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpdateBookingStatus(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.UpdateBookingStatus(ctx, f.waitingFuture.ID, models.StatusWaiting, models.StatusApproved))

	got, err := f.db.GetBooking(ctx, f.waitingFuture.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)

	err = f.db.UpdateBookingStatus(ctx, f.waitingFuture.ID, models.StatusWaiting, models.StatusRejected)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestLastAndNextBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	last, err := f.db.GetLastBooking(ctx, f.item.ID, f.owner.ID, f.now)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, f.current.ID, last.ID)

	next, err := f.db.GetNextBooking(ctx, f.item.ID, f.owner.ID, f.now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, f.future.ID, next.ID, "rejected booking starts sooner but is ignored")

	// Owner's own bookings are never reported.
	createTestBooking(t, f.db, f.item.ID, f.owner.ID, f.now.Add(2*time.Hour), f.now.Add(3*time.Hour), models.StatusApproved)
	next, err = f.db.GetNextBooking(ctx, f.item.ID, f.owner.ID, f.now)
	require.NoError(t, err)
	assert.Equal(t, f.future.ID, next.ID)

	none, err := f.db.GetLastBooking(ctx, f.item.ID, f.owner.ID, f.now.Add(-1000*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestHasFinishedApprovedBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	ok, err := f.db.HasFinishedApprovedBooking(ctx, f.item.ID, f.booker.ID, f.now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.db.HasFinishedApprovedBooking(ctx, f.item.ID, f.booker.ID, f.now.Add(-100*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.db.HasFinishedApprovedBooking(ctx, f.item.ID, f.owner.ID, f.now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateBookingExclusive(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	h := time.Hour

	overlapping := &models.Booking{ItemID: f.item.ID, BookerID: f.booker.ID, Start: f.now.Add(60 * h), End: f.now.Add(80 * h)}
	err := f.db.CreateBookingExclusive(ctx, overlapping)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	// Touching the end of an existing booking is allowed.
	adjacent := &models.Booking{ItemID: f.item.ID, BookerID: f.booker.ID, Start: f.now.Add(72 * h), End: f.now.Add(90 * h)}
	require.NoError(t, f.db.CreateBookingExclusive(ctx, adjacent))
	assert.Equal(t, models.StatusWaiting, adjacent.Status)

	// Rejected bookings do not block.
	overRejected := &models.Booking{ItemID: f.item.ID, BookerID: f.booker.ID, Start: f.now.Add(25 * h), End: f.now.Add(26 * h)}
	require.NoError(t, f.db.CreateBookingExclusive(ctx, overRejected))
}

func TestCreateBookingExclusive_Concurrent(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	start := f.now.Add(500 * time.Hour)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := &models.Booking{ItemID: f.item.ID, BookerID: f.booker.ID, Start: start, End: start.Add(time.Hour)}
			if err := f.db.CreateBookingExclusive(ctx, b); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}
