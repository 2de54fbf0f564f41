package service

import (
	"context"
	"time"

	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type BookingService struct {
	clock
	repo           domain.Repository
	eventBus       domain.EventPublisher
	preventOverlap bool
	logger         *zerolog.Logger
}

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, preventOverlap bool, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		clock:          newClock(),
		repo:           repo,
		eventBus:       eventBus,
		preventOverlap: preventOverlap,
		logger:         logger,
	}
}

// Create places a WAITING booking of an item for the booker.
func (s *BookingService) Create(ctx context.Context, bookerID int64, in models.BookingInput) (*models.BookingView, error) {
	booker, err := s.repo.GetUserByID(ctx, bookerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if in.Start.IsZero() || in.End.IsZero() || !in.Start.Before(in.End) || in.Start.Before(now) {
		return nil, domain.Validationf("incorrect booking time")
	}

	item, err := s.repo.GetItemByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.Available {
		return nil, domain.Conflictf("item not available")
	}
	if item.OwnerID == bookerID {
		return nil, domain.NotFoundf("owner cannot book own item %d", item.ID)
	}

	booking := &models.Booking{
		ItemID:   item.ID,
		BookerID: booker.ID,
		Start:    in.Start,
		End:      in.End,
		Status:   models.StatusWaiting,
	}

	if s.preventOverlap {
		err = s.repo.CreateBookingExclusive(ctx, booking)
	} else {
		err = s.repo.CreateBooking(ctx, booking)
	}
	if err != nil {
		return nil, err
	}

	metrics.IncBooking(string(booking.Status))
	s.publish(events.EventBookingCreated, booking, item, bookerID)
	s.logger.Info().Int64("booking_id", booking.ID).Int64("item_id", item.ID).Int64("booker_id", bookerID).Msg("Booking created")

	return newBookingView(booking, item, booker), nil
}

// Confirm lets the item owner approve or reject a WAITING booking.
func (s *BookingService) Confirm(ctx context.Context, bookingID, userID int64, approve bool) (*models.BookingView, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.GetItemByID(ctx, booking.ItemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != userID {
		return nil, domain.NotFoundf("booking %d not found", bookingID)
	}

	target := models.StatusRejected
	if approve {
		target = models.StatusApproved
	}

	switch {
	case booking.Status == models.StatusApproved:
		return nil, domain.Conflictf("already booked")
	case !booking.Status.CanTransition(target):
		return nil, domain.Conflictf("booking %d is already %s", bookingID, booking.Status)
	}

	if err := s.repo.UpdateBookingStatus(ctx, booking.ID, booking.Status, target); err != nil {
		return nil, err
	}
	booking.Status = target

	booker, err := s.repo.GetUserByID(ctx, booking.BookerID)
	if err != nil {
		return nil, err
	}

	eventType := events.EventBookingRejected
	if approve {
		eventType = events.EventBookingApproved
	}
	metrics.IncBooking(string(target))
	s.publish(eventType, booking, item, userID)
	s.logger.Info().Int64("booking_id", booking.ID).Str("status", string(target)).Msg("Booking decided")

	return newBookingView(booking, item, booker), nil
}

// Get returns a booking visible to its booker or the item owner.
func (s *BookingService) Get(ctx context.Context, bookingID, userID int64) (*models.BookingView, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.GetItemByID(ctx, booking.ItemID)
	if err != nil {
		return nil, err
	}
	if booking.BookerID != userID && item.OwnerID != userID {
		return nil, domain.NotFoundf("booking %d not found", bookingID)
	}

	booker, err := s.repo.GetUserByID(ctx, booking.BookerID)
	if err != nil {
		return nil, err
	}
	return newBookingView(booking, item, booker), nil
}

// ListByBooker lists the user's own bookings in the given state.
func (s *BookingService) ListByBooker(ctx context.Context, userID int64, state models.BookingState, page models.Page) ([]*models.BookingView, error) {
	return s.list(ctx, userID, models.BookingFilter{BookerID: userID, State: state, Page: page})
}

// ListByOwner lists bookings of items the user owns in the given state.
func (s *BookingService) ListByOwner(ctx context.Context, userID int64, state models.BookingState, page models.Page) ([]*models.BookingView, error) {
	return s.ListByOwnerAt(ctx, userID, state, page, s.Now())
}

// ListByOwnerAt is ListByOwner with the state evaluated at now, so several pages can share one instant.
func (s *BookingService) ListByOwnerAt(ctx context.Context, userID int64, state models.BookingState, page models.Page, now time.Time) ([]*models.BookingView, error) {
	return s.list(ctx, userID, models.BookingFilter{OwnerID: userID, State: state, Page: page, Now: now})
}

func (s *BookingService) list(ctx context.Context, userID int64, filter models.BookingFilter) ([]*models.BookingView, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := validatePage(filter.Page); err != nil {
		return nil, err
	}

	if filter.Now.IsZero() {
		filter.Now = s.now()
	}
	bookings, err := s.repo.ListBookings(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make(map[int64]*models.Item)
	users := make(map[int64]*models.User)
	views := make([]*models.BookingView, 0, len(bookings))
	for _, b := range bookings {
		item, ok := items[b.ItemID]
		if !ok {
			if item, err = s.repo.GetItemByID(ctx, b.ItemID); err != nil {
				return nil, err
			}
			items[b.ItemID] = item
		}
		booker, ok := users[b.BookerID]
		if !ok {
			if booker, err = s.repo.GetUserByID(ctx, b.BookerID); err != nil {
				return nil, err
			}
			users[b.BookerID] = booker
		}
		views = append(views, newBookingView(b, item, booker))
	}
	return views, nil
}

func (s *BookingService) publish(eventType string, booking *models.Booking, item *models.Item, changedBy int64) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		ItemID:    item.ID,
		ItemName:  item.Name,
		OwnerID:   item.OwnerID,
		BookerID:  booking.BookerID,
		Status:    string(booking.Status),
		Start:     booking.Start,
		End:       booking.End,
		ChangedBy: changedBy,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Int64("booking_id", booking.ID).Msg("Failed to publish booking event")
	}
}

func newBookingView(b *models.Booking, item *models.Item, booker *models.User) *models.BookingView {
	return &models.BookingView{
		ID:     b.ID,
		Start:  b.Start,
		End:    b.End,
		Status: b.Status,
		Item:   models.ItemRef{ID: item.ID, Name: item.Name},
		Booker: models.UserRef{ID: booker.ID, Name: booker.Name},
	}
}
