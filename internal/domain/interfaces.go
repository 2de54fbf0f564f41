package domain

import (
	"context"
	"time"

	"shareit/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error
	UserHasReferences(ctx context.Context, id int64) (bool, error)
}

type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	DeleteItem(ctx context.Context, id int64) error
	GetItemsByOwner(ctx context.Context, ownerID int64, page models.Page) ([]*models.Item, error)
	GetItemsByRequest(ctx context.Context, requestID int64) ([]*models.Item, error)
	SearchAvailableItems(ctx context.Context, text string, page models.Page) ([]*models.Item, error)
	ItemHasBookings(ctx context.Context, id int64) (bool, error)
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	CreateBookingExclusive(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus) error
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	GetLastBooking(ctx context.Context, itemID, ownerID int64, now time.Time) (*models.Booking, error)
	GetNextBooking(ctx context.Context, itemID, ownerID int64, now time.Time) (*models.Booking, error)
	HasFinishedApprovedBooking(ctx context.Context, itemID, bookerID int64, now time.Time) (bool, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentsByItem(ctx context.Context, itemID int64) ([]models.Comment, error)
}

type RequestRepository interface {
	CreateRequest(ctx context.Context, request *models.ItemRequest) error
	GetRequest(ctx context.Context, id int64) (*models.ItemRequest, error)
	GetRequestsByRequester(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error)
	GetRequestsExcept(ctx context.Context, requesterID int64, page models.Page) ([]*models.ItemRequest, error)
}

type OutboxRepository interface {
	CreateOutboxEvent(ctx context.Context, event *models.OutboxEvent) error
	GetPendingOutboxEvents(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	UpdateOutboxEventStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// Repository is the full store surface, implemented by database.DB.
type Repository interface {
	UserRepository
	ItemRepository
	BookingRepository
	CommentRepository
	RequestRepository
}

type RateLimitRepository interface {
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Broker delivers serialized events to an external message bus.
type Broker interface {
	Publish(ctx context.Context, eventType string, body []byte) error
	Close() error
}
