package events

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

const (
	EventBookingCreated     = "booking_created"
	EventBookingApproved    = "booking_approved"
	EventBookingRejected    = "booking_rejected"
	EventCommentCreated     = "comment_created"
	EventItemRequestCreated = "item_request_created"
)

// AllTypes lists every event type the service emits.
var AllTypes = []string{
	EventBookingCreated,
	EventBookingApproved,
	EventBookingRejected,
	EventCommentCreated,
	EventItemRequestCreated,
}

// BookingEventPayload is the booking snapshot sent to consumers.
type BookingEventPayload struct {
	BookingID int64     `json:"booking_id"`
	ItemID    int64     `json:"item_id"`
	ItemName  string    `json:"item_name"`
	OwnerID   int64     `json:"owner_id"`
	BookerID  int64     `json:"booker_id"`
	Status    string    `json:"status"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	ChangedBy int64     `json:"changed_by,omitempty"`
}

func (p BookingEventPayload) AggregateID() int64 { return p.BookingID }

type CommentEventPayload struct {
	CommentID int64  `json:"comment_id"`
	ItemID    int64  `json:"item_id"`
	AuthorID  int64  `json:"author_id"`
	Text      string `json:"text"`
}

func (p CommentEventPayload) AggregateID() int64 { return p.CommentID }

type ItemRequestEventPayload struct {
	RequestID   int64  `json:"request_id"`
	RequesterID int64  `json:"requester_id"`
	Description string `json:"description"`
}

func (p ItemRequestEventPayload) AggregateID() int64 { return p.RequestID }

// Aggregate is implemented by payloads that identify the entity they describe.
type Aggregate interface {
	AggregateID() int64
}

// Event represents a lightweight domain event.
type Event struct {
	Type        string
	AggregateID int64
	Payload     []byte
	CreatedAt   time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish runs every handler of the event type synchronously and joins their errors.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event. A nil bus is a no-op.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&event)
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	event := Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}
	if agg, ok := payload.(Aggregate); ok {
		event.AggregateID = agg.AggregateID()
	}
	return event, nil
}
