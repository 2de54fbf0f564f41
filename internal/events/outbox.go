package events

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/models"
)

// OutboxStore persists events for later delivery.
type OutboxStore interface {
	CreateOutboxEvent(ctx context.Context, event *models.OutboxEvent) error
}

// OutboxRecorder writes every published event into the outbox table.
type OutboxRecorder struct {
	store   OutboxStore
	timeout time.Duration
}

func NewOutboxRecorder(store OutboxStore) *OutboxRecorder {
	return &OutboxRecorder{store: store, timeout: 5 * time.Second}
}

// Attach subscribes the recorder to the given event types.
func (r *OutboxRecorder) Attach(bus *EventBus, eventTypes ...string) {
	for _, eventType := range eventTypes {
		bus.Subscribe(eventType, r.Handle)
	}
}

func (r *OutboxRecorder) Handle(event *Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	record := &models.OutboxEvent{
		EventType:   event.Type,
		AggregateID: event.AggregateID,
		Payload:     string(event.Payload),
		Status:      models.OutboxPending,
	}
	if err := r.store.CreateOutboxEvent(ctx, record); err != nil {
		return fmt.Errorf("record %s event: %w", event.Type, err)
	}
	return nil
}
