package worker

import (
	"context"
	"encoding/json"
	"time"

	"shareit/internal/domain"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const deadLetterKey = "shareit:outbox:deadletter"

// OutboxWorker drains the event outbox into the broker.
type OutboxWorker struct {
	store        domain.OutboxRepository
	broker       domain.Broker
	redis        *redis.Client
	retryPolicy  RetryPolicy
	pollInterval time.Duration
	batchSize    int
	logger       *zerolog.Logger
	now          func() time.Time
}

// NewOutboxWorker builds a worker; redisClient is optional and only receives dead letters.
func NewOutboxWorker(
	store domain.OutboxRepository,
	broker domain.Broker,
	redisClient *redis.Client,
	retry RetryPolicy,
	pollInterval time.Duration,
	batchSize int,
	logger *zerolog.Logger,
) *OutboxWorker {
	defaults := DefaultRetryPolicy()
	if retry.MaxRetries == 0 {
		retry.MaxRetries = defaults.MaxRetries
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = defaults.InitialDelay
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = defaults.MaxDelay
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = defaults.BackoffFactor
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &OutboxWorker{
		store:        store,
		broker:       broker,
		redis:        redisClient,
		retryPolicy:  retry,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
		now:          time.Now,
	}
}

// Start polls the outbox until ctx is done.
func (w *OutboxWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("poll_interval", w.pollInterval).Msg("Outbox worker started")
	defer w.logger.Info().Msg("Outbox worker stopped")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("Failed to fetch pending outbox events")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce delivers one batch and returns how many events were published.
func (w *OutboxWorker) RunOnce(ctx context.Context) (int, error) {
	events, err := w.store.GetPendingOutboxEvents(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range events {
		if ctx.Err() != nil {
			break
		}
		if w.process(ctx, &events[i]) {
			delivered++
		}
	}
	return delivered, nil
}

func (w *OutboxWorker) process(ctx context.Context, event *models.OutboxEvent) bool {
	if err := w.broker.Publish(ctx, event.EventType, []byte(event.Payload)); err != nil {
		w.retryOrFail(ctx, event, err)
		return false
	}

	if err := w.store.UpdateOutboxEventStatus(ctx, event.ID, models.OutboxCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("event_id", event.ID).Msg("Failed to mark outbox event completed")
	}
	metrics.IncOutbox(event.EventType, models.OutboxCompleted)
	return true
}

func (w *OutboxWorker) retryOrFail(ctx context.Context, event *models.OutboxEvent, cause error) {
	attempt := event.RetryCount + 1
	log := w.logger.With().Int64("event_id", event.ID).Str("event_type", event.EventType).Int("attempt", attempt).Logger()

	if w.retryPolicy.Exhausted(attempt) {
		if err := w.store.UpdateOutboxEventStatus(ctx, event.ID, models.OutboxFailed, cause.Error(), nil); err != nil {
			log.Error().Err(err).Msg("Failed to mark outbox event failed")
		}
		metrics.IncOutbox(event.EventType, models.OutboxFailed)
		log.Error().Err(cause).Msg("Outbox event moved to dead letter")
		w.pushDeadLetter(ctx, event)
		return
	}

	next := w.now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.store.UpdateOutboxEventStatus(ctx, event.ID, models.OutboxRetry, cause.Error(), &next); err != nil {
		log.Error().Err(err).Msg("Failed to schedule outbox retry")
	}
	metrics.IncOutbox(event.EventType, models.OutboxRetry)
	log.Warn().Err(cause).Time("next_retry_at", next).Msg("Outbox delivery failed, will retry")
}

func (w *OutboxWorker) pushDeadLetter(ctx context.Context, event *models.OutboxEvent) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		w.logger.Error().Err(err).Int64("event_id", event.ID).Msg("Failed to encode dead letter")
		return
	}
	if err := w.redis.LPush(ctx, deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("event_id", event.ID).Msg("Failed to push dead letter")
	}
}
