package database

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/models"
)

const outboxColumns = `id, event_type, aggregate_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at`

func (db *DB) CreateOutboxEvent(ctx context.Context, event *models.OutboxEvent) error {
	now := time.Now().UTC()
	if event.Status == "" {
		event.Status = models.OutboxPending
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO event_outbox (event_type, aggregate_id, payload, status, retry_count, last_error, created_at, next_retry_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.EventType, event.AggregateID, event.Payload, event.Status,
		event.RetryCount, event.LastError, now, event.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	event.ID = id
	event.CreatedAt = now
	return nil
}

// GetPendingOutboxEvents returns pending and due retry events, oldest first.
func (db *DB) GetPendingOutboxEvents(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	events := []models.OutboxEvent{}
	err := db.SelectContext(ctx, &events,
		`SELECT `+outboxColumns+` FROM event_outbox
         WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
         ORDER BY created_at ASC, id ASC LIMIT ?`,
		models.OutboxPending, models.OutboxRetry, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending outbox events: %w", err)
	}
	return events, nil
}

func (db *DB) UpdateOutboxEventStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var (
		query string
		args  []interface{}
		now   = time.Now().UTC()
	)

	var lastError *string
	if errMsg != "" {
		lastError = &errMsg
	}
	if nextRetryAt != nil {
		utc := nextRetryAt.UTC()
		nextRetryAt = &utc
	}

	switch status {
	case models.OutboxRetry:
		query = `UPDATE event_outbox SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []interface{}{status, lastError, nextRetryAt, id}
	case models.OutboxCompleted, models.OutboxFailed:
		query = `UPDATE event_outbox SET status = ?, last_error = ?, next_retry_at = ?, processed_at = ? WHERE id = ?`
		args = []interface{}{status, lastError, nextRetryAt, now, id}
	default:
		query = `UPDATE event_outbox SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []interface{}{status, lastError, nextRetryAt, id}
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update outbox event status: %w", err)
	}
	return nil
}

// GetFailedOutboxEvents lists events that exhausted their retries.
func (db *DB) GetFailedOutboxEvents(ctx context.Context) ([]models.OutboxEvent, error) {
	events := []models.OutboxEvent{}
	err := db.SelectContext(ctx, &events,
		`SELECT `+outboxColumns+` FROM event_outbox WHERE status = ? ORDER BY created_at DESC`,
		models.OutboxFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed outbox events: %w", err)
	}
	return events, nil
}
