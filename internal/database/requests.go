package database

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/models"
)

const requestColumns = `id, description, requester_id, created_at`

func (db *DB) CreateRequest(ctx context.Context, request *models.ItemRequest) error {
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now()
	}
	request.CreatedAt = request.CreatedAt.UTC()

	result, err := db.ExecContext(ctx,
		`INSERT INTO item_requests (description, requester_id, created_at) VALUES (?, ?, ?)`,
		request.Description, request.RequesterID, request.CreatedAt,
	)
	if err != nil {
		return mapError(err, "item request")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	request.ID = id
	return nil
}

func (db *DB) GetRequest(ctx context.Context, id int64) (*models.ItemRequest, error) {
	var request models.ItemRequest
	err := db.GetContext(ctx, &request, `SELECT `+requestColumns+` FROM item_requests WHERE id = ?`, id)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("item request %d", id))
	}
	return &request, nil
}

func (db *DB) GetRequestsByRequester(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error) {
	requests := []*models.ItemRequest{}
	err := db.SelectContext(ctx, &requests,
		`SELECT `+requestColumns+` FROM item_requests WHERE requester_id = ? ORDER BY created_at DESC, id DESC`,
		requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get own requests: %w", err)
	}
	return requests, nil
}

// GetRequestsExcept pages through requests made by anyone but requesterID, newest first.
func (db *DB) GetRequestsExcept(ctx context.Context, requesterID int64, page models.Page) ([]*models.ItemRequest, error) {
	requests := []*models.ItemRequest{}
	err := db.SelectContext(ctx, &requests,
		`SELECT `+requestColumns+` FROM item_requests WHERE requester_id != ?
         ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		requesterID, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to get requests: %w", err)
	}
	return requests, nil
}
