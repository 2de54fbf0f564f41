package database

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

const userColumns = `id, name, email, created_at, updated_at`

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (name, email, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		user.Name, user.Email, now, now,
	)
	if err != nil {
		return mapError(err, "user with email "+user.Email)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("user %d", id))
	}
	return &user, nil
}

func (db *DB) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	users := []*models.User{}
	if err := db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	return users, nil
}

func (db *DB) UpdateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`,
		user.Name, user.Email, now, user.ID,
	)
	if err != nil {
		return mapError(err, "user with email "+user.Email)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.NotFoundf("user %d not found", user.ID)
	}
	user.UpdatedAt = now
	return nil
}

func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return mapError(err, fmt.Sprintf("user %d", id))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.NotFoundf("user %d not found", id)
	}
	return nil
}

// UserHasReferences reports whether any item, booking, comment or request points at the user.
func (db *DB) UserHasReferences(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := db.GetContext(ctx, &exists, `SELECT
        EXISTS(SELECT 1 FROM items WHERE owner_id = ?)
        OR EXISTS(SELECT 1 FROM bookings WHERE booker_id = ?)
        OR EXISTS(SELECT 1 FROM comments WHERE author_id = ?)
        OR EXISTS(SELECT 1 FROM item_requests WHERE requester_id = ?)`,
		id, id, id, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to check user references: %w", err)
	}
	return exists, nil
}
