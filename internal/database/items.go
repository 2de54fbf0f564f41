package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

const itemColumns = `id, name, description, available, owner_id, request_id, created_at, updated_at`

func (db *DB) CreateItem(ctx context.Context, item *models.Item) error {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (name, description, available, owner_id, request_id, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.Name, item.Description, item.Available, item.OwnerID, item.RequestID, now, now,
	)
	if err != nil {
		return mapError(err, "item")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func (db *DB) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	err := db.GetContext(ctx, &item, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("item %d", id))
	}
	return &item, nil
}

func (db *DB) UpdateItem(ctx context.Context, item *models.Item) error {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, available = ?, updated_at = ? WHERE id = ?`,
		item.Name, item.Description, item.Available, now, item.ID,
	)
	if err != nil {
		return mapError(err, fmt.Sprintf("item %d", item.ID))
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.NotFoundf("item %d not found", item.ID)
	}
	item.UpdatedAt = now
	return nil
}

// DeleteItem removes the item together with its comments.
func (db *DB) DeleteItem(ctx context.Context, id int64) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE item_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete item comments: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
		if err != nil {
			return mapError(err, fmt.Sprintf("item %d", id))
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return domain.NotFoundf("item %d not found", id)
		}
		return nil
	})
}

func (db *DB) GetItemsByOwner(ctx context.Context, ownerID int64, page models.Page) ([]*models.Item, error) {
	items := []*models.Item{}
	err := db.SelectContext(ctx, &items,
		`SELECT `+itemColumns+` FROM items WHERE owner_id = ? ORDER BY id LIMIT ? OFFSET ?`,
		ownerID, page.Limit(), page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items by owner: %w", err)
	}
	return items, nil
}

func (db *DB) GetItemsByRequest(ctx context.Context, requestID int64) ([]*models.Item, error) {
	items := []*models.Item{}
	err := db.SelectContext(ctx, &items,
		`SELECT `+itemColumns+` FROM items WHERE request_id = ? ORDER BY id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items by request: %w", err)
	}
	return items, nil
}

// SearchAvailableItems matches text case-insensitively against name or description.
func (db *DB) SearchAvailableItems(ctx context.Context, text string, page models.Page) ([]*models.Item, error) {
	pattern := "%" + escapeLike(strings.ToLower(text)) + "%"

	query, args, err := dialect().
		From("items").
		Select(goqu.L(itemColumns)).
		Where(
			goqu.C("available").IsTrue(),
			goqu.Or(
				goqu.L(`ulower(name) LIKE ? ESCAPE '\'`, pattern),
				goqu.L(`ulower(description) LIKE ? ESCAPE '\'`, pattern),
			),
		).
		Order(goqu.C("id").Asc()).
		Limit(uint(page.Limit())).
		Offset(uint(page.Offset())).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build search query: %w", err)
	}

	items := []*models.Item{}
	if err := db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	return items, nil
}

func (db *DB) ItemHasBookings(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM bookings WHERE item_id = ?)`, id)
	if err != nil {
		return false, fmt.Errorf("failed to check item bookings: %w", err)
	}
	return exists, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
