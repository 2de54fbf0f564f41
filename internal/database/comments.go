package database

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/models"
)

func (db *DB) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	comment.CreatedAt = comment.CreatedAt.UTC()

	result, err := db.ExecContext(ctx,
		`INSERT INTO comments (text, item_id, author_id, created_at) VALUES (?, ?, ?, ?)`,
		comment.Text, comment.ItemID, comment.AuthorID, comment.CreatedAt,
	)
	if err != nil {
		return mapError(err, "comment")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	comment.ID = id
	return nil
}

// GetCommentsByItem returns the item's comments with author names, oldest first.
func (db *DB) GetCommentsByItem(ctx context.Context, itemID int64) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := db.SelectContext(ctx, &comments, `
        SELECT c.id AS id, c.text AS text, c.item_id AS item_id, c.author_id AS author_id,
               u.name AS author_name, c.created_at AS created_at
        FROM comments c
        JOIN users u ON u.id = c.author_id
        WHERE c.item_id = ?
        ORDER BY c.created_at, c.id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	return comments, nil
}
