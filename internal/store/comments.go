package store

import (
	"context"
	"time"

	"github.com/starford/folio/internal/models"
)

// AddComment attaches cm to its article and sets its ID. A missing article
// yields apperr.ErrNotFound.
func (c conn) AddComment(ctx context.Context, cm *models.Comment) error {
	if cm.CreatedAt.IsZero() {
		cm.CreatedAt = time.Now()
	}
	cm.CreatedAt = stamp(cm.CreatedAt)
	err := c.queryRow(ctx, `
		INSERT INTO comments (article_id, author, text, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, cm.ArticleID, cm.Author, cm.Text, cm.CreatedAt).Scan(&cm.ID)
	if err != nil {
		return classify("add comment", err)
	}
	return nil
}

// CountComments returns how many comments the article has.
func (c conn) CountComments(ctx context.Context, articleID int64) (int, error) {
	var n int
	if err := c.queryRow(ctx, `SELECT COUNT(*) FROM comments WHERE article_id = ?`, articleID).Scan(&n); err != nil {
		return 0, classify("count comments", err)
	}
	return n, nil
}

// ListComments returns one window of the article's comments, newest first.
func (c conn) ListComments(ctx context.Context, articleID int64, limit, offset int) ([]models.Comment, error) {
	rows, err := c.query(ctx, `
		SELECT id, article_id, author, text, created_at
		FROM comments
		WHERE article_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, articleID, limit, offset)
	if err != nil {
		return nil, classify("list comments", err)
	}
	defer rows.Close()

	out := []models.Comment{}
	for rows.Next() {
		var cm models.Comment
		if err := rows.Scan(&cm.ID, &cm.ArticleID, &cm.Author, &cm.Text, &cm.CreatedAt); err != nil {
			return nil, classify("list comments", err)
		}
		cm.CreatedAt = cm.CreatedAt.UTC()
		out = append(out, cm)
	}
	return out, rows.Err()
}
