package store

import (
	"context"
	"errors"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// UpsertTag returns the tag named exactly name, creating it if needed.
// The insert never fails on an existing name, so concurrent first use of a
// name converges on one row. ErrConflict is returned only when the row is
// still not visible after the insert.
func (c conn) UpsertTag(ctx context.Context, name string) (models.Tag, error) {
	if _, err := c.exec(ctx, `INSERT INTO tags (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name); err != nil {
		return models.Tag{}, classify("upsert tag", err)
	}
	t, err := c.TagByName(ctx, name)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Tag{}, classify("upsert tag", apperr.ErrConflict)
	}
	return t, err
}

// TagByName returns the tag with exactly this name.
func (c conn) TagByName(ctx context.Context, name string) (models.Tag, error) {
	var t models.Tag
	err := c.queryRow(ctx, `SELECT id, name FROM tags WHERE name = ?`, name).Scan(&t.ID, &t.Name)
	if err != nil {
		return models.Tag{}, classify("tag by name", err)
	}
	return t, nil
}

// TagByID returns the tag with the given id.
func (c conn) TagByID(ctx context.Context, id int64) (models.Tag, error) {
	var t models.Tag
	err := c.queryRow(ctx, `SELECT id, name FROM tags WHERE id = ?`, id).Scan(&t.ID, &t.Name)
	if err != nil {
		return models.Tag{}, classify("tag by id", err)
	}
	return t, nil
}

// ListTags returns every tag with its article count, ordered by name.
// Orphaned tags are included with a zero count.
func (c conn) ListTags(ctx context.Context) ([]models.TagCount, error) {
	rows, err := c.query(ctx, `
		SELECT t.id, t.name, COUNT(tl.article_id)
		FROM tags t
		LEFT JOIN article_tags tl ON tl.tag_id = t.id
		GROUP BY t.id, t.name
		ORDER BY t.name, t.id
	`)
	if err != nil {
		return nil, classify("list tags", err)
	}
	defer rows.Close()

	out := []models.TagCount{}
	for rows.Next() {
		var tc models.TagCount
		if err := rows.Scan(&tc.ID, &tc.Name, &tc.Articles); err != nil {
			return nil, classify("list tags", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// ReplaceArticleTags makes tags the complete tag set of the article. Run it
// inside a transaction; on its own it briefly leaves the article untagged.
func (c conn) ReplaceArticleTags(ctx context.Context, articleID int64, tags []models.Tag) error {
	if _, err := c.exec(ctx, `DELETE FROM article_tags WHERE article_id = ?`, articleID); err != nil {
		return classify("clear article tags", err)
	}
	for _, t := range tags {
		_, err := c.exec(ctx,
			`INSERT INTO article_tags (article_id, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			articleID, t.ID)
		if err != nil {
			return classify("link article tag", err)
		}
	}
	return nil
}

// tagsFor loads the tags of the given articles keyed by article id.
func (c conn) tagsFor(ctx context.Context, ids []int64) (map[int64][]models.Tag, error) {
	out := make(map[int64][]models.Tag, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders, args := inList(ids)
	rows, err := c.query(ctx, `
		SELECT tl.article_id, t.id, t.name
		FROM article_tags tl
		JOIN tags t ON t.id = tl.tag_id
		WHERE tl.article_id IN (`+placeholders+`)
		ORDER BY t.name, t.id
	`, args...)
	if err != nil {
		return nil, classify("load tags", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			articleID int64
			t         models.Tag
		)
		if err := rows.Scan(&articleID, &t.ID, &t.Name); err != nil {
			return nil, classify("load tags", err)
		}
		out[articleID] = append(out[articleID], t)
	}
	return out, rows.Err()
}

func inList(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	marks := make([]byte, 0, len(ids)*2)
	for i, id := range ids {
		if i > 0 {
			marks = append(marks, ',')
		}
		marks = append(marks, '?')
		args[i] = id
	}
	return string(marks), args
}
