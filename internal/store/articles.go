package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/query"
)

const articleSelect = `SELECT a.id, a.title, a.author, a.body, a.source_path, a.source_checksum, a.created_at, a.updated_at FROM articles a`

// stamp truncates to microseconds, the coarsest precision of the supported
// drivers, so a written value reads back unchanged.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(s scanner) (models.Article, error) {
	var (
		a        models.Article
		path, cs sql.NullString
	)
	if err := s.Scan(&a.ID, &a.Title, &a.Author, &a.Body, &path, &cs, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return models.Article{}, err
	}
	a.SourcePath = path.String
	a.SourceChecksum = cs.String
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

// CreateArticle inserts a and sets its ID. Zero timestamps are filled with
// the current time. Tags are linked separately with ReplaceArticleTags.
func (c conn) CreateArticle(ctx context.Context, a *models.Article) error {
	now := stamp(time.Now())
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	a.CreatedAt = stamp(a.CreatedAt)
	a.UpdatedAt = stamp(a.UpdatedAt)

	err := c.queryRow(ctx, `
		INSERT INTO articles (title, author, body, source_path, source_checksum, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, a.Title, a.Author, a.Body, nullable(a.SourcePath), nullable(a.SourceChecksum), a.CreatedAt, a.UpdatedAt).Scan(&a.ID)
	if err != nil {
		return classify("create article", err)
	}
	return nil
}

// UpdateArticle rewrites the mutable columns of a. CreatedAt is left alone.
func (c conn) UpdateArticle(ctx context.Context, a *models.Article) error {
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now()
	}
	a.UpdatedAt = stamp(a.UpdatedAt)

	res, err := c.exec(ctx, `
		UPDATE articles
		SET title = ?, author = ?, body = ?, source_path = ?, source_checksum = ?, updated_at = ?
		WHERE id = ?
	`, a.Title, a.Author, a.Body, nullable(a.SourcePath), nullable(a.SourceChecksum), a.UpdatedAt, a.ID)
	if err != nil {
		return classify("update article", err)
	}
	return requireRow("update article", res)
}

// DeleteArticle removes the article with its tag links and comments.
func (c conn) DeleteArticle(ctx context.Context, id int64) error {
	res, err := c.exec(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return classify("delete article", err)
	}
	return requireRow("delete article", res)
}

// GetArticle returns one article with its tags.
func (c conn) GetArticle(ctx context.Context, id int64) (*models.Article, error) {
	a, err := scanArticle(c.queryRow(ctx, articleSelect+` WHERE a.id = ?`, id))
	if err != nil {
		return nil, classify("get article", err)
	}
	tags, err := c.tagsFor(ctx, []int64{a.ID})
	if err != nil {
		return nil, err
	}
	a.Tags = orEmpty(tags[a.ID])
	return &a, nil
}

// ArticleBySource returns the article imported from path.
func (c conn) ArticleBySource(ctx context.Context, path string) (*models.Article, error) {
	var id int64
	if err := c.queryRow(ctx, `SELECT id FROM articles WHERE source_path = ?`, path).Scan(&id); err != nil {
		return nil, classify("article by source", err)
	}
	return c.GetArticle(ctx, id)
}

// SourceChecksums maps every import path to its stored checksum.
func (c conn) SourceChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := c.query(ctx, `SELECT source_path, source_checksum FROM articles WHERE source_path IS NOT NULL`)
	if err != nil {
		return nil, classify("source checksums", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var (
			path string
			cs   sql.NullString
		)
		if err := rows.Scan(&path, &cs); err != nil {
			return nil, classify("source checksums", err)
		}
		out[path] = cs.String
	}
	return out, rows.Err()
}

// CountArticles returns the number of distinct articles matching p.
func (c conn) CountArticles(ctx context.Context, p query.Predicate) (int, error) {
	where, args, err := c.compiler().compileWhere(p)
	if err != nil {
		return 0, err
	}
	var n int
	if err := c.queryRow(ctx, `SELECT COUNT(*) FROM articles a WHERE `+where, args...).Scan(&n); err != nil {
		return 0, classify("count articles", err)
	}
	return n, nil
}

// FindArticles returns one window of the articles matching p, newest first,
// each with its tags.
func (c conn) FindArticles(ctx context.Context, p query.Predicate, limit, offset int) ([]models.Article, error) {
	where, args, err := c.compiler().compileWhere(p)
	if err != nil {
		return nil, err
	}
	args = append(args, limit, offset)
	rows, err := c.query(ctx, articleSelect+` WHERE `+where+`
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, classify("find articles", err)
	}
	defer rows.Close()

	out := []models.Article{}
	ids := []int64{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, classify("find articles", err)
		}
		out = append(out, a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("find articles", err)
	}
	rows.Close()

	tags, err := c.tagsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Tags = orEmpty(tags[out[i].ID])
	}
	return out, nil
}

func requireRow(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if n == 0 {
		return classify(op, sql.ErrNoRows)
	}
	return nil
}

func orEmpty(tags []models.Tag) []models.Tag {
	if tags == nil {
		return []models.Tag{}
	}
	return tags
}
