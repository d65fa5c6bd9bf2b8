package store

import (
	"context"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/query"
)

// ArticleStore is the read and write surface shared by DB and Tx.
// Consumers should depend on this interface rather than the concrete types.
type ArticleStore interface {
	CreateArticle(ctx context.Context, a *models.Article) error
	UpdateArticle(ctx context.Context, a *models.Article) error
	DeleteArticle(ctx context.Context, id int64) error
	GetArticle(ctx context.Context, id int64) (*models.Article, error)
	ArticleBySource(ctx context.Context, path string) (*models.Article, error)
	SourceChecksums(ctx context.Context) (map[string]string, error)
	CountArticles(ctx context.Context, p query.Predicate) (int, error)
	FindArticles(ctx context.Context, p query.Predicate, limit, offset int) ([]models.Article, error)

	UpsertTag(ctx context.Context, name string) (models.Tag, error)
	TagByID(ctx context.Context, id int64) (models.Tag, error)
	TagByName(ctx context.Context, name string) (models.Tag, error)
	ListTags(ctx context.Context) ([]models.TagCount, error)
	ReplaceArticleTags(ctx context.Context, articleID int64, tags []models.Tag) error

	AddComment(ctx context.Context, cm *models.Comment) error
	CountComments(ctx context.Context, articleID int64) (int, error)
	ListComments(ctx context.Context, articleID int64, limit, offset int) ([]models.Comment, error)
}

// Verify DB and Tx satisfy ArticleStore at compile time.
var (
	_ ArticleStore = (*DB)(nil)
	_ ArticleStore = (*Tx)(nil)
)
