// Package articles implements article and comment writes: validation,
// sanitization, and transactional tag re-association.
package articles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/metrics"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/store"
	"github.com/starford/folio/internal/tagging"
)

// Event kinds passed to a Notifier.
const (
	EventCreated        = "created"
	EventUpdated        = "updated"
	EventDeleted        = "deleted"
	EventCommentCreated = "comment.created"
)

// Notifier receives change events after a successful commit.
type Notifier interface {
	PublishArticleEvent(kind string, articleID int64)
}

// Service coordinates article writes against the store.
type Service struct {
	db       *store.DB
	registry *tagging.Registry
	clean    *Sanitizer
	notify   Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier publishes change events to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an article service.
func NewService(db *store.DB, registry *tagging.Registry, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		db:       db,
		registry: registry,
		clean:    NewSanitizer(),
		logger:   logger,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns an article with its tags.
func (s *Service) Get(ctx context.Context, id int64) (*models.Article, error) {
	return s.db.GetArticle(ctx, id)
}

// ListTags returns every tag with its article count.
func (s *Service) ListTags(ctx context.Context) ([]models.TagCount, error) {
	return s.db.ListTags(ctx)
}

// TagsLine renders the article's tags as the editable form value.
func TagsLine(a *models.Article) string {
	return tagging.Line(a.Tags)
}

// Create validates in and stores a new article with its tags.
func (s *Service) Create(ctx context.Context, in ArticleInput) (*models.Article, error) {
	in = s.cleanArticle(in)
	tagsRaw := ""
	if in.Tags != nil {
		tagsRaw = *in.Tags
	}
	if err := s.validateArticle(in, tagsRaw); err != nil {
		return nil, err
	}

	now := s.now()
	a := &models.Article{Title: in.Title, Author: in.Author, Body: in.Body, CreatedAt: now, UpdatedAt: now}
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.CreateArticle(ctx, a); err != nil {
			return err
		}
		return s.retag(ctx, tx, a, tagsRaw)
	})
	metrics.RecordWrite("create", err)
	if err != nil {
		return nil, fmt.Errorf("articles: create: %w", err)
	}
	s.publish(EventCreated, a.ID)
	return a, nil
}

// Update replaces the article's fields. Tags are re-associated only when
// in.Tags is set.
func (s *Service) Update(ctx context.Context, id int64, in ArticleInput) (*models.Article, error) {
	in = s.cleanArticle(in)
	tagsRaw := ""
	if in.Tags != nil {
		tagsRaw = *in.Tags
	}
	if err := s.validateArticle(in, tagsRaw); err != nil {
		return nil, err
	}

	var out *models.Article
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		a, err := tx.GetArticle(ctx, id)
		if err != nil {
			return err
		}
		a.Title, a.Author, a.Body = in.Title, in.Author, in.Body
		a.UpdatedAt = s.now()
		if err := tx.UpdateArticle(ctx, a); err != nil {
			return err
		}
		if in.Tags != nil {
			if err := s.retag(ctx, tx, a, tagsRaw); err != nil {
				return err
			}
		}
		out = a
		return nil
	})
	metrics.RecordWrite("update", err)
	if err != nil {
		return nil, fmt.Errorf("articles: update %d: %w", id, err)
	}
	s.publish(EventUpdated, id)
	return out, nil
}

// Delete removes the article, its comments and tag links. Tags stay in the
// registry.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.db.DeleteArticle(ctx, id)
	metrics.RecordWrite("delete", err)
	if err != nil {
		return fmt.Errorf("articles: delete %d: %w", id, err)
	}
	s.publish(EventDeleted, id)
	return nil
}

// AddComment validates in and attaches it to the article.
func (s *Service) AddComment(ctx context.Context, articleID int64, in CommentInput) (*models.Comment, error) {
	in.Author = s.clean.Plain(in.Author)
	in.Text = s.clean.Rich(in.Text)
	if err := collect(in.validate()); err != nil {
		return nil, err
	}

	cm := &models.Comment{ArticleID: articleID, Author: in.Author, Text: in.Text, CreatedAt: s.now()}
	err := s.db.AddComment(ctx, cm)
	metrics.RecordWrite("comment", err)
	if err != nil {
		return nil, fmt.Errorf("articles: comment on %d: %w", articleID, err)
	}
	s.publish(EventCommentCreated, articleID)
	return cm, nil
}

// Import creates or refreshes the article sourced from imp.Path. Invalid
// frontmatter is reported as apperr.ValidationErrors.
func (s *Service) Import(ctx context.Context, imp ImportedArticle) (*models.Article, error) {
	in := s.cleanArticle(ArticleInput{Title: imp.Title, Author: imp.Author, Body: imp.Body, Tags: &imp.Tags})
	if err := s.validateArticle(in, *in.Tags); err != nil {
		return nil, err
	}

	kind := EventUpdated
	var out *models.Article
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		a, err := tx.ArticleBySource(ctx, imp.Path)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			kind = EventCreated
			created := imp.CreatedAt
			if created.IsZero() {
				created = s.now()
			}
			a = &models.Article{SourcePath: imp.Path, CreatedAt: created, UpdatedAt: s.now()}
		case err != nil:
			return err
		default:
			a.UpdatedAt = s.now()
		}
		a.Title, a.Author, a.Body = in.Title, in.Author, in.Body
		a.SourceChecksum = imp.Checksum

		if a.ID == 0 {
			err = tx.CreateArticle(ctx, a)
		} else {
			err = tx.UpdateArticle(ctx, a)
		}
		if err != nil {
			return err
		}
		if err := s.retag(ctx, tx, a, *in.Tags); err != nil {
			return err
		}
		out = a
		return nil
	})
	metrics.RecordWrite("import", err)
	if err != nil {
		return nil, fmt.Errorf("articles: import %s: %w", imp.Path, err)
	}
	s.logger.Debug("article imported",
		slog.String("path", imp.Path), slog.Int64("id", out.ID), slog.String("event", kind))
	s.publish(kind, out.ID)
	return out, nil
}

// DeleteSource removes the article imported from path, if any.
func (s *Service) DeleteSource(ctx context.Context, path string) error {
	a, err := s.db.ArticleBySource(ctx, path)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("articles: lookup %s: %w", path, err)
	}
	return s.Delete(ctx, a.ID)
}

// retag normalizes raw inside tx and makes the result the article's tag set.
func (s *Service) retag(ctx context.Context, tx *store.Tx, a *models.Article, raw string) error {
	tags, err := s.registry.With(tx).Normalize(ctx, raw)
	if err != nil {
		return err
	}
	if err := tx.ReplaceArticleTags(ctx, a.ID, tags); err != nil {
		return err
	}
	a.Tags = sortedTags(tags)
	return nil
}

func (s *Service) cleanArticle(in ArticleInput) ArticleInput {
	in.Title = s.clean.Plain(in.Title)
	in.Author = s.clean.Plain(in.Author)
	in.Body = s.clean.Rich(in.Body)
	if in.Tags != nil {
		tags := s.clean.Plain(*in.Tags)
		in.Tags = &tags
	}
	return in
}

func (s *Service) validateArticle(in ArticleInput, tagsRaw string) error {
	var extra []apperr.ValidationError
	if _, err := s.registry.Split(tagsRaw); err != nil {
		if verrs, ok := apperr.AsValidation(err); ok {
			extra = verrs
		} else {
			return err
		}
	}
	return collect(in.validate(), extra...)
}

func sortedTags(tags []models.Tag) []models.Tag {
	out := append([]models.Tag{}, tags...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Service) publish(kind string, id int64) {
	if s.notify != nil {
		s.notify.PublishArticleEvent(kind, id)
	}
}
