// Package search runs validated article searches against the store and pages
// the results.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/criteria"
	"github.com/starford/folio/internal/metrics"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/paginate"
	"github.com/starford/folio/internal/query"
)

// CodeUnknownTag is reported when the tag filter names no existing tag.
const CodeUnknownTag = "unknown_tag"

// Defaults applied to zero Options fields.
const (
	DefaultPageSize        = 5
	DefaultOrphans         = 1
	DefaultCommentPageSize = 3
	DefaultCacheSize       = 256
)

// Store is the read surface the search service needs.
type Store interface {
	CountArticles(ctx context.Context, p query.Predicate) (int, error)
	FindArticles(ctx context.Context, p query.Predicate, limit, offset int) ([]models.Article, error)
	TagByID(ctx context.Context, id int64) (models.Tag, error)
	GetArticle(ctx context.Context, id int64) (*models.Article, error)
	CountComments(ctx context.Context, articleID int64) (int, error)
	ListComments(ctx context.Context, articleID int64, limit, offset int) ([]models.Comment, error)
}

// Options configures paging and predicate memoization. Orphans may be
// negative to disable orphan absorption; zero selects DefaultOrphans.
type Options struct {
	PageSize        int
	Orphans         int
	CommentPageSize int
	CacheSize       int
}

// Result is one rendered search.
type Result struct {
	Criteria criteria.Criteria             `json:"criteria"`
	Errors   apperr.ValidationErrors       `json:"errors"`
	Tag      *models.Tag                   `json:"tag,omitempty"`
	Page     paginate.Page[models.Article] `json:"page"`

	// Query holds the parameters that reproduce this search, for page links.
	Query url.Values `json:"query"`
}

// Valid reports whether the criteria were accepted.
func (r *Result) Valid() bool { return len(r.Errors) == 0 }

// Service executes searches.
type Service struct {
	store    Store
	articles paginate.Paginator
	comments paginate.Paginator
	cache    *lru.Cache[string, query.Predicate]
	logger   *slog.Logger
}

// NewService creates a search service over store.
func NewService(store Store, opts Options, logger *slog.Logger) (*Service, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Orphans == 0 {
		opts.Orphans = DefaultOrphans
	}
	if opts.CommentPageSize <= 0 {
		opts.CommentPageSize = DefaultCommentPageSize
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.New[string, query.Predicate](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("search: predicate cache: %w", err)
	}
	return &Service{
		store:    store,
		articles: paginate.New(opts.PageSize, opts.Orphans),
		comments: paginate.New(opts.CommentPageSize, 0),
		cache:    cache,
		logger:   logger,
	}, nil
}

// Search parses values and returns the requested page of matching
// articles. Invalid criteria do not fail the call: the result carries the
// validation errors and a page of all articles. Only storage failures are
// returned as errors.
func (s *Service) Search(ctx context.Context, values url.Values) (*Result, error) {
	start := time.Now()
	c, err := criteria.Parse(values)
	mode := string(c.Mode)
	if mode == "" {
		mode = string(criteria.ModeSimple)
	}

	res := &Result{Criteria: c, Errors: apperr.ValidationErrors{}, Query: url.Values{}}
	pred := query.All()
	if err != nil {
		verrs, ok := apperr.AsValidation(err)
		if !ok {
			return nil, err
		}
		res.Errors = verrs
		s.logger.Debug("search: invalid criteria", slog.String("errors", verrs.Error()))
	} else {
		if c.TagFilter > 0 {
			tag, err := s.store.TagByID(ctx, c.TagFilter)
			switch {
			case errors.Is(err, apperr.ErrNotFound):
				res.Errors = apperr.Invalid(criteria.ParamTag, CodeUnknownTag,
					fmt.Sprintf("tag %d does not exist", c.TagFilter))
			case err != nil:
				metrics.RecordSearch(mode, "error", time.Since(start).Seconds())
				return nil, fmt.Errorf("search: resolve tag: %w", err)
			default:
				res.Tag = &tag
			}
		}
		if res.Valid() {
			pred = s.Predicate(c)
			res.Query = c.Values()
		}
	}

	page, err := s.page(ctx, pred, values.Get(criteria.ParamPage))
	if err != nil {
		metrics.RecordSearch(mode, "error", time.Since(start).Seconds())
		return nil, err
	}
	res.Page = page

	outcome := "ok"
	if !res.Valid() {
		outcome = "invalid"
	}
	metrics.RecordSearch(mode, outcome, time.Since(start).Seconds())
	return res, nil
}

// Explanation reports whether one article is part of a search's results.
type Explanation struct {
	ArticleID int64                   `json:"article_id"`
	Criteria  criteria.Criteria       `json:"criteria"`
	Errors    apperr.ValidationErrors `json:"errors"`
	Matches   bool                    `json:"matches"`
}

// Explain evaluates the search described by values against a single article
// in memory, without paging. Rejected criteria behave as in Search: every
// article matches.
func (s *Service) Explain(ctx context.Context, values url.Values, articleID int64) (*Explanation, error) {
	a, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("search: explain %d: %w", articleID, err)
	}

	c, err := criteria.Parse(values)
	out := &Explanation{ArticleID: articleID, Criteria: c, Errors: apperr.ValidationErrors{}, Matches: true}
	if err != nil {
		verrs, ok := apperr.AsValidation(err)
		if !ok {
			return nil, err
		}
		out.Errors = verrs
		return out, nil
	}
	if c.TagFilter > 0 {
		if _, err := s.store.TagByID(ctx, c.TagFilter); errors.Is(err, apperr.ErrNotFound) {
			out.Errors = apperr.Invalid(criteria.ParamTag, CodeUnknownTag,
				fmt.Sprintf("tag %d does not exist", c.TagFilter))
			return out, nil
		} else if err != nil {
			return nil, fmt.Errorf("search: resolve tag: %w", err)
		}
	}

	count, err := s.store.CountComments(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("search: count comments: %w", err)
	}
	var comments []models.Comment
	if count > 0 {
		if comments, err = s.store.ListComments(ctx, articleID, count, 0); err != nil {
			return nil, fmt.Errorf("search: list comments: %w", err)
		}
	}
	out.Matches = query.Match(s.Predicate(c), query.NewRecord(*a, comments))
	return out, nil
}

// Predicate returns the memoized query for c.
func (s *Service) Predicate(c criteria.Criteria) query.Predicate {
	key := c.Key()
	if p, ok := s.cache.Get(key); ok {
		metrics.RecordCache(true)
		return p
	}
	metrics.RecordCache(false)
	p := query.Build(c)
	s.cache.Add(key, p)
	return p
}

func (s *Service) page(ctx context.Context, p query.Predicate, pageParam string) (paginate.Page[models.Article], error) {
	count, err := s.store.CountArticles(ctx, p)
	if err != nil {
		return paginate.Page[models.Article]{}, fmt.Errorf("search: count: %w", err)
	}
	w := s.articles.Window(paginate.ParseNumber(pageParam), count)
	var items []models.Article
	if w.Limit > 0 {
		items, err = s.store.FindArticles(ctx, p, w.Limit, w.Offset)
		if err != nil {
			return paginate.Page[models.Article]{}, fmt.Errorf("search: find: %w", err)
		}
	}
	return paginate.NewPage(w, items), nil
}

// Comments returns one page of an article's comments, newest first. Pages
// are strict: no orphan absorption.
func (s *Service) Comments(ctx context.Context, articleID int64, pageParam string) (paginate.Page[models.Comment], error) {
	count, err := s.store.CountComments(ctx, articleID)
	if err != nil {
		return paginate.Page[models.Comment]{}, fmt.Errorf("search: count comments: %w", err)
	}
	w := s.comments.Window(paginate.ParseNumber(pageParam), count)
	var items []models.Comment
	if w.Limit > 0 {
		items, err = s.store.ListComments(ctx, articleID, w.Limit, w.Offset)
		if err != nil {
			return paginate.Page[models.Comment]{}, fmt.Errorf("search: list comments: %w", err)
		}
	}
	return paginate.NewPage(w, items), nil
}

// PageLink renders the query string for another page of the same search.
func (r *Result) PageLink(number int) string {
	v := url.Values{}
	for k, vs := range r.Query {
		v[k] = append([]string(nil), vs...)
	}
	v.Set(criteria.ParamPage, strconv.Itoa(number))
	return v.Encode()
}
