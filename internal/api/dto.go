package api

import (
	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/criteria"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/paginate"
)

// ArticleRequest is the body for creating or updating an article. Omitting
// tags on update keeps the current tags.
type ArticleRequest struct {
	Title  string  `json:"title" example:"Indexing strategies" validate:"required"`
	Author string  `json:"author" example:"ann" validate:"required"`
	Body   string  `json:"body" example:"Covering indexes avoid a second lookup." validate:"required"`
	Tags   *string `json:"tags,omitempty" example:"databases, performance"`
}

// CommentRequest is the body for adding a comment.
type CommentRequest struct {
	Author string `json:"author" example:"bob" validate:"required"`
	Text   string `json:"text" example:"Nice write-up." validate:"required"`
}

// PageMeta describes the position of a page within its result set.
type PageMeta struct {
	Number      int    `json:"number" example:"1"`
	NumPages    int    `json:"num_pages" example:"3"`
	Count       int    `json:"count" example:"12"`
	HasNext     bool   `json:"has_next"`
	HasPrevious bool   `json:"has_previous"`
	Next        string `json:"next,omitempty" example:"search=go&page=2"`
	Previous    string `json:"previous,omitempty"`
}

func pageMeta[T any](p paginate.Page[T]) PageMeta {
	return PageMeta{
		Number:      p.Number,
		NumPages:    p.NumPages,
		Count:       p.Count,
		HasNext:     p.HasNext,
		HasPrevious: p.HasPrevious,
	}
}

// SearchResponse is one page of search results. Errors is non-empty when the
// criteria were rejected; Articles then holds an unfiltered page.
type SearchResponse struct {
	Articles []models.Article       `json:"articles" validate:"required"`
	Page     PageMeta               `json:"page" validate:"required"`
	Errors   apperr.ValidationErrors `json:"errors" validate:"required"`
	Criteria criteria.Criteria      `json:"criteria"`
	Tag      *models.Tag            `json:"tag,omitempty"`
	Query    string                 `json:"query" example:"search=go"`
}

// ArticleResponse is one article with a page of its comments.
type ArticleResponse struct {
	Article  models.Article   `json:"article" validate:"required"`
	TagsLine string           `json:"tags_line" example:"databases, performance"`
	Comments []models.Comment `json:"comments" validate:"required"`
	Page     PageMeta         `json:"comments_page" validate:"required"`
}

// CommentsResponse is one page of comments.
type CommentsResponse struct {
	Comments []models.Comment `json:"comments" validate:"required"`
	Page     PageMeta         `json:"page" validate:"required"`
}

// TagsResponse lists every tag with its article count.
type TagsResponse struct {
	Tags []models.TagCount `json:"tags" validate:"required"`
}
