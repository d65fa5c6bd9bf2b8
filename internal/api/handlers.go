package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/folio/internal/articles"
	"github.com/starford/folio/internal/criteria"
	"github.com/starford/folio/internal/search"
)

// Handler holds API route handlers.
type Handler struct {
	search   *search.Service
	articles *articles.Service
}

// NewHandler creates a new Handler.
func NewHandler(searchSvc *search.Service, articleSvc *articles.Service) *Handler {
	return &Handler{search: searchSvc, articles: articleSvc}
}

// articleID parses the {id} route parameter, writing a 404 when it is not a
// positive integer.
func articleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return 0, false
	}
	return id, true
}

// SearchArticles handles GET /api/articles.
//
// Rejected criteria still answer 200: the errors are listed and the page
// holds every article. Without mode=full, absent scope flags keep their
// defaults.
//
//	@Summary		Search articles
//	@Tags			articles
//	@Produce		json
//	@Param			mode				query		string	false	"simple or full; full marks a form submission where absent flags are off"	Enums(simple, full)
//	@Param			search				query		string	false	"Simple search text"
//	@Param			text				query		string	false	"Full search text"
//	@Param			in_title			query		bool	false	"Match titles"
//	@Param			in_text				query		bool	false	"Match bodies"
//	@Param			in_tags				query		bool	false	"Match tag names"
//	@Param			in_comment_text		query		bool	false	"Match comment text"
//	@Param			author				query		string	false	"Author name"
//	@Param			article_author		query		bool	false	"Match article authors"
//	@Param			comment_author		query		bool	false	"Match comment authors"
//	@Param			tag					query		int		false	"Tag id filter"
//	@Param			page				query		int		false	"Page number"
//	@Success		200					{object}	SearchResponse
//	@Security		BearerAuth
//	@Router			/articles [get]
func (h *Handler) SearchArticles(w http.ResponseWriter, r *http.Request) {
	res, err := h.search.Search(r.Context(), r.URL.Query())
	if err != nil {
		writeError(w, "search articles", err)
		return
	}

	meta := pageMeta(res.Page)
	if res.Page.HasNext {
		meta.Next = res.PageLink(res.Page.Number + 1)
	}
	if res.Page.HasPrevious {
		meta.Previous = res.PageLink(res.Page.Number - 1)
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Articles: res.Page.Items,
		Page:     meta,
		Errors:   res.Errors,
		Criteria: res.Criteria,
		Tag:      res.Tag,
		Query:    res.Query.Encode(),
	})
}

// CreateArticle handles POST /api/articles.
//
//	@Summary		Create an article
//	@Tags			articles
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ArticleRequest	true	"Article to create"
//	@Success		201		{object}	models.Article
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	validationResponse
//	@Security		BearerAuth
//	@Router			/articles [post]
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req ArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.articles.Create(r.Context(), articles.ArticleInput{
		Title: req.Title, Author: req.Author, Body: req.Body, Tags: req.Tags,
	})
	if err != nil {
		writeError(w, "create article", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// GetArticle handles GET /api/articles/{id}.
//
//	@Summary		Get an article with a page of its comments
//	@Tags			articles
//	@Produce		json
//	@Param			id		path		int	true	"Article id"
//	@Param			page	query		int	false	"Comment page"
//	@Success		200		{object}	ArticleResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id} [get]
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}
	a, err := h.articles.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get article", err)
		return
	}
	comments, err := h.search.Comments(r.Context(), id, r.URL.Query().Get(criteria.ParamPage))
	if err != nil {
		writeError(w, "list comments", err)
		return
	}
	writeJSON(w, http.StatusOK, ArticleResponse{
		Article:  *a,
		TagsLine: articles.TagsLine(a),
		Comments: comments.Items,
		Page:     pageMeta(comments),
	})
}

// UpdateArticle handles PUT /api/articles/{id}.
//
//	@Summary		Update an article
//	@Description	Omitting tags keeps the current tags; an empty string clears them.
//	@Tags			articles
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Article id"
//	@Param			body	body		ArticleRequest	true	"New content"
//	@Success		200		{object}	models.Article
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	validationResponse
//	@Security		BearerAuth
//	@Router			/articles/{id} [put]
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}
	var req ArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.articles.Update(r.Context(), id, articles.ArticleInput{
		Title: req.Title, Author: req.Author, Body: req.Body, Tags: req.Tags,
	})
	if err != nil {
		writeError(w, "update article", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteArticle handles DELETE /api/articles/{id}.
//
//	@Summary		Delete an article
//	@Tags			articles
//	@Param			id	path	int	true	"Article id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id} [delete]
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}
	if err := h.articles.Delete(r.Context(), id); err != nil {
		writeError(w, "delete article", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListComments handles GET /api/articles/{id}/comments.
//
//	@Summary		List an article's comments, newest first
//	@Tags			comments
//	@Produce		json
//	@Param			id		path		int	true	"Article id"
//	@Param			page	query		int	false	"Page number"
//	@Success		200		{object}	CommentsResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id}/comments [get]
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}
	if _, err := h.articles.Get(r.Context(), id); err != nil {
		writeError(w, "get article", err)
		return
	}
	page, err := h.search.Comments(r.Context(), id, r.URL.Query().Get(criteria.ParamPage))
	if err != nil {
		writeError(w, "list comments", err)
		return
	}
	writeJSON(w, http.StatusOK, CommentsResponse{Comments: page.Items, Page: pageMeta(page)})
}

// AddComment handles POST /api/articles/{id}/comments.
//
//	@Summary		Comment on an article
//	@Tags			comments
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Article id"
//	@Param			body	body		CommentRequest	true	"Comment"
//	@Success		201		{object}	models.Comment
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	validationResponse
//	@Security		BearerAuth
//	@Router			/articles/{id}/comments [post]
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}
	var req CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cm, err := h.articles.AddComment(r.Context(), id, articles.CommentInput{Author: req.Author, Text: req.Text})
	if err != nil {
		writeError(w, "add comment", err)
		return
	}
	slog.Debug("comment added", slog.Int64("article_id", id), slog.Int64("id", cm.ID))
	writeJSON(w, http.StatusCreated, cm)
}

// ListTags handles GET /api/tags.
//
//	@Summary		List tags with article counts
//	@Tags			tags
//	@Produce		json
//	@Success		200	{object}	TagsResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.articles.ListTags(r.Context())
	if err != nil {
		writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}
