package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/folio/internal/articles"
	"github.com/starford/folio/internal/search"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(searchSvc *search.Service, articleSvc *articles.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(searchSvc, articleSvc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/articles", func(r chi.Router) {
		r.Get("/", h.SearchArticles)
		r.Post("/", h.CreateArticle)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetArticle)
			r.Put("/", h.UpdateArticle)
			r.Delete("/", h.DeleteArticle)
			r.Get("/comments", h.ListComments)
			r.Post("/comments", h.AddComment)
		})
	})

	r.Get("/tags", h.ListTags)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
