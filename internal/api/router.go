package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(searcher Searcher, writer Writer, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(searcher, writer)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Search and browse.
	r.Get("/search", h.Search)
	r.Get("/entries", h.ListRecent)
	r.Get("/entry", h.ReadEntry)

	// Writing.
	r.Post("/entries", h.WriteEntry)
	r.Post("/thoughts", h.WriteThoughts)
	r.Delete("/entry", h.DeleteEntry)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
