package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ehwaz/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	// Link analysis per note.
	r.Get("/notes/{id}/backlinks", h.Backlinks)
	r.Get("/notes/{id}/connections", h.Connections)
	r.Get("/notes/{id}/validation", h.Validation)

	// Pairwise strength and repair suggestions.
	r.Get("/connection", h.ConnectionStrength)
	r.Get("/suggestions", h.Suggestions)

	// Search.
	r.Get("/search", h.Search)

	// Graph and statistics.
	r.Get("/graph", h.Graph)
	r.Get("/graph/stats", h.GraphStats)
	r.Get("/stats", h.LinkStats)
	r.Get("/tags", h.Tags)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
