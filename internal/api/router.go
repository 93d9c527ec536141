package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/tactica/internal/sessionservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *sessionservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Sessions CRUD.
	r.Get("/sessions", h.ListSessions)
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Put("/", h.SaveSession)
		r.Delete("/", h.DeleteSession)
		r.Put("/video", h.SetVideo)
		r.Get("/frame", h.Frame)

		// Timeline edits.
		r.Post("/clips", h.MarkClip)
		r.Patch("/clips/{clipID}", h.UpdateClip)
		r.Delete("/clips/{clipID}", h.DeleteClip)
		r.Post("/annotations", h.AddAnnotation)
		r.Patch("/annotations/{annotationID}", h.UpdateAnnotation)
		r.Delete("/annotations/{annotationID}", h.DeleteAnnotation)
		r.Post("/annotations/{annotationID}/motion", h.RecordMotion)
	})

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
