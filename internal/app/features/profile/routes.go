// internal/app/features/profile/routes.go
package profile

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter serving the profile endpoints, mounted
// under /profile.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeGet)
	r.Patch("/", h.ServeUpdate)
	return r
}
