// internal/app/features/groups/routes.go
package groups

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter serving group membership endpoints,
// mounted under /groups.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/join", h.ServeJoin)
	r.Post("/switch", h.ServeSwitch)
	r.Post("/leave", h.ServeLeave)
	return r
}
