// internal/app/features/workspaces/routes.go
package workspaces

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter serving workspace endpoints, mounted under
// /workspaces.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.ServeCreate)
	r.Post("/join", h.ServeJoin)
	r.Get("/{workspaceID}", h.ServeInfo)
	r.Post("/{workspaceID}/invites", h.ServeCreateInvite)
	r.Get("/{workspaceID}/settings", h.ServeGetSettings)
	r.Put("/{workspaceID}/settings", h.ServeUpdateSettings)
	r.Post("/{workspaceID}/verify_password", h.ServeVerifyPassword)
	return r
}
