// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter serving sign-in and sign-out. Mounted at
// the root: /login/guest, /auth/google, /auth/google/callback, /logout.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/login/guest", h.ServeGuestLogin)
	r.Get("/auth/google", h.ServeGoogleLogin)
	r.Get("/auth/google/callback", h.ServeGoogleCallback)
	r.Post("/logout", h.ServeLogout)
	return r
}
