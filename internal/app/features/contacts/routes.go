// internal/app/features/contacts/routes.go
package contacts

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter serving contact endpoints, mounted under
// /contacts.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.ServeCreate)
	r.Get("/groups", h.ServeGroups)
	r.Get("/stream", h.ServeStream)
	r.Put("/{contactID}", h.ServeUpdate)
	r.Delete("/{contactID}", h.ServeDelete)
	return r
}
