package testutil

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dalemusser/ledgerhub/internal/app/system/auth"
	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// GuestIdentity returns a fresh anonymous identity.
func GuestIdentity() models.Identity {
	return models.Identity{
		UID:         "guest-" + uuid.NewString(),
		IsAnonymous: true,
	}
}

// UserIdentity returns a fresh authenticated identity.
func UserIdentity(name string) models.Identity {
	return models.Identity{
		UID:         "user-" + uuid.NewString(),
		Email:       name + "@test.example",
		DisplayName: name,
	}
}

// WithIdentity injects an identity into the request, as the session
// middleware would.
func WithIdentity(r *http.Request, id models.Identity) *http.Request {
	return auth.WithIdentity(r, id)
}
