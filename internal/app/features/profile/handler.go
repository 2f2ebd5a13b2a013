// internal/app/features/profile/handler.go
package profile

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	uierrors "github.com/dalemusser/ledgerhub/internal/app/features/errors"
	profilestore "github.com/dalemusser/ledgerhub/internal/app/store/profiles"
	"github.com/dalemusser/ledgerhub/internal/app/system/apperr"
	"github.com/dalemusser/ledgerhub/internal/app/system/auth"
	"github.com/dalemusser/ledgerhub/internal/app/system/inputval"
	"github.com/dalemusser/ledgerhub/internal/app/system/timeouts"
)

// Handler serves the caller's own profile.
type Handler struct {
	Profiles *profilestore.Resolver
	Log      *zap.Logger
}

func NewHandler(profiles *profilestore.Resolver, logger *zap.Logger) *Handler {
	return &Handler{Profiles: profiles, Log: logger}
}

// ServeGet handles GET /profile.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Profiles.Resolve(ctx, id)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	uierrors.RenderJSON(w, http.StatusOK, p)
}

type updateRequest struct {
	DisplayName *string `json:"display_name"`
}

// ServeUpdate handles PATCH /profile.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.RenderError(w, h.Log, apperr.Wrap(apperr.InvalidInput, "invalid request body", err))
		return
	}
	if req.DisplayName != nil {
		clean := inputval.Clean(*req.DisplayName)
		req.DisplayName = &clean
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.Profiles.Resolve(ctx, id)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	updated, err := h.Profiles.UpdateProfile(ctx, id, p, profilestore.ProfileUpdate{
		DisplayName: req.DisplayName,
	})
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	uierrors.RenderJSON(w, http.StatusOK, updated)
}
