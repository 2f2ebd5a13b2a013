// internal/app/features/workspaces/handler.go
package workspaces

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	uierrors "github.com/dalemusser/ledgerhub/internal/app/features/errors"
	"github.com/dalemusser/ledgerhub/internal/app/features/shared"
	profilestore "github.com/dalemusser/ledgerhub/internal/app/store/profiles"
	"github.com/dalemusser/ledgerhub/internal/app/system/apperr"
	"github.com/dalemusser/ledgerhub/internal/app/system/auth"
	"github.com/dalemusser/ledgerhub/internal/app/system/inputval"
	"github.com/dalemusser/ledgerhub/internal/app/system/ratelimit"
	"github.com/dalemusser/ledgerhub/internal/app/system/registry"
	"github.com/dalemusser/ledgerhub/internal/app/system/timeouts"
	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

// Handler serves the shared-workspace endpoints.
type Handler struct {
	Profiles *profilestore.Resolver
	Registry *registry.Registry
	Invites  *ratelimit.InviteLimiter
	Log      *zap.Logger
}

func NewHandler(profiles *profilestore.Resolver, reg *registry.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		Profiles: profiles,
		Registry: reg,
		Invites:  ratelimit.NewInviteLimiter(),
		Log:      logger,
	}
}

type createRequest struct {
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

type workspaceResponse struct {
	Workspace models.Workspace `json:"workspace"`
	Groups    []string         `json:"groups"`
}

// ServeCreate handles POST /workspaces.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.RenderError(w, h.Log, apperr.Wrap(apperr.InvalidInput, "invalid request body", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, err := shared.ResolveSession(r, h.Profiles)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	ws, updated, err := h.Registry.CreateWorkspace(ctx, s.Identity, s.Profile,
		inputval.Clean(req.DisplayName), inputval.CleanMultiline(req.Description))
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	uierrors.RenderJSON(w, http.StatusCreated, workspaceResponse{
		Workspace: ws,
		Groups:    updated.MemberOf,
	})
}

type joinRequest struct {
	Code string `json:"code"`
}

// ServeJoin handles POST /workspaces/join: redeems an invite code and
// switches the session to the joined workspace.
func (h *Handler) ServeJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.RenderError(w, h.Log, apperr.Wrap(apperr.InvalidInput, "invalid request body", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, err := shared.ResolveSession(r, h.Profiles)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	if !h.Invites.Check(r, s.Identity.UID) {
		uierrors.RenderError(w, h.Log,
			apperr.New(apperr.InvalidInput, "too many attempts, try again later"))
		return
	}
	ws, updated, err := h.Registry.JoinWorkspaceByCode(ctx, s.Identity, s.Profile, req.Code)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	h.Invites.ResetUID(s.Identity.UID)
	if err := auth.SetCurrentGroup(w, r, ws.ID); err != nil {
		uierrors.RenderError(w, h.Log, apperr.Wrap(apperr.Unknown, "could not switch group", err))
		return
	}
	uierrors.RenderJSON(w, http.StatusOK, workspaceResponse{
		Workspace: ws,
		Groups:    updated.MemberOf,
	})
}

// ServeCreateInvite handles POST /workspaces/{workspaceID}/invites.
func (h *Handler) ServeCreateInvite(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceID")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	s, err := shared.ResolveSession(r, h.Profiles)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	ic, err := h.Registry.GenerateInviteCode(ctx, s.Identity, s.Profile, workspaceID)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	uierrors.RenderJSON(w, http.StatusCreated, ic)
}

// ServeInfo handles GET /workspaces/{workspaceID}.
func (h *Handler) ServeInfo(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceID")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	info, err := h.Registry.GetWorkspaceInfo(ctx, workspaceID)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	uierrors.RenderJSON(w, http.StatusOK, info)
}

// ServeGetSettings handles GET /workspaces/{workspaceID}/settings.
// Personal groups and guest callers have no settings document and get
// a JSON null body.
func (h *Handler) ServeGetSettings(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceID")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	id, _ := auth.CurrentIdentity(r)
	settings, err := h.Registry.GetWorkspaceSettings(ctx, id, workspaceID)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	uierrors.RenderJSON(w, http.StatusOK, settings)
}

type settingsRequest struct {
	DisplayName *string `json:"display_name"`
	Description *string `json:"description"`
	IsPrivate   *bool   `json:"is_private"`
	HasPassword *bool   `json:"has_password"`
	Password    *string `json:"password"`
}

// ServeUpdateSettings handles PUT /workspaces/{workspaceID}/settings.
func (h *Handler) ServeUpdateSettings(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceID")

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.RenderError(w, h.Log, apperr.Wrap(apperr.InvalidInput, "invalid request body", err))
		return
	}
	if req.DisplayName != nil {
		clean := inputval.Clean(*req.DisplayName)
		req.DisplayName = &clean
	}
	if req.Description != nil {
		clean := inputval.CleanMultiline(*req.Description)
		req.Description = &clean
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, err := shared.ResolveSession(r, h.Profiles)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	err = h.Registry.UpdateWorkspaceSettings(ctx, s.Identity, workspaceID, registry.Settings{
		DisplayName: req.DisplayName,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
		HasPassword: req.HasPassword,
		Password:    req.Password,
	})
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	info, err := h.Registry.GetWorkspaceInfo(ctx, workspaceID)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	uierrors.RenderJSON(w, http.StatusOK, info)
}

type verifyRequest struct {
	Password string `json:"password"`
}

// ServeVerifyPassword handles POST /workspaces/{workspaceID}/verify_password.
func (h *Handler) ServeVerifyPassword(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceID")

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		uierrors.RenderError(w, h.Log, apperr.Wrap(apperr.InvalidInput, "invalid request body", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	id, _ := auth.CurrentIdentity(r)
	ok := h.Registry.VerifyWorkspacePassword(ctx, id, workspaceID, req.Password)
	uierrors.RenderJSON(w, http.StatusOK, map[string]bool{"verified": ok})
}
