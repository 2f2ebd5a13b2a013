// internal/app/features/groups/handler.go
package groups

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	uierrors "github.com/dalemusser/ledgerhub/internal/app/features/errors"
	"github.com/dalemusser/ledgerhub/internal/app/features/shared"
	"github.com/dalemusser/ledgerhub/internal/app/policy/accesspolicy"
	profilestore "github.com/dalemusser/ledgerhub/internal/app/store/profiles"
	"github.com/dalemusser/ledgerhub/internal/app/system/apperr"
	"github.com/dalemusser/ledgerhub/internal/app/system/auth"
	"github.com/dalemusser/ledgerhub/internal/app/system/groupid"
	"github.com/dalemusser/ledgerhub/internal/app/system/registry"
	"github.com/dalemusser/ledgerhub/internal/app/system/timeouts"
	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

// Handler serves the group membership and selection endpoints.
type Handler struct {
	Profiles *profilestore.Resolver
	Registry *registry.Registry
	Log      *zap.Logger
}

func NewHandler(profiles *profilestore.Resolver, reg *registry.Registry, logger *zap.Logger) *Handler {
	return &Handler{Profiles: profiles, Registry: reg, Log: logger}
}

type listResponse struct {
	CurrentGroup string                 `json:"current_group"`
	Groups       []string               `json:"groups"`
	Workspaces   []models.WorkspaceInfo `json:"workspaces"`
}

// ServeList handles GET /groups: the caller's memberships, the selected
// group, and the public info of every shared workspace among them.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, err := shared.ResolveSession(r, h.Profiles)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	infos, err := h.Registry.GetWorkspacesInfo(ctx, s.Profile.MemberOf)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	uierrors.RenderJSON(w, http.StatusOK, listResponse{
		CurrentGroup: s.GroupID,
		Groups:       s.Profile.MemberOf,
		Workspaces:   infos,
	})
}

type joinGroupRequest struct {
	GroupID string `json:"group_id"`
}

// ServeJoin handles POST /groups/join: adds a group id to the caller's
// membership set directly. Shared workspaces are normally joined by
// invite code; this is the raw form, and it is idempotent.
func (h *Handler) ServeJoin(w http.ResponseWriter, r *http.Request) {
	var req joinGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupID == "" {
		uierrors.RenderError(w, h.Log, apperr.New(apperr.InvalidInput, "group_id is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, err := shared.ResolveSession(r, h.Profiles)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	updated, err := h.Profiles.JoinGroup(ctx, s.Identity, s.Profile, req.GroupID)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	uierrors.RenderJSON(w, http.StatusOK, listResponse{
		CurrentGroup: s.GroupID,
		Groups:       updated.MemberOf,
	})
}

type switchRequest struct {
	GroupID string `json:"group_id"`
}

// ServeSwitch handles POST /groups/switch: changes the session's
// selected group after an access check.
func (h *Handler) ServeSwitch(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupID == "" {
		uierrors.RenderError(w, h.Log, apperr.New(apperr.InvalidInput, "group_id is required"))
		return
	}

	s, err := shared.ResolveSession(r, h.Profiles)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	if !accesspolicy.HasAccess(&s.Profile, &s.Identity, req.GroupID) {
		uierrors.RenderError(w, h.Log,
			apperr.Newf(apperr.Forbidden, "no access to group %q", req.GroupID))
		return
	}
	if err := auth.SetCurrentGroup(w, r, req.GroupID); err != nil {
		uierrors.RenderError(w, h.Log, apperr.Wrap(apperr.Unknown, "could not switch group", err))
		return
	}
	uierrors.RenderJSON(w, http.StatusOK, map[string]string{"current_group": req.GroupID})
}

type leaveRequest struct {
	GroupID string `json:"group_id"`
}

// ServeLeave handles POST /groups/leave. Leaving the currently selected
// group moves the selection back to the personal group.
func (h *Handler) ServeLeave(w http.ResponseWriter, r *http.Request) {
	var req leaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupID == "" {
		uierrors.RenderError(w, h.Log, apperr.New(apperr.InvalidInput, "group_id is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, err := shared.ResolveSession(r, h.Profiles)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	updated, err := h.Profiles.LeaveGroup(ctx, s.Identity, s.Profile, req.GroupID)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}

	current := s.GroupID
	if current == req.GroupID {
		current = groupid.Personal(s.Identity.UID)
		if err := auth.SetCurrentGroup(w, r, current); err != nil {
			uierrors.RenderError(w, h.Log, apperr.Wrap(apperr.Unknown, "could not switch group", err))
			return
		}
	}
	uierrors.RenderJSON(w, http.StatusOK, listResponse{
		CurrentGroup: current,
		Groups:       updated.MemberOf,
	})
}
