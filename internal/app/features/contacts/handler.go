// internal/app/features/contacts/handler.go
package contacts

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	uierrors "github.com/dalemusser/ledgerhub/internal/app/features/errors"
	"github.com/dalemusser/ledgerhub/internal/app/features/shared"
	contactstore "github.com/dalemusser/ledgerhub/internal/app/store/contacts"
	profilestore "github.com/dalemusser/ledgerhub/internal/app/store/profiles"
	"github.com/dalemusser/ledgerhub/internal/app/system/apperr"
	"github.com/dalemusser/ledgerhub/internal/app/system/inputval"
	"github.com/dalemusser/ledgerhub/internal/app/system/timeouts"
	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

// Handler serves the contact endpoints for the session's selected group.
type Handler struct {
	Profiles *profilestore.Resolver
	Contacts *contactstore.Repository
	Log      *zap.Logger
}

func NewHandler(profiles *profilestore.Resolver, contacts *contactstore.Repository, logger *zap.Logger) *Handler {
	return &Handler{Profiles: profiles, Contacts: contacts, Log: logger}
}

type listResponse struct {
	Contacts  []models.Contact `json:"contacts"`
	LocalMode bool             `json:"local_mode"`
}

// ServeList handles GET /contacts. Optional query parameters: `q`
// filters by case-insensitive name substring, `group` by exact group
// label.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, err := shared.ResolveSession(r, h.Profiles)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	list, err := h.Contacts.Load(ctx, s)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	list = filterContacts(list, r.URL.Query().Get("q"), r.URL.Query().Get("group"))
	if list == nil {
		list = []models.Contact{}
	}
	uierrors.RenderJSON(w, http.StatusOK, listResponse{
		Contacts:  list,
		LocalMode: h.Contacts.IsLocalMode(s),
	})
}

// ServeGroups handles GET /contacts/groups: the group filter labels,
// with the all-groups sentinel "" first.
func (h *Handler) ServeGroups(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, err := shared.ResolveSession(r, h.Profiles)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	list, err := h.Contacts.Load(ctx, s)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	uierrors.RenderJSON(w, http.StatusOK, map[string][]string{
		"groups": contactstore.UniqueGroups(list),
	})
}

type contactRequest struct {
	Name  string `json:"name"`
	Group string `json:"group"`
	Memo  string `json:"memo"`
}

func (req contactRequest) input() contactstore.ContactInput {
	return contactstore.ContactInput{
		Name:  inputval.Clean(req.Name),
		Group: inputval.Clean(req.Group),
		Memo:  inputval.CleanMultiline(req.Memo),
	}
}

// ServeCreate handles POST /contacts.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
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
	created, err := h.Contacts.Add(ctx, s, req.input())
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	uierrors.RenderJSON(w, http.StatusCreated, created)
}

// ServeUpdate handles PUT /contacts/{contactID}.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	contactID := chi.URLParam(r, "contactID")

	var req contactRequest
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
	if err := h.Contacts.Update(ctx, s, contactID, req.input()); err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	uierrors.RenderJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// ServeDelete handles DELETE /contacts/{contactID}.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	contactID := chi.URLParam(r, "contactID")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	s, err := shared.ResolveSession(r, h.Profiles)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	if err := h.Contacts.Delete(ctx, s, contactID); err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	uierrors.RenderJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// filterContacts applies the case-folded name search and the exact
// group label filter.
func filterContacts(list []models.Contact, q, group string) []models.Contact {
	if q == "" && group == "" {
		return list
	}
	q = text.Fold(q)
	out := list[:0:0]
	for _, c := range list {
		if q != "" && !strings.Contains(text.Fold(c.Name), q) {
			continue
		}
		if group != "" && c.Group != group {
			continue
		}
		out = append(out, c)
	}
	return out
}
