// internal/app/features/contacts/stream.go
package contacts

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	uierrors "github.com/dalemusser/ledgerhub/internal/app/features/errors"
	"github.com/dalemusser/ledgerhub/internal/app/features/shared"
	contactstore "github.com/dalemusser/ledgerhub/internal/app/store/contacts"
	"github.com/dalemusser/ledgerhub/internal/app/system/apperr"
	"github.com/dalemusser/ledgerhub/internal/app/system/auth"
	"github.com/dalemusser/ledgerhub/internal/app/system/identity"
	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

type streamEvent struct {
	State    string           `json:"state"`
	Contacts []models.Contact `json:"contacts"`
}

// ServeStream handles GET /contacts/stream: a server-sent-events feed
// of the selected group's contact list. Each event carries the session
// state and the full sorted list; a degraded session keeps streaming
// from local storage instead of closing.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		uierrors.RenderError(w, h.Log, apperr.New(apperr.Unknown, "streaming not supported"))
		return
	}

	s, err := shared.ResolveSession(r, h.Profiles)
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}

	// The stream is a long-lived session, so it runs through the
	// identity resolver: the selected group defaults to the personal
	// group and can be overridden per connection.
	res := identity.NewResolver(&identity.StaticProvider{ID: &s.Identity}, h.Log)
	res.Start()
	defer res.Stop()
	if g := auth.CurrentGroup(r); g != "" {
		res.SwitchGroup(g)
	}
	if g := r.URL.Query().Get("group"); g != "" {
		res.SwitchGroup(g)
	}
	s.GroupID = res.Snapshot().GroupID

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Snapshots arrive from the repository's goroutines; serialize the
	// writes onto this request's goroutine.
	events := make(chan contactstore.Snapshot, 8)
	cancel, err := h.Contacts.Open(r.Context(), s, func(snap contactstore.Snapshot) {
		select {
		case events <- snap:
		case <-r.Context().Done():
		}
	})
	if err != nil {
		uierrors.RenderError(w, h.Log, err)
		return
	}
	defer cancel()

	h.Log.Debug("contact stream opened",
		zap.String("uid", s.Identity.UID), zap.String("group_id", s.GroupID))

	for {
		select {
		case <-r.Context().Done():
			return
		case snap := <-events:
			contacts := snap.Contacts
			if contacts == nil {
				contacts = []models.Contact{}
			}
			payload, err := json.Marshal(streamEvent{
				State:    snap.State.String(),
				Contacts: contacts,
			})
			if err != nil {
				h.Log.Error("contact stream encode failed", zap.Error(err))
				return
			}
			fmt.Fprintf(w, "event: contacts\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
