// Package shared holds the request-scoped plumbing every feature needs.
package shared

import (
	"net/http"

	contactstore "github.com/dalemusser/ledgerhub/internal/app/store/contacts"
	profilestore "github.com/dalemusser/ledgerhub/internal/app/store/profiles"
	"github.com/dalemusser/ledgerhub/internal/app/system/apperr"
	"github.com/dalemusser/ledgerhub/internal/app/system/auth"
	"github.com/dalemusser/ledgerhub/internal/app/system/groupid"
)

// ResolveSession assembles the working session for a request: the
// identity from the session cookie, its profile (created on first
// sight), and the selected group, defaulting to the personal group.
func ResolveSession(r *http.Request, profiles *profilestore.Resolver) (contactstore.Session, error) {
	id, ok := auth.CurrentIdentity(r)
	if !ok {
		return contactstore.Session{}, apperr.New(apperr.AuthRequired, "sign in required")
	}
	p, err := profiles.Resolve(r.Context(), id)
	if err != nil {
		return contactstore.Session{}, err
	}
	gid := auth.CurrentGroup(r)
	if gid == "" {
		gid = groupid.Personal(id.UID)
	}
	return contactstore.Session{Identity: id, Profile: p, GroupID: gid}, nil
}
