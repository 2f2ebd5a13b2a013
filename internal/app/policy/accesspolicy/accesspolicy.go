// Package accesspolicy holds the pure access decision for group data.
// It performs no I/O: everything it needs is already-loaded state, and
// it must be re-evaluated whenever the profile or the selected group
// changes. The same rule gates subscription setup and every write.
package accesspolicy

import (
	"github.com/dalemusser/ledgerhub/internal/app/system/groupid"
	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

// HasAccess reports whether identity may read/write groupID's data.
//
// Anonymous identities and local profiles always have access: local
// data belongs to its local owner. A personal group is always
// accessible to the identity it names, regardless of the membership
// list. Everything else requires membership.
func HasAccess(profile *models.Profile, identity *models.Identity, groupID string) bool {
	if profile == nil || groupID == "" {
		return false
	}
	if identity != nil && identity.IsAnonymous {
		return true
	}
	if profile.IsLocalProfile {
		return true
	}
	if identity != nil && groupID == groupid.Personal(identity.UID) {
		return true
	}
	return profile.IsMemberOf(groupID)
}
