package models

import (
	"time"
)

// Profile is the per-user profile document. Exactly one profile exists
// per uid; the Mongo document key (_id) is the uid itself so that the
// `users/<uid>` addressing used by existing deployments keeps working.
//
// A profile lives either in the remote `users` collection or, for
// anonymous/offline identities, as a JSON blob in the local key-value
// store under `userProfile-<uid>`. IsLocalProfile marks the latter and
// is never written to the remote store.
type Profile struct {
	UID         string   `bson:"_id" json:"uid"`
	Email       string   `bson:"email,omitempty" json:"email,omitempty"`
	DisplayName string   `bson:"display_name" json:"display_name"`
	MemberOf    []string `bson:"member_of_groups" json:"member_of_groups"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`

	IsAnonymous bool `bson:"is_anonymous" json:"is_anonymous"`

	// IsLocalProfile is true when this profile is served from local
	// persistence (guest identity or remote store unreachable).
	IsLocalProfile bool `bson:"-" json:"is_local_profile"`
}

// IsMemberOf reports whether groupID is in the membership set.
func (p Profile) IsMemberOf(groupID string) bool {
	for _, g := range p.MemberOf {
		if g == groupID {
			return true
		}
	}
	return false
}
