// Package groupid centralizes the id, path, and key conventions shared
// with existing stored data. These formats must be reproduced exactly:
// changing any of them orphans documents written by earlier deployments.
package groupid

import (
	"crypto/rand"
	"strings"
)

const (
	// PersonalPrefix marks auto-provisioned per-user groups. A personal
	// group is never stored as a Workspace document; it is synthesized
	// from the uid and always accessible to its owner.
	PersonalPrefix = "personal_"

	// WorkspacePrefix marks shared workspace ids.
	WorkspacePrefix = "ws_"

	workspaceIDLength = 12
	workspaceAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Personal returns the personal group id for a uid.
func Personal(uid string) string {
	return PersonalPrefix + uid
}

// IsPersonal reports whether groupID is a personal group.
func IsPersonal(groupID string) bool {
	return strings.HasPrefix(groupID, PersonalPrefix)
}

// OwnerOfPersonal returns the uid owning a personal group id, or ""
// when groupID is not a personal group.
func OwnerOfPersonal(groupID string) string {
	if !IsPersonal(groupID) {
		return ""
	}
	return strings.TrimPrefix(groupID, PersonalPrefix)
}

// NewWorkspaceID generates a fresh workspace id: the literal `ws_`
// prefix followed by 12 random lowercase alphanumerics. The space is
// large enough that collisions are negligible and not retried.
func NewWorkspaceID() string {
	buf := make([]byte, workspaceIDLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic("groupid: rand.Read: " + err.Error())
	}
	b := strings.Builder{}
	b.WriteString(WorkspacePrefix)
	for _, c := range buf {
		b.WriteByte(workspaceAlphabet[int(c)%len(workspaceAlphabet)])
	}
	return b.String()
}

// ContactsCollection returns the remote collection name holding a
// group's contacts: `groups/<groupId>/contacts`.
func ContactsCollection(groupID string) string {
	return "groups/" + groupID + "/contacts"
}

// LocalContactsKey returns the local persistence key for a group's
// contact list: `contacts-<groupId>`.
func LocalContactsKey(groupID string) string {
	return "contacts-" + groupID
}

// LocalProfileKey returns the local persistence key for a user's
// profile: `userProfile-<uid>`.
func LocalProfileKey(uid string) string {
	return "userProfile-" + uid
}
