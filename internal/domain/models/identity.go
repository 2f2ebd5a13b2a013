package models

// Identity is the authenticated (or guest) principal for a session, as
// issued by the auth layer. It is immutable for the lifetime of the
// session and is never persisted directly; the persisted counterpart is
// Profile.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	IsAnonymous bool   `json:"is_anonymous"`
}
