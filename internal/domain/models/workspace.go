package models

import (
	"time"
)

// Workspace represents a shared, membership-gated contact group. The
// document key (_id) is the workspace id string (`ws_` + 12 random
// lowercase alphanumerics). Personal groups (`personal_<uid>`) are
// synthesized and are never stored as Workspace documents.
//
// CreatedBy never changes after creation and is the sole admin-rights
// anchor: the creator, and only the creator, may change settings.
type Workspace struct {
	ID          string `bson:"_id" json:"id"`
	DisplayName string `bson:"display_name" json:"display_name"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`

	CreatedBy string    `bson:"created_by" json:"created_by"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`

	MemberCount int  `bson:"member_count" json:"member_count"`
	IsPrivate   bool `bson:"is_private" json:"is_private"`

	// Optional shared-secret protection. The secret is stored and
	// compared in plaintext to stay byte-compatible with documents
	// written by existing deployments; this is a known weakness, not
	// an invitation to harden here.
	HasPassword bool   `bson:"has_password" json:"has_password"`
	Password    string `bson:"password,omitempty" json:"-"`
}

// WorkspaceInfo is the public projection of a Workspace. It is what
// non-admin callers see and deliberately omits the shared secret.
type WorkspaceInfo struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	MemberCount int       `json:"member_count"`
	IsPrivate   bool      `json:"is_private"`
}

// Info returns the public projection of the workspace.
func (w Workspace) Info() WorkspaceInfo {
	return WorkspaceInfo{
		ID:          w.ID,
		DisplayName: w.DisplayName,
		Description: w.Description,
		CreatedBy:   w.CreatedBy,
		CreatedAt:   w.CreatedAt,
		MemberCount: w.MemberCount,
		IsPrivate:   w.IsPrivate,
	}
}

// WorkspaceSettings is the admin-facing projection of a Workspace. It
// exposes the protection flags but never the secret itself.
type WorkspaceSettings struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	IsPrivate   bool   `json:"is_private"`
	HasPassword bool   `json:"has_password"`
}

// Settings returns the admin-facing projection of the workspace.
func (w Workspace) Settings() WorkspaceSettings {
	return WorkspaceSettings{
		ID:          w.ID,
		DisplayName: w.DisplayName,
		Description: w.Description,
		IsPrivate:   w.IsPrivate,
		HasPassword: w.HasPassword,
	}
}

// IsAdmin reports whether uid is the workspace's creator.
func (w Workspace) IsAdmin(uid string) bool {
	return uid != "" && w.CreatedBy == uid
}
