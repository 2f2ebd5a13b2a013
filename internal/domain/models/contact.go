package models

import (
	"time"
)

// Contact is a single ledger entry. Each contact belongs to exactly one
// partition (GroupID); the remote collection for a partition is named
// `groups/<groupId>/contacts` so existing stored data keeps resolving.
//
// Name is required (non-empty after trimming). Group is a free-text
// label used for filtering and may be empty. There is no soft delete.
type Contact struct {
	ID    string `bson:"_id,omitempty" json:"id"`
	Name  string `bson:"name" json:"name"`
	Group string `bson:"group,omitempty" json:"group,omitempty"`
	Memo  string `bson:"memo,omitempty" json:"memo,omitempty"`

	GroupID   string    `bson:"group_id" json:"group_id"`
	CreatedBy string    `bson:"created_by" json:"created_by"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedBy string    `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
