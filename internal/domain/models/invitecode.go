package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InviteCodeTTL is how long an invite code remains redeemable after
// creation. Expiry is evaluated lazily at redemption time; there is no
// background sweep.
const InviteCodeTTL = 7 * 24 * time.Hour

// InviteCode grants join rights to a workspace. Codes are 6-digit
// decimal strings ("100000".."999999"), looked up by `code` equality.
// They are not single-use: UsedCount is tracked but not enforced as a
// limit, and there is no revocation operation.
type InviteCode struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code        string             `bson:"code" json:"code"`
	WorkspaceID string             `bson:"workspace_id" json:"workspace_id"`
	CreatedBy   string             `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UsedCount   int                `bson:"used_count" json:"used_count"`
}

// ExpiredAt reports whether the code has expired as of now.
func (c InviteCode) ExpiredAt(now time.Time) bool {
	return now.Sub(c.CreatedAt) > InviteCodeTTL
}
