package testutil

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dalemusser/ledgerhub/internal/app/system/groupid"
	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateProfile inserts a profile document for uid with the given
// memberships. The personal group is always included.
func (f *Fixtures) CreateProfile(ctx context.Context, uid string, memberOf ...string) models.Profile {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Profile{
		UID:         uid,
		Email:       uid + "@test.example",
		DisplayName: "Test User " + uid,
		MemberOf:    append([]string{groupid.Personal(uid)}, memberOf...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test profile: %v", err)
	}
	return p
}

// CreateWorkspace inserts a workspace document created by uid.
func (f *Fixtures) CreateWorkspace(ctx context.Context, uid, name string) models.Workspace {
	f.t.Helper()

	now := time.Now().UTC()
	ws := models.Workspace{
		ID:          groupid.NewWorkspaceID(),
		DisplayName: name,
		CreatedBy:   uid,
		MemberCount: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("workspaces").InsertOne(ctx, ws); err != nil {
		f.t.Fatalf("failed to create test workspace: %v", err)
	}
	return ws
}

// CreateInvite inserts an invite code for a workspace, created at the
// given time so expiry behavior can be exercised.
func (f *Fixtures) CreateInvite(ctx context.Context, code, workspaceID, uid string, createdAt time.Time) models.InviteCode {
	f.t.Helper()

	ic := models.InviteCode{
		ID:          primitive.NewObjectID(),
		Code:        code,
		WorkspaceID: workspaceID,
		CreatedBy:   uid,
		CreatedAt:   createdAt,
	}
	if _, err := f.db.Collection("invite_codes").InsertOne(ctx, ic); err != nil {
		f.t.Fatalf("failed to create test invite: %v", err)
	}
	return ic
}

// CreateContact inserts a contact into a group's collection.
func (f *Fixtures) CreateContact(ctx context.Context, groupID, name, group string) models.Contact {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Contact{
		ID:        primitive.NewObjectID().Hex(),
		Name:      name,
		Group:     group,
		GroupID:   groupID,
		CreatedBy: "fixture",
		CreatedAt: now,
		UpdatedAt: now,
	}
	coll := f.db.Collection(groupid.ContactsCollection(groupID))
	if _, err := coll.InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test contact: %v", err)
	}
	return c
}
