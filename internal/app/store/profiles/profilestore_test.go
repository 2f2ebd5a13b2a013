package profilestore

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/dalemusser/ledgerhub/internal/domain/models"
	"github.com/dalemusser/ledgerhub/internal/testutil"
)

func TestStore_GetMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := New(db).Get(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	in := models.Profile{
		UID:         "u1",
		Email:       "u1@test.example",
		DisplayName: "山田",
		MemberOf:    []string{"personal_u1"},
	}
	created, err := s.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("timestamps not set on create")
	}

	got, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.DisplayName != "山田" || !got.IsMemberOf("personal_u1") {
		t.Errorf("unexpected profile: %+v", got)
	}
	if got.IsLocalProfile {
		t.Error("remote profile flagged as local")
	}
}

func TestStore_JoinGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	f := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	f.CreateProfile(ctx, "u1")

	if err := s.JoinGroup(ctx, "u1", "ws_alpha"); err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}
	// Idempotent: the set add must not duplicate.
	if err := s.JoinGroup(ctx, "u1", "ws_alpha"); err != nil {
		t.Fatalf("second JoinGroup: %v", err)
	}
	p, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(p.MemberOf) != 2 || !p.IsMemberOf("ws_alpha") {
		t.Errorf("MemberOf = %v", p.MemberOf)
	}

	if err := s.JoinGroup(ctx, "nobody", "ws_alpha"); !errors.Is(err, ErrNotFound) {
		t.Errorf("JoinGroup(missing profile) err = %v, want ErrNotFound", err)
	}
}

func TestStore_LeaveGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	f := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	f.CreateProfile(ctx, "u1", "ws_alpha")

	if err := s.LeaveGroup(ctx, "u1", "ws_alpha"); err != nil {
		t.Fatalf("LeaveGroup: %v", err)
	}
	p, _ := s.Get(ctx, "u1")
	if p.IsMemberOf("ws_alpha") {
		t.Errorf("still a member: %v", p.MemberOf)
	}

	// The membership set must never end up empty.
	if err := s.LeaveGroup(ctx, "u1", "personal_u1"); !errors.Is(err, ErrLastGroup) {
		t.Errorf("leaving last group err = %v, want ErrLastGroup", err)
	}
	p, _ = s.Get(ctx, "u1")
	if !p.IsMemberOf("personal_u1") {
		t.Errorf("last group was removed: %v", p.MemberOf)
	}

	if err := s.LeaveGroup(ctx, "nobody", "ws_alpha"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LeaveGroup(missing profile) err = %v, want ErrNotFound", err)
	}
}

func TestStore_UpdateFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	f := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	f.CreateProfile(ctx, "u1")

	if err := s.UpdateFields(ctx, "u1", bson.M{"display_name": "改名"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	p, _ := s.Get(ctx, "u1")
	if p.DisplayName != "改名" {
		t.Errorf("DisplayName = %q", p.DisplayName)
	}

	if err := s.UpdateFields(ctx, "nobody", bson.M{"display_name": "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateFields(missing) err = %v, want ErrNotFound", err)
	}
}

func TestStore_GetRejectsMalformedDocument(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// A document without the membership array is corrupt, not absent.
	if _, err := db.Collection("users").InsertOne(ctx, bson.M{
		"_id":          "broken",
		"display_name": "x",
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := s.Get(ctx, "broken"); !errors.Is(err, ErrBadDocument) {
		t.Errorf("Get(malformed) err = %v, want ErrBadDocument", err)
	}
}
