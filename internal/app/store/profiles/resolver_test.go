package profilestore

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/dalemusser/ledgerhub/internal/app/system/apperr"
	"github.com/dalemusser/ledgerhub/internal/domain/models"
	"github.com/dalemusser/ledgerhub/internal/testutil"
)

func newLocalResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolver(nil, testutil.SetupLocalStore(t), zap.NewNop())
}

func TestResolve_DefaultDisplayName(t *testing.T) {
	tests := []struct {
		name string
		id   models.Identity
		want string
	}{
		{"display name wins", models.Identity{UID: "u1", DisplayName: "山田", Email: "yamada@example.com"}, "山田"},
		{"email local part", models.Identity{UID: "u2", Email: "yamada@example.com"}, "yamada"},
		{"fallback", models.Identity{UID: "u3"}, DefaultDisplayName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newLocalResolver(t)
			p, err := r.Resolve(context.Background(), tt.id)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if p.DisplayName != tt.want {
				t.Errorf("DisplayName = %q, want %q", p.DisplayName, tt.want)
			}
			if !p.IsLocalProfile {
				t.Error("expected a local profile")
			}
			if !p.IsMemberOf("personal_" + tt.id.UID) {
				t.Errorf("expected membership of personal group, got %v", p.MemberOf)
			}
		})
	}
}

func TestResolve_IsStable(t *testing.T) {
	r := newLocalResolver(t)
	id := models.Identity{UID: "g1", IsAnonymous: true}

	first, err := r.Resolve(context.Background(), id)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	second, err := r.Resolve(context.Background(), id)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if second.DisplayName != first.DisplayName || len(second.MemberOf) != len(first.MemberOf) {
		t.Errorf("resolve not stable: %+v vs %+v", first, second)
	}
}

func TestJoinGroup_Local(t *testing.T) {
	r := newLocalResolver(t)
	id := models.Identity{UID: "g1", IsAnonymous: true}
	ctx := context.Background()

	p, err := r.Resolve(ctx, id)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	p, err = r.JoinGroup(ctx, id, p, "ws_alpha")
	if err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}
	if !p.IsMemberOf("ws_alpha") {
		t.Fatalf("membership missing after join: %v", p.MemberOf)
	}

	// Joining again must not duplicate.
	p, err = r.JoinGroup(ctx, id, p, "ws_alpha")
	if err != nil {
		t.Fatalf("second JoinGroup: %v", err)
	}
	if len(p.MemberOf) != 2 {
		t.Errorf("MemberOf = %v, want 2 entries", p.MemberOf)
	}

	// Persisted, not just in memory.
	again, err := r.Resolve(ctx, id)
	if err != nil {
		t.Fatalf("Resolve after join: %v", err)
	}
	if !again.IsMemberOf("ws_alpha") {
		t.Errorf("join not persisted: %v", again.MemberOf)
	}

	if _, err := r.JoinGroup(ctx, id, p, ""); !errors.Is(err, apperr.New(apperr.InvalidInput, "")) {
		t.Errorf("JoinGroup(empty) err = %v, want InvalidInput", err)
	}
}

func TestLeaveGroup_Local(t *testing.T) {
	r := newLocalResolver(t)
	id := models.Identity{UID: "g1", IsAnonymous: true}
	ctx := context.Background()

	p, _ := r.Resolve(ctx, id)
	p, err := r.JoinGroup(ctx, id, p, "ws_alpha")
	if err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}

	p, err = r.LeaveGroup(ctx, id, p, "ws_alpha")
	if err != nil {
		t.Fatalf("LeaveGroup: %v", err)
	}
	if p.IsMemberOf("ws_alpha") {
		t.Errorf("still a member after leave: %v", p.MemberOf)
	}

	// Leaving again, or leaving a group that was never joined, is a
	// no-op that returns the profile unchanged.
	again, err := r.LeaveGroup(ctx, id, p, "ws_alpha")
	if err != nil {
		t.Fatalf("second LeaveGroup: %v", err)
	}
	if len(again.MemberOf) != len(p.MemberOf) {
		t.Errorf("MemberOf changed on repeat leave: %v", again.MemberOf)
	}
	if _, err := r.LeaveGroup(ctx, id, p, "ws_never_joined"); err != nil {
		t.Errorf("leaving unjoined group err = %v, want nil", err)
	}

	// The last remaining group cannot be left.
	if _, err := r.LeaveGroup(ctx, id, p, "personal_g1"); !errors.Is(err, apperr.New(apperr.InvalidState, "")) {
		t.Errorf("leaving last group err = %v, want InvalidState", err)
	}
}

func TestUpdateProfile_Local(t *testing.T) {
	r := newLocalResolver(t)
	id := models.Identity{UID: "g1", IsAnonymous: true}
	ctx := context.Background()

	p, _ := r.Resolve(ctx, id)

	name := "新しい名前"
	p, err := r.UpdateProfile(ctx, id, p, ProfileUpdate{DisplayName: &name})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if p.DisplayName != name {
		t.Errorf("DisplayName = %q, want %q", p.DisplayName, name)
	}

	blank := "   "
	if _, err := r.UpdateProfile(ctx, id, p, ProfileUpdate{DisplayName: &blank}); !errors.Is(err, apperr.New(apperr.InvalidInput, "")) {
		t.Errorf("blank display name err = %v, want InvalidInput", err)
	}

	again, _ := r.Resolve(ctx, id)
	if again.DisplayName != name {
		t.Errorf("update not persisted: %q", again.DisplayName)
	}
}

func TestSubscribe_LocalNotifiesOnMutation(t *testing.T) {
	r := newLocalResolver(t)
	id := models.Identity{UID: "g1", IsAnonymous: true}
	ctx := context.Background()

	p, _ := r.Resolve(ctx, id)

	var got []models.Profile
	cancel, err := r.Subscribe(ctx, id, p, func(next models.Profile) {
		got = append(got, next)
	}, func(error) {})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	if len(got) != 1 {
		t.Fatalf("expected immediate snapshot, got %d", len(got))
	}

	if _, err := r.JoinGroup(ctx, id, p, "ws_alpha"); err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}
	if len(got) != 2 || !got[1].IsMemberOf("ws_alpha") {
		t.Fatalf("expected notification after join, got %+v", got)
	}

	cancel()
	if _, err := r.JoinGroup(ctx, id, got[1], "ws_beta"); err != nil {
		t.Fatalf("JoinGroup after cancel: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("notified after cancel: %d snapshots", len(got))
	}
}
