package contactstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/dalemusser/ledgerhub/internal/app/system/apperr"
	"github.com/dalemusser/ledgerhub/internal/domain/models"
	"github.com/dalemusser/ledgerhub/internal/testutil"
)

func newLocalRepository(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(nil, testutil.SetupLocalStore(t), zap.NewNop())
}

func guestSession(groupID string) Session {
	return Session{
		Identity: models.Identity{UID: "g1", IsAnonymous: true},
		Profile:  models.Profile{UID: "g1", MemberOf: []string{"personal_g1"}, IsLocalProfile: true},
		GroupID:  groupID,
	}
}

func TestLoad_SeedsDemoDataForGuests(t *testing.T) {
	r := newLocalRepository(t)
	s := guestSession("personal_g1")

	list, err := r.Load(context.Background(), s)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 seeded contacts, got %d", len(list))
	}

	// Japanese collation puts 佐藤花子 before 田中太郎.
	if list[0].Name != "佐藤花子" || list[1].Name != "田中太郎" {
		t.Errorf("unexpected order: %q, %q", list[0].Name, list[1].Name)
	}
	if list[0].ID != "demo-personal_g1-2" || list[1].ID != "demo-personal_g1-1" {
		t.Errorf("unexpected ids: %q, %q", list[0].ID, list[1].ID)
	}
	if !strings.Contains(list[1].Memo, "個人用") {
		t.Errorf("personal group memo = %q", list[1].Memo)
	}

	// Second load must not reseed.
	again, err := r.Load(context.Background(), s)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if len(again) != 2 {
		t.Errorf("reseeded: %d contacts", len(again))
	}
}

func TestLoad_WorkspaceMemoVariant(t *testing.T) {
	r := newLocalRepository(t)
	s := guestSession("ws_alpha1b2c3d4e")

	list, err := r.Load(context.Background(), s)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var tanaka models.Contact
	for _, c := range list {
		if c.Name == "田中太郎" {
			tanaka = c
		}
	}
	if !strings.Contains(tanaka.Memo, "ワークスペース共有") {
		t.Errorf("workspace memo = %q", tanaka.Memo)
	}
}

func TestLoad_AuthedFallbackStartsEmpty(t *testing.T) {
	r := newLocalRepository(t) // remote nil forces the local path
	s := Session{
		Identity: models.Identity{UID: "u1"},
		Profile:  models.Profile{UID: "u1", MemberOf: []string{"personal_u1"}},
		GroupID:  "personal_u1",
	}

	list, err := r.Load(context.Background(), s)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("authenticated fallback should be empty, got %+v", list)
	}
}

func TestLoad_RequiresGroup(t *testing.T) {
	r := newLocalRepository(t)
	if _, err := r.Load(context.Background(), guestSession("")); !errors.Is(err, apperr.New(apperr.InvalidInput, "")) {
		t.Errorf("Load(no group) err = %v, want InvalidInput", err)
	}
}

func TestAdd_Local(t *testing.T) {
	r := newLocalRepository(t)
	s := guestSession("personal_g1")
	ctx := context.Background()

	if _, err := r.Load(ctx, s); err != nil {
		t.Fatalf("Load: %v", err)
	}

	c, err := r.Add(ctx, s, ContactInput{Name: "アリス", Group: "営業部", Memo: "新規"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !strings.HasPrefix(c.ID, "demo-personal_g1-") {
		t.Errorf("id = %q", c.ID)
	}
	if c.CreatedBy != "g1" || c.GroupID != "personal_g1" {
		t.Errorf("unexpected contact: %+v", c)
	}

	list, err := r.Load(ctx, s)
	if err != nil {
		t.Fatalf("Load after add: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 contacts, got %d", len(list))
	}
	// Kana sorts before the seeded kanji names.
	if list[0].Name != "アリス" {
		t.Errorf("list[0] = %q, want アリス", list[0].Name)
	}
}

func TestAdd_RejectsEmptyName(t *testing.T) {
	r := newLocalRepository(t)
	s := guestSession("personal_g1")

	if _, err := r.Add(context.Background(), s, ContactInput{Name: "   "}); !errors.Is(err, apperr.New(apperr.InvalidInput, "")) {
		t.Errorf("Add(empty name) err = %v, want InvalidInput", err)
	}
}

func TestUpdate_Local(t *testing.T) {
	r := newLocalRepository(t)
	s := guestSession("personal_g1")
	ctx := context.Background()

	list, err := r.Load(ctx, s)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	target := list[0].ID

	if err := r.Update(ctx, s, target, ContactInput{Name: "改名済み", Group: "総務部", Memo: "更新"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	list, _ = r.Load(ctx, s)
	var got models.Contact
	for _, c := range list {
		if c.ID == target {
			got = c
		}
	}
	if got.Name != "改名済み" || got.Group != "総務部" || got.Memo != "更新" {
		t.Errorf("contact after update: %+v", got)
	}
	if got.UpdatedBy != "g1" {
		t.Errorf("UpdatedBy = %q", got.UpdatedBy)
	}

	if err := r.Update(ctx, s, "no-such-id", ContactInput{Name: "x"}); !errors.Is(err, apperr.New(apperr.NotFound, "")) {
		t.Errorf("Update(missing) err = %v, want NotFound", err)
	}
}

func TestDelete_Local(t *testing.T) {
	r := newLocalRepository(t)
	s := guestSession("personal_g1")
	ctx := context.Background()

	list, err := r.Load(ctx, s)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := r.Delete(ctx, s, list[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	after, _ := r.Load(ctx, s)
	if len(after) != len(list)-1 {
		t.Errorf("expected %d contacts, got %d", len(list)-1, len(after))
	}

	if err := r.Delete(ctx, s, "no-such-id"); !errors.Is(err, apperr.New(apperr.NotFound, "")) {
		t.Errorf("Delete(missing) err = %v, want NotFound", err)
	}
}

func TestOpen_LocalDeliversOneSnapshot(t *testing.T) {
	r := newLocalRepository(t)
	s := guestSession("personal_g1")

	var snaps []Snapshot
	cancel, err := r.Open(context.Background(), s, func(snap Snapshot) {
		snaps = append(snaps, snap)
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cancel()

	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	if snaps[0].State != LocalFallback {
		t.Errorf("State = %v, want LocalFallback", snaps[0].State)
	}
	if len(snaps[0].Contacts) != 2 {
		t.Errorf("expected seeded contacts, got %d", len(snaps[0].Contacts))
	}
}

// fakeRemote stands in for the remote store so denied and degraded
// sessions can be exercised without a database.
type fakeRemote struct {
	calls   int
	list    []models.Contact
	listErr error
	onEvent func()
	onError func(error)
}

func (f *fakeRemote) List(ctx context.Context, groupID string) ([]models.Contact, error) {
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.list, nil
}

func (f *fakeRemote) Insert(ctx context.Context, groupID string, c models.Contact) (models.Contact, error) {
	f.calls++
	return models.Contact{}, errors.New("unexpected remote write")
}

func (f *fakeRemote) Update(ctx context.Context, groupID, id string, set bson.M) error {
	f.calls++
	return errors.New("unexpected remote write")
}

func (f *fakeRemote) Delete(ctx context.Context, groupID, id string) error {
	f.calls++
	return errors.New("unexpected remote write")
}

func (f *fakeRemote) Watch(ctx context.Context, groupID string, onEvent func(), onError func(error)) error {
	f.onEvent = onEvent
	f.onError = onError
	return nil
}

func newFakeRemoteRepository(t *testing.T) (*Repository, *fakeRemote) {
	t.Helper()
	fr := &fakeRemote{}
	r := NewRepository(nil, testutil.SetupLocalStore(t), zap.NewNop())
	r.remote = fr
	return r, fr
}

// nonMemberSession is authenticated and remote-backed but not a member
// of the group it targets.
func nonMemberSession(groupID string) Session {
	return Session{
		Identity: models.Identity{UID: "u1"},
		Profile:  models.Profile{UID: "u1", MemberOf: []string{"personal_u1"}},
		GroupID:  groupID,
	}
}

func TestOpen_DeniedNeverSubscribes(t *testing.T) {
	r, fr := newFakeRemoteRepository(t)
	s := nonMemberSession("ws_private1b2c3")

	var snaps []Snapshot
	cancel, err := r.Open(context.Background(), s, func(snap Snapshot) {
		snaps = append(snaps, snap)
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cancel()

	if len(snaps) != 1 || snaps[0].State != Denied {
		t.Fatalf("snapshots = %+v, want a single Denied", snaps)
	}
	if len(snaps[0].Contacts) != 0 {
		t.Errorf("denied snapshot carries contacts: %+v", snaps[0].Contacts)
	}
	if fr.calls != 0 || fr.onEvent != nil {
		t.Errorf("remote store was touched: %d calls, subscribed=%v", fr.calls, fr.onEvent != nil)
	}
}

func TestWrites_ForbiddenWithoutMembership(t *testing.T) {
	r, fr := newFakeRemoteRepository(t)
	s := nonMemberSession("ws_private1b2c3")
	ctx := context.Background()

	if _, err := r.Load(ctx, s); !errors.Is(err, apperr.New(apperr.Forbidden, "")) {
		t.Errorf("Load err = %v, want Forbidden", err)
	}
	if _, err := r.Add(ctx, s, ContactInput{Name: "x"}); !errors.Is(err, apperr.New(apperr.Forbidden, "")) {
		t.Errorf("Add err = %v, want Forbidden", err)
	}
	if err := r.Update(ctx, s, "c1", ContactInput{Name: "x"}); !errors.Is(err, apperr.New(apperr.Forbidden, "")) {
		t.Errorf("Update err = %v, want Forbidden", err)
	}
	if err := r.Delete(ctx, s, "c1"); !errors.Is(err, apperr.New(apperr.Forbidden, "")) {
		t.Errorf("Delete err = %v, want Forbidden", err)
	}
	if fr.calls != 0 {
		t.Errorf("remote store was touched: %d calls", fr.calls)
	}
}

func TestOpen_FallbackIsTerminal(t *testing.T) {
	r, fr := newFakeRemoteRepository(t)
	fr.listErr = errors.New("connection reset")
	s := Session{
		Identity: models.Identity{UID: "u1"},
		Profile:  models.Profile{UID: "u1", MemberOf: []string{"personal_u1", "ws_alpha1b2c3d4"}},
		GroupID:  "ws_alpha1b2c3d4",
	}

	var snaps []Snapshot
	cancel, err := r.Open(context.Background(), s, func(snap Snapshot) {
		snaps = append(snaps, snap)
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cancel()

	// The initial read fails, so the session lands in local fallback.
	if len(snaps) != 2 || snaps[0].State != Loading || snaps[1].State != LocalFallback {
		t.Fatalf("snapshots = %+v, want Loading then LocalFallback", snaps)
	}

	// A stream event after degrading must not flip the session back to
	// live, even if the remote store has recovered.
	fr.listErr = nil
	fr.list = []models.Contact{{ID: "c1", Name: "田中太郎"}}
	fr.onEvent()
	if len(snaps) != 2 {
		t.Fatalf("snapshots after late event = %+v", snaps)
	}

	// A late stream error must not emit a second fallback snapshot.
	fr.onError(errors.New("stream closed"))
	if len(snaps) != 2 {
		t.Errorf("snapshots after late error = %+v", snaps)
	}
}

func TestIsLocalMode(t *testing.T) {
	r := newLocalRepository(t)
	if !r.IsLocalMode(guestSession("personal_g1")) {
		t.Error("guest session should be local")
	}

	authed := Session{
		Identity: models.Identity{UID: "u1"},
		Profile:  models.Profile{UID: "u1", MemberOf: []string{"personal_u1"}},
		GroupID:  "personal_u1",
	}
	// Remote store is nil here, so even authenticated sessions are local.
	if !r.IsLocalMode(authed) {
		t.Error("session without a remote store should be local")
	}
}

func TestUniqueGroups(t *testing.T) {
	contacts := []models.Contact{
		{Name: "a", Group: "営業部"},
		{Name: "b", Group: "開発部"},
		{Name: "c", Group: "営業部"},
		{Name: "d", Group: ""},
	}
	got := UniqueGroups(contacts)
	want := []string{"", "営業部", "開発部"}
	if len(got) != len(want) {
		t.Fatalf("UniqueGroups = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("UniqueGroups = %v, want %v", got, want)
		}
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Loading, "loading"},
		{Live, "live"},
		{LocalFallback, "local"},
		{Denied, "denied"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
