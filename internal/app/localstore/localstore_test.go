package localstore

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "local.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSetGetRemove(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.GetItem("missing"); err != nil || ok {
		t.Fatalf("GetItem(missing) = ok=%v err=%v", ok, err)
	}

	if err := s.SetItem("k", "v1"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	if v, ok, _ := s.GetItem("k"); !ok || v != "v1" {
		t.Fatalf("GetItem = %q ok=%v", v, ok)
	}

	// Overwrite
	if err := s.SetItem("k", "v2"); err != nil {
		t.Fatalf("SetItem overwrite: %v", err)
	}
	if v, _, _ := s.GetItem("k"); v != "v2" {
		t.Fatalf("GetItem after overwrite = %q", v)
	}

	if err := s.RemoveItem("k"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if _, ok, _ := s.GetItem("k"); ok {
		t.Fatal("key still present after RemoveItem")
	}

	// Removing again is not an error
	if err := s.RemoveItem("k"); err != nil {
		t.Fatalf("RemoveItem(missing): %v", err)
	}
}

func TestContactsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if list, err := s.LoadContacts("personal_u1"); err != nil || list != nil {
		t.Fatalf("LoadContacts(empty) = %v, %v", list, err)
	}

	in := []models.Contact{
		{ID: "demo-personal_u1-1", Name: "田中太郎", Group: "営業部", GroupID: "personal_u1"},
		{ID: "demo-personal_u1-2", Name: "佐藤花子", Group: "開発部", GroupID: "personal_u1"},
	}
	if err := s.SaveContacts("personal_u1", in); err != nil {
		t.Fatalf("SaveContacts: %v", err)
	}
	out, err := s.LoadContacts("personal_u1")
	if err != nil {
		t.Fatalf("LoadContacts: %v", err)
	}
	if len(out) != 2 || out[0].Name != "田中太郎" || out[1].Group != "開発部" {
		t.Fatalf("unexpected contacts: %+v", out)
	}

	// Lists are keyed per group.
	if list, _ := s.LoadContacts("ws_other"); list != nil {
		t.Fatalf("other group should be empty, got %+v", list)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.LoadProfile("u1"); err != nil || ok {
		t.Fatalf("LoadProfile(empty) = ok=%v err=%v", ok, err)
	}

	in := models.Profile{
		UID:         "u1",
		DisplayName: "ユーザー",
		MemberOf:    []string{"personal_u1", "ws_alpha"},
	}
	if err := s.SaveProfile(in); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	out, ok, err := s.LoadProfile("u1")
	if err != nil || !ok {
		t.Fatalf("LoadProfile = ok=%v err=%v", ok, err)
	}
	if out.DisplayName != "ユーザー" || len(out.MemberOf) != 2 {
		t.Fatalf("unexpected profile: %+v", out)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")

	s, err := Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SetItem("k", "v"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(path, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if v, ok, _ := s2.GetItem("k"); !ok || v != "v" {
		t.Fatalf("value lost across reopen: %q ok=%v", v, ok)
	}
}
