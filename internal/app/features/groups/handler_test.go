package groups

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	profilestore "github.com/dalemusser/ledgerhub/internal/app/store/profiles"
	"github.com/dalemusser/ledgerhub/internal/app/system/auth"
	"github.com/dalemusser/ledgerhub/internal/app/system/registry"
	"github.com/dalemusser/ledgerhub/internal/testutil"
)

func newOfflineHandler(t *testing.T) *Handler {
	t.Helper()
	if auth.Store == nil {
		if err := auth.InitSessionStore("0123456789abcdef0123456789abcdef", "", false, zap.NewNop()); err != nil {
			t.Fatalf("init session store: %v", err)
		}
	}
	log := zap.NewNop()
	profiles := profilestore.NewResolver(nil, testutil.SetupLocalStore(t), log)
	return NewHandler(profiles, registry.New(nil, nil, profiles, log), log)
}

func TestServeList(t *testing.T) {
	h := newOfflineHandler(t)
	guest := testutil.GuestIdentity()

	rec := httptest.NewRecorder()
	h.ServeList(rec, testutil.WithIdentity(httptest.NewRequest(http.MethodGet, "/groups", nil), guest))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp listResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	personal := "personal_" + guest.UID
	if resp.CurrentGroup != personal {
		t.Errorf("current_group = %q, want %q", resp.CurrentGroup, personal)
	}
	if len(resp.Groups) != 1 || resp.Groups[0] != personal {
		t.Errorf("groups = %v", resp.Groups)
	}
	if len(resp.Workspaces) != 0 {
		t.Errorf("workspaces = %v, want none offline", resp.Workspaces)
	}
}

func TestServeJoin(t *testing.T) {
	h := newOfflineHandler(t)
	guest := testutil.GuestIdentity()

	join := func() listResponse {
		rec := httptest.NewRecorder()
		req := testutil.WithIdentity(httptest.NewRequest(http.MethodPost, "/groups/join", strings.NewReader(`{"group_id":"ws_alpha"}`)), guest)
		h.ServeJoin(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var resp listResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp
	}

	resp := join()
	if len(resp.Groups) != 2 {
		t.Fatalf("groups = %v, want personal + ws_alpha", resp.Groups)
	}
	// Joining again is a no-op.
	if again := join(); len(again.Groups) != 2 {
		t.Errorf("groups after rejoin = %v", again.Groups)
	}

	rec := httptest.NewRecorder()
	req := testutil.WithIdentity(httptest.NewRequest(http.MethodPost, "/groups/join", strings.NewReader(`{}`)), guest)
	h.ServeJoin(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty group_id status = %d, want 400", rec.Code)
	}
}

func TestServeSwitch(t *testing.T) {
	h := newOfflineHandler(t)
	guest := testutil.GuestIdentity()

	rec := httptest.NewRecorder()
	req := testutil.WithIdentity(httptest.NewRequest(http.MethodPost, "/groups/switch", strings.NewReader(`{"group_id":"ws_alpha"}`)), guest)
	h.ServeSwitch(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["current_group"] != "ws_alpha" {
		t.Errorf("current_group = %q", resp["current_group"])
	}

	// The selection rides the session cookie.
	next := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}
	if got := auth.CurrentGroup(next); got != "ws_alpha" {
		t.Errorf("CurrentGroup = %q, want ws_alpha", got)
	}
}

func TestServeSwitch_RequiresGroupID(t *testing.T) {
	h := newOfflineHandler(t)
	guest := testutil.GuestIdentity()

	for _, body := range []string{`{`, `{}`, `{"group_id":""}`} {
		rec := httptest.NewRecorder()
		req := testutil.WithIdentity(httptest.NewRequest(http.MethodPost, "/groups/switch", strings.NewReader(body)), guest)
		h.ServeSwitch(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestServeLeave(t *testing.T) {
	h := newOfflineHandler(t)
	guest := testutil.GuestIdentity()

	// Join a second group first so there is something to leave.
	p, err := h.Profiles.Resolve(context.Background(), guest)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := h.Profiles.JoinGroup(context.Background(), guest, p, "ws_alpha"); err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}

	rec := httptest.NewRecorder()
	req := testutil.WithIdentity(httptest.NewRequest(http.MethodPost, "/groups/leave", strings.NewReader(`{"group_id":"ws_alpha"}`)), guest)
	h.ServeLeave(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp listResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	personal := "personal_" + guest.UID
	if resp.CurrentGroup != personal {
		t.Errorf("current_group = %q, want %q", resp.CurrentGroup, personal)
	}
	for _, g := range resp.Groups {
		if g == "ws_alpha" {
			t.Errorf("still listed as a member: %v", resp.Groups)
		}
	}
}

func TestServeLeave_LastGroupIsRefused(t *testing.T) {
	h := newOfflineHandler(t)
	guest := testutil.GuestIdentity()

	body := strings.NewReader(`{"group_id":"personal_` + guest.UID + `"}`)
	rec := httptest.NewRecorder()
	h.ServeLeave(rec, testutil.WithIdentity(httptest.NewRequest(http.MethodPost, "/groups/leave", body), guest))

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}
