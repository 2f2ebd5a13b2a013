// Package registry is the workspace component: creating shared
// workspaces, issuing and redeeming invite codes, and reading or
// updating workspace settings. Personal groups never appear here; they
// are synthesized from the uid and have no stored document.
package registry

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	invitestore "github.com/dalemusser/ledgerhub/internal/app/store/invites"
	profilestore "github.com/dalemusser/ledgerhub/internal/app/store/profiles"
	workspacestore "github.com/dalemusser/ledgerhub/internal/app/store/workspaces"
	"github.com/dalemusser/ledgerhub/internal/app/system/apperr"
	"github.com/dalemusser/ledgerhub/internal/app/system/groupid"
	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Registry coordinates the workspace, invite, and profile stores.
type Registry struct {
	workspaces *workspacestore.Store
	invites    *invitestore.Store
	profiles   *profilestore.Resolver
	log        *zap.Logger
}

func New(ws *workspacestore.Store, inv *invitestore.Store, profiles *profilestore.Resolver, log *zap.Logger) *Registry {
	return &Registry{workspaces: ws, invites: inv, profiles: profiles, log: log}
}

// Available reports whether workspace operations can be served. They
// all need the remote database; guests and offline sessions work with
// personal groups only.
func (r *Registry) Available() bool {
	return r.workspaces != nil
}

func (r *Registry) guard(id models.Identity) error {
	if id.IsAnonymous {
		return apperr.New(apperr.AuthRequired, "sign in to use shared workspaces")
	}
	if !r.Available() {
		return apperr.New(apperr.Unknown, "workspace service is unavailable")
	}
	return nil
}

// CreateWorkspace provisions a new shared workspace with the caller as
// creator and sole member, and returns the workspace together with the
// caller's updated profile.
func (r *Registry) CreateWorkspace(ctx context.Context, id models.Identity, p models.Profile, name, description string) (models.Workspace, models.Profile, error) {
	if err := r.guard(id); err != nil {
		return models.Workspace{}, p, err
	}
	if name == "" {
		return models.Workspace{}, p, apperr.New(apperr.InvalidInput, "workspace name is required")
	}

	ws := models.Workspace{
		ID:          groupid.NewWorkspaceID(),
		DisplayName: name,
		Description: description,
		CreatedBy:   id.UID,
		MemberCount: 1,
		IsPrivate:   true,
	}
	created, err := r.workspaces.Create(ctx, ws)
	if err != nil {
		return models.Workspace{}, p, apperr.Wrap(apperr.Unknown, "could not create workspace", err)
	}

	updated, err := r.profiles.JoinGroup(ctx, id, p, created.ID)
	if err != nil {
		return created, p, err
	}
	return created, updated, nil
}

// GenerateInviteCode issues a fresh invite code for a workspace the
// caller belongs to. Codes are six digits, valid for seven days, and
// reusable until they expire. Collisions across live codes are resolved
// at redemption by taking the freshest match.
func (r *Registry) GenerateInviteCode(ctx context.Context, id models.Identity, p models.Profile, workspaceID string) (models.InviteCode, error) {
	if err := r.guard(id); err != nil {
		return models.InviteCode{}, err
	}
	if groupid.IsPersonal(workspaceID) {
		return models.InviteCode{}, apperr.New(apperr.InvalidInput, "personal groups cannot be shared")
	}
	if !p.IsMemberOf(workspaceID) {
		return models.InviteCode{}, apperr.Newf(apperr.Forbidden, "not a member of workspace %q", workspaceID)
	}

	ic := models.InviteCode{
		Code:        newCode(),
		WorkspaceID: workspaceID,
		CreatedBy:   id.UID,
	}
	created, err := r.invites.Create(ctx, ic)
	if err != nil {
		return models.InviteCode{}, apperr.Wrap(apperr.Unknown, "could not create invite code", err)
	}
	return created, nil
}

// JoinWorkspaceByCode redeems an invite code: the caller joins the
// workspace it names. Expiry is checked lazily here; expired documents
// are left in place. Redeeming for a workspace the caller already
// belongs to is a no-op that still counts the use.
func (r *Registry) JoinWorkspaceByCode(ctx context.Context, id models.Identity, p models.Profile, code string) (models.Workspace, models.Profile, error) {
	if err := r.guard(id); err != nil {
		return models.Workspace{}, p, err
	}
	if !codePattern.MatchString(code) {
		return models.Workspace{}, p, apperr.New(apperr.InvalidInput, "invite code must be six digits")
	}

	ic, err := r.invites.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, invitestore.ErrNotFound) {
			return models.Workspace{}, p, apperr.New(apperr.InvalidInvite, "invite code not found")
		}
		return models.Workspace{}, p, apperr.Wrap(apperr.Unknown, "could not look up invite code", err)
	}
	if ic.ExpiredAt(time.Now().UTC()) {
		return models.Workspace{}, p, apperr.New(apperr.Expired, "invite code has expired")
	}

	ws, err := r.workspaces.Get(ctx, ic.WorkspaceID)
	if err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			return models.Workspace{}, p, apperr.New(apperr.NotFound, "workspace no longer exists")
		}
		return models.Workspace{}, p, apperr.Wrap(apperr.Unknown, "could not load workspace", err)
	}

	alreadyMember := p.IsMemberOf(ws.ID)
	updated, err := r.profiles.JoinGroup(ctx, id, p, ws.ID)
	if err != nil {
		return ws, p, err
	}
	if !alreadyMember {
		if err := r.workspaces.IncrementMemberCount(ctx, ws.ID, 1); err != nil {
			r.log.Warn("member count update failed",
				zap.String("workspace_id", ws.ID), zap.Error(err))
		}
		ws.MemberCount++
	}
	if err := r.invites.IncrementUsed(ctx, ic.ID); err != nil {
		r.log.Warn("invite use count update failed",
			zap.String("code", ic.Code), zap.Error(err))
	}
	return ws, updated, nil
}

// GetWorkspaceInfo returns the public projection of one workspace.
func (r *Registry) GetWorkspaceInfo(ctx context.Context, workspaceID string) (models.WorkspaceInfo, error) {
	if !r.Available() {
		return models.WorkspaceInfo{}, apperr.New(apperr.Unknown, "workspace service is unavailable")
	}
	if groupid.IsPersonal(workspaceID) {
		return models.WorkspaceInfo{}, apperr.New(apperr.NotFound, "personal groups have no workspace record")
	}
	ws, err := r.workspaces.Get(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			return models.WorkspaceInfo{}, apperr.Newf(apperr.NotFound, "workspace %q not found", workspaceID)
		}
		return models.WorkspaceInfo{}, apperr.Wrap(apperr.Unknown, "could not load workspace", err)
	}
	return ws.Info(), nil
}

// GetWorkspacesInfo resolves the public projections for a membership
// list. Personal groups are skipped, lookups run concurrently, and
// missing or failing workspaces are dropped from the result rather
// than failing the batch.
func (r *Registry) GetWorkspacesInfo(ctx context.Context, groupIDs []string) ([]models.WorkspaceInfo, error) {
	if !r.Available() {
		return nil, nil
	}
	shared := make([]string, 0, len(groupIDs))
	for _, g := range groupIDs {
		if !groupid.IsPersonal(g) {
			shared = append(shared, g)
		}
	}
	results := make([]*models.WorkspaceInfo, len(shared))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, wsID := range shared {
		g.Go(func() error {
			info, err := r.GetWorkspaceInfo(gctx, wsID)
			if err != nil {
				if apperr.KindOf(err) != apperr.NotFound {
					r.log.Warn("workspace info lookup failed",
						zap.String("workspace_id", wsID), zap.Error(err))
				}
				return nil
			}
			results[i] = &info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]models.WorkspaceInfo, 0, len(results))
	for _, info := range results {
		if info != nil {
			out = append(out, *info)
		}
	}
	return out, nil
}

// Settings carries the mutable workspace settings. Nil fields are left
// unchanged.
type Settings struct {
	DisplayName *string
	Description *string
	IsPrivate   *bool
	HasPassword *bool
	Password    *string
}

// UpdateWorkspaceSettings applies settings to a workspace. Only the
// creator may change an existing document; a missing document is
// provisioned on first write with the caller as creator, which covers
// workspaces that predate the settings fields.
//
// The password is stored as entered. Matching the data written by
// earlier deployments requires the stored form to stay comparable with
// plain equality; see VerifyWorkspacePassword.
func (r *Registry) UpdateWorkspaceSettings(ctx context.Context, id models.Identity, workspaceID string, s Settings) error {
	if err := r.guard(id); err != nil {
		return err
	}
	if groupid.IsPersonal(workspaceID) {
		return apperr.New(apperr.InvalidInput, "personal groups have no settings")
	}

	ws, err := r.workspaces.Get(ctx, workspaceID)
	switch {
	case err == nil:
		if !ws.IsAdmin(id.UID) {
			return apperr.New(apperr.Forbidden, "only the workspace creator can change settings")
		}
	case errors.Is(err, workspacestore.ErrNotFound):
		// First write provisions the document below.
	default:
		return apperr.Wrap(apperr.Unknown, "could not load workspace", err)
	}

	set := bson.M{"updated_by": id.UID}
	if errors.Is(err, workspacestore.ErrNotFound) {
		set["created_by"] = id.UID
		set["created_at"] = time.Now().UTC()
	}
	if s.DisplayName != nil {
		set["display_name"] = *s.DisplayName
	}
	if s.Description != nil {
		set["description"] = *s.Description
	}
	if s.IsPrivate != nil {
		set["is_private"] = *s.IsPrivate
	}
	if s.HasPassword != nil {
		set["has_password"] = *s.HasPassword
	}
	if s.Password != nil {
		set["password"] = *s.Password
	}
	if err := r.workspaces.UpsertSettings(ctx, workspaceID, set); err != nil {
		return apperr.Wrap(apperr.Unknown, "could not update workspace settings", err)
	}
	return nil
}

// GetWorkspaceSettings returns the admin-facing settings of a
// workspace. Personal groups and anonymous callers have no settings
// document, so both get nil without error. Reading an existing
// document is creator-gated, like writing it.
func (r *Registry) GetWorkspaceSettings(ctx context.Context, id models.Identity, workspaceID string) (*models.WorkspaceSettings, error) {
	if groupid.IsPersonal(workspaceID) || id.IsAnonymous {
		return nil, nil
	}
	if !r.Available() {
		return nil, apperr.New(apperr.Unknown, "workspace service is unavailable")
	}
	ws, err := r.workspaces.Get(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			return nil, apperr.Newf(apperr.NotFound, "workspace %q not found", workspaceID)
		}
		return nil, apperr.Wrap(apperr.Unknown, "could not load workspace", err)
	}
	if !ws.IsAdmin(id.UID) {
		return nil, apperr.New(apperr.Forbidden, "only the workspace creator can read settings")
	}
	s := ws.Settings()
	return &s, nil
}

// VerifyWorkspacePassword checks an entered password against the
// workspace's stored one. Personal groups, guests, missing documents,
// and workspaces without a password all pass; a read failure fails
// closed.
func (r *Registry) VerifyWorkspacePassword(ctx context.Context, id models.Identity, workspaceID, password string) bool {
	if groupid.IsPersonal(workspaceID) || id.IsAnonymous || !r.Available() {
		return true
	}
	ws, err := r.workspaces.Get(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			return true
		}
		r.log.Warn("workspace password check failed",
			zap.String("workspace_id", workspaceID), zap.Error(err))
		return false
	}
	if !ws.HasPassword {
		return true
	}
	return ws.Password == password
}

// newCode draws a six-digit invite code from [100000, 999999]. The
// space is small, so codes can collide with live ones; redemption
// resolves that by preferring the freshest match.
func newCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		panic("registry: rand.Int: " + err.Error())
	}
	return (n.Add(n, big.NewInt(100000))).String()
}
