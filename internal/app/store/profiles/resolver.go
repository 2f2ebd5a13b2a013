// internal/app/store/profiles/resolver.go
package profilestore

import (
	"context"
	"errors"
	"strings"
	"sync"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/dalemusser/ledgerhub/internal/app/localstore"
	"github.com/dalemusser/ledgerhub/internal/app/system/apperr"
	"github.com/dalemusser/ledgerhub/internal/app/system/groupid"
	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

// DefaultDisplayName is used when neither the identity nor its email
// yields a usable name.
const DefaultDisplayName = "ユーザー"

// Resolver is the profile component. It owns the get-or-create flow and
// routes every mutation to either the remote store or the local
// fallback. Guests and local profiles always stay local; authenticated
// users go remote unless the remote store is unavailable, in which case
// reads degrade transparently to a local profile and the degradation is
// logged, not surfaced.
type Resolver struct {
	remote *Store // nil when no remote database is configured
	local  *localstore.Store
	log    *zap.Logger

	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func(models.Profile)
}

func NewResolver(remote *Store, local *localstore.Store, log *zap.Logger) *Resolver {
	return &Resolver{
		remote: remote,
		local:  local,
		log:    log,
		subs:   make(map[string]map[int]func(models.Profile)),
	}
}

// ProfileUpdate carries the mutable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	DisplayName *string
}

// Resolve returns the profile for identity, creating one on first
// sight. Anonymous identities never touch the remote store. For
// authenticated identities a remote read failure (other than a
// malformed document) falls back to a local profile so the caller can
// keep working offline.
func (r *Resolver) Resolve(ctx context.Context, id models.Identity) (models.Profile, error) {
	if id.IsAnonymous || r.remote == nil {
		return r.resolveLocal(id)
	}

	p, err := r.remote.Get(ctx, id.UID)
	if err == nil {
		return p, nil
	}
	if errors.Is(err, ErrBadDocument) {
		return models.Profile{}, apperr.Wrap(apperr.Unknown, "stored profile is malformed", err)
	}
	if errors.Is(err, ErrNotFound) {
		created, cerr := r.remote.Create(ctx, r.defaultProfile(id))
		if cerr == nil {
			return created, nil
		}
		if wafflemongo.IsDup(cerr) {
			// Lost a first-sight race; the winner's document stands.
			return r.remote.Get(ctx, id.UID)
		}
		r.log.Warn("profile create failed, using local profile",
			zap.String("uid", id.UID), zap.Error(cerr))
		return r.resolveLocal(id)
	}

	r.log.Warn("profile read failed, using local profile",
		zap.String("uid", id.UID), zap.Error(err))
	return r.resolveLocal(id)
}

func (r *Resolver) resolveLocal(id models.Identity) (models.Profile, error) {
	p, ok, err := r.local.LoadProfile(id.UID)
	if err != nil {
		return models.Profile{}, err
	}
	if ok {
		p.IsLocalProfile = true
		return p, nil
	}
	p = r.defaultProfile(id)
	p.IsLocalProfile = true
	if err := r.local.SaveProfile(p); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

// defaultProfile builds a first-run profile: the display name falls
// back from the identity's name to the email local-part to
// DefaultDisplayName, and the membership set starts with the personal
// group.
func (r *Resolver) defaultProfile(id models.Identity) models.Profile {
	name := id.DisplayName
	if name == "" && id.Email != "" {
		name = strings.SplitN(id.Email, "@", 2)[0]
	}
	if name == "" {
		name = DefaultDisplayName
	}
	return models.Profile{
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: name,
		MemberOf:    []string{groupid.Personal(id.UID)},
		IsAnonymous: id.IsAnonymous,
	}
}

// JoinGroup adds groupID to the profile's membership set and returns
// the updated profile. Joining an already-joined group is a no-op.
func (r *Resolver) JoinGroup(ctx context.Context, id models.Identity, p models.Profile, groupID string) (models.Profile, error) {
	if groupID == "" {
		return p, apperr.New(apperr.InvalidInput, "group id is required")
	}
	if r.isLocal(id, p) {
		if !p.IsMemberOf(groupID) {
			p.MemberOf = append(p.MemberOf, groupID)
			if err := r.local.SaveProfile(p); err != nil {
				return p, err
			}
			r.notify(p)
		}
		return p, nil
	}
	if err := r.remote.JoinGroup(ctx, id.UID, groupID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return p, apperr.Wrap(apperr.NotFound, "profile not found", err)
		}
		return p, apperr.Wrap(apperr.Unknown, "could not join group", err)
	}
	return r.remote.Get(ctx, id.UID)
}

// LeaveGroup removes groupID from the membership set. Removal is
// idempotent: leaving a group the profile is not in returns the profile
// unchanged. Leaving the last remaining group is refused so the profile
// never ends up groupless.
func (r *Resolver) LeaveGroup(ctx context.Context, id models.Identity, p models.Profile, groupID string) (models.Profile, error) {
	if groupID == "" {
		return p, apperr.New(apperr.InvalidInput, "group id is required")
	}
	if r.isLocal(id, p) {
		if !p.IsMemberOf(groupID) {
			return p, nil
		}
		if len(p.MemberOf) <= 1 {
			return p, apperr.New(apperr.InvalidState, "cannot leave the last remaining group")
		}
		kept := p.MemberOf[:0:0]
		for _, g := range p.MemberOf {
			if g != groupID {
				kept = append(kept, g)
			}
		}
		p.MemberOf = kept
		if err := r.local.SaveProfile(p); err != nil {
			return p, err
		}
		r.notify(p)
		return p, nil
	}
	if err := r.remote.LeaveGroup(ctx, id.UID, groupID); err != nil {
		switch {
		case errors.Is(err, ErrLastGroup):
			return p, apperr.Wrap(apperr.InvalidState, "cannot leave the last remaining group", err)
		case errors.Is(err, ErrNotFound):
			return p, apperr.Wrap(apperr.NotFound, "profile not found", err)
		default:
			return p, apperr.Wrap(apperr.Unknown, "could not leave group", err)
		}
	}
	return r.remote.Get(ctx, id.UID)
}

// UpdateProfile applies upd to the profile and returns the result.
func (r *Resolver) UpdateProfile(ctx context.Context, id models.Identity, p models.Profile, upd ProfileUpdate) (models.Profile, error) {
	if upd.DisplayName != nil && strings.TrimSpace(*upd.DisplayName) == "" {
		return p, apperr.New(apperr.InvalidInput, "display name cannot be empty")
	}
	if r.isLocal(id, p) {
		if upd.DisplayName != nil {
			p.DisplayName = *upd.DisplayName
		}
		if err := r.local.SaveProfile(p); err != nil {
			return p, err
		}
		r.notify(p)
		return p, nil
	}
	set := bson.M{}
	if upd.DisplayName != nil {
		set["display_name"] = *upd.DisplayName
	}
	if len(set) == 0 {
		return p, nil
	}
	if err := r.remote.UpdateFields(ctx, id.UID, set); err != nil {
		if errors.Is(err, ErrNotFound) {
			return p, apperr.Wrap(apperr.NotFound, "profile not found", err)
		}
		return p, apperr.Wrap(apperr.Unknown, "could not update profile", err)
	}
	return r.remote.Get(ctx, id.UID)
}

// Subscribe registers onNext for profile changes. For remote profiles
// this rides the change stream; for local profiles notifications fire
// after each mutation made through this resolver. The returned cancel
// must be called to release the subscription.
func (r *Resolver) Subscribe(ctx context.Context, id models.Identity, p models.Profile, onNext func(models.Profile), onError func(error)) (cancel func(), err error) {
	if r.isLocal(id, p) {
		r.mu.Lock()
		r.nextID++
		sub := r.nextID
		if r.subs[id.UID] == nil {
			r.subs[id.UID] = make(map[int]func(models.Profile))
		}
		r.subs[id.UID][sub] = onNext
		r.mu.Unlock()
		onNext(p)
		return func() {
			r.mu.Lock()
			delete(r.subs[id.UID], sub)
			r.mu.Unlock()
		}, nil
	}
	wctx, stop := context.WithCancel(ctx)
	if err := r.remote.Watch(wctx, id.UID, onNext, onError); err != nil {
		stop()
		return nil, err
	}
	return stop, nil
}

func (r *Resolver) notify(p models.Profile) {
	r.mu.Lock()
	fns := make([]func(models.Profile), 0, len(r.subs[p.UID]))
	for _, fn := range r.subs[p.UID] {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(p)
	}
}

func (r *Resolver) isLocal(id models.Identity, p models.Profile) bool {
	return id.IsAnonymous || p.IsLocalProfile || r.remote == nil
}
