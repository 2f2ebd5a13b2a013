// Package identity tracks who the current session is and which group
// it is looking at. A Resolver subscribes to a Provider's identity
// stream and publishes ready-state snapshots; the selected group
// defaults to the identity's personal group and survives identity
// refreshes that keep the same uid.
package identity

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dalemusser/ledgerhub/internal/app/system/groupid"
	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

// Provider is the source of identity changes. Subscribe must deliver
// the current identity (or nil when signed out) immediately and then
// every change until cancel is called.
type Provider interface {
	Subscribe(onChange func(*models.Identity)) (cancel func(), err error)
	SignOut(ctx context.Context) error
}

// StaticProvider serves one fixed identity. Per-request and streaming
// sessions use it: the identity was already resolved from the session
// cookie and cannot change for the lifetime of the subscriber.
type StaticProvider struct {
	ID *models.Identity
}

func (p *StaticProvider) Subscribe(onChange func(*models.Identity)) (func(), error) {
	onChange(p.ID)
	return func() {}, nil
}

func (p *StaticProvider) SignOut(context.Context) error { return nil }

// State is one snapshot of the resolver. Ready becomes true after the
// first provider delivery, or immediately with Err set when the
// provider cannot start; it never goes back to false.
type State struct {
	Ready    bool
	Err      error
	Identity *models.Identity
	GroupID  string
}

// Resolver owns the identity/group state machine.
type Resolver struct {
	provider Provider
	log      *zap.Logger

	mu     sync.Mutex
	state  State
	nextID int
	subs   map[int]func(State)
	stop   func()
}

func NewResolver(p Provider, log *zap.Logger) *Resolver {
	return &Resolver{
		provider: p,
		log:      log,
		subs:     make(map[int]func(State)),
	}
}

// Start begins consuming the provider stream. A provider that cannot
// start still leaves the resolver Ready, with the error recorded, so
// callers waiting on readiness are never stuck.
func (r *Resolver) Start() {
	stop, err := r.provider.Subscribe(r.onIdentity)
	if err != nil {
		r.log.Error("identity provider failed to start", zap.Error(err))
		r.mu.Lock()
		r.state.Ready = true
		r.state.Err = err
		snap := r.state
		fns := r.subscribers()
		r.mu.Unlock()
		for _, fn := range fns {
			fn(snap)
		}
		return
	}
	r.mu.Lock()
	r.stop = stop
	r.mu.Unlock()
}

// Stop cancels the provider subscription.
func (r *Resolver) Stop() {
	r.mu.Lock()
	stop := r.stop
	r.stop = nil
	r.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (r *Resolver) onIdentity(id *models.Identity) {
	r.mu.Lock()
	prev := r.state.Identity
	r.state.Ready = true
	r.state.Identity = id
	switch {
	case id == nil:
		r.state.GroupID = ""
	case prev == nil || prev.UID != id.UID:
		r.state.GroupID = groupid.Personal(id.UID)
	}
	snap := r.state
	fns := r.subscribers()
	r.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// Snapshot returns the current state.
func (r *Resolver) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SwitchGroup changes the selected group. It does not validate
// membership; access is decided where data is read.
func (r *Resolver) SwitchGroup(groupID string) {
	r.mu.Lock()
	if r.state.Identity == nil || r.state.GroupID == groupID {
		r.mu.Unlock()
		return
	}
	r.state.GroupID = groupID
	snap := r.state
	fns := r.subscribers()
	r.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// SignOut asks the provider to end the identity. The cleared state
// arrives through the provider stream.
func (r *Resolver) SignOut(ctx context.Context) error {
	return r.provider.SignOut(ctx)
}

// Subscribe registers fn for state snapshots, delivering the current
// one immediately when the resolver is already Ready.
func (r *Resolver) Subscribe(fn func(State)) (cancel func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.subs[id] = fn
	snap := r.state
	ready := r.state.Ready
	r.mu.Unlock()
	if ready {
		fn(snap)
	}
	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// subscribers must be called with mu held.
func (r *Resolver) subscribers() []func(State) {
	fns := make([]func(State), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	return fns
}
