// internal/app/store/contacts/repository.go
package contactstore

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dalemusser/ledgerhub/internal/app/localstore"
	"github.com/dalemusser/ledgerhub/internal/app/policy/accesspolicy"
	"github.com/dalemusser/ledgerhub/internal/app/system/apperr"
	"github.com/dalemusser/ledgerhub/internal/app/system/groupid"
	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

// State describes where a contact session currently gets its data.
type State int

const (
	// Loading means the first read has not completed yet.
	Loading State = iota

	// Live means a remote subscription is delivering updates.
	Live

	// LocalFallback means the session is served from local storage,
	// either by choice (guest, local profile, no remote database) or
	// after a remote failure.
	LocalFallback

	// Denied means the access check failed; the contact list is empty
	// and stays empty.
	Denied
)

func (s State) String() string {
	switch s {
	case Live:
		return "live"
	case LocalFallback:
		return "local"
	case Denied:
		return "denied"
	default:
		return "loading"
	}
}

// Session is the resolved context a repository call operates in.
type Session struct {
	Identity models.Identity
	Profile  models.Profile
	GroupID  string
}

// Snapshot is one emission of a live session: the current state and the
// full sorted contact list.
type Snapshot struct {
	State    State
	Contacts []models.Contact
}

// ContactInput carries the caller-editable contact fields.
type ContactInput struct {
	Name  string
	Group string
	Memo  string
}

// remoteContacts is the slice of the contact store the repository
// uses; *Store satisfies it.
type remoteContacts interface {
	List(ctx context.Context, groupID string) ([]models.Contact, error)
	Insert(ctx context.Context, groupID string, c models.Contact) (models.Contact, error)
	Update(ctx context.Context, groupID, id string, set bson.M) error
	Delete(ctx context.Context, groupID, id string) error
	Watch(ctx context.Context, groupID string, onEvent func(), onError func(error)) error
}

// Repository is the contact component. Reads prefer the remote store
// and degrade to local storage on failure; writes go to whichever side
// the session is in and never retry. All lists are returned sorted by
// name with Japanese collation, matching how existing data was ordered.
type Repository struct {
	remote remoteContacts // nil when no remote database is configured
	local  *localstore.Store
	log    *zap.Logger

	mu  sync.Mutex
	col *collate.Collator
}

func NewRepository(remote *Store, local *localstore.Store, log *zap.Logger) *Repository {
	r := &Repository{
		local: local,
		log:   log,
		col:   collate.New(language.Japanese),
	}
	if remote != nil {
		r.remote = remote
	}
	return r
}

// IsLocalMode reports whether the session is served from local storage
// by construction (before any failure-driven fallback).
func (r *Repository) IsLocalMode(s Session) bool {
	return s.Identity.IsAnonymous || s.Profile.IsLocalProfile || r.remote == nil
}

func (r *Repository) hasAccess(s Session) bool {
	return accesspolicy.HasAccess(&s.Profile, &s.Identity, s.GroupID)
}

// Load performs a one-shot read of the session's contact list.
func (r *Repository) Load(ctx context.Context, s Session) ([]models.Contact, error) {
	if s.GroupID == "" {
		return nil, apperr.New(apperr.InvalidInput, "group id is required")
	}
	if r.IsLocalMode(s) {
		return r.loadLocal(s)
	}
	if !r.hasAccess(s) {
		return nil, apperr.Newf(apperr.Forbidden, "no access to group %q", s.GroupID)
	}
	list, err := r.remote.List(ctx, s.GroupID)
	if err != nil {
		r.log.Warn("contact list failed, falling back to local storage",
			zap.String("group_id", s.GroupID), zap.Error(err))
		return r.loadLocal(s)
	}
	r.sortByName(list)
	return list, nil
}

// Open starts a live session. Snapshots are delivered through onNext:
// first the initial read, then one per change until cancel is called.
// Remote subscription failures degrade the session to local fallback
// rather than ending it; the fallback is terminal for the session, so
// a late stream event never flips it back to live.
func (r *Repository) Open(ctx context.Context, s Session, onNext func(Snapshot)) (cancel func(), err error) {
	if s.GroupID == "" {
		return nil, apperr.New(apperr.InvalidInput, "group id is required")
	}

	wctx, stop := context.WithCancel(ctx)

	if r.IsLocalMode(s) {
		list, lerr := r.loadLocal(s)
		if lerr != nil {
			stop()
			return nil, lerr
		}
		onNext(Snapshot{State: LocalFallback, Contacts: list})
		return stop, nil
	}

	if !r.hasAccess(s) {
		onNext(Snapshot{State: Denied})
		return stop, nil
	}

	onNext(Snapshot{State: Loading})

	var degradeOnce sync.Once
	degrade := func(cause error) {
		degradeOnce.Do(func() {
			stop()
			r.degrade(s, cause, onNext)
		})
	}

	emit := func() {
		if wctx.Err() != nil {
			return
		}
		list, err := r.remote.List(wctx, s.GroupID)
		if err != nil {
			if wctx.Err() != nil {
				return
			}
			degrade(err)
			return
		}
		r.sortByName(list)
		onNext(Snapshot{State: Live, Contacts: list})
	}

	if err := r.remote.Watch(wctx, s.GroupID, emit, degrade); err != nil {
		r.log.Warn("contact subscription failed, falling back to local storage",
			zap.String("group_id", s.GroupID), zap.Error(err))
		list, lerr := r.loadLocal(s)
		if lerr != nil {
			stop()
			return nil, lerr
		}
		onNext(Snapshot{State: LocalFallback, Contacts: list})
		return stop, nil
	}

	emit()
	return stop, nil
}

func (r *Repository) degrade(s Session, cause error, onNext func(Snapshot)) {
	r.log.Warn("contact stream failed, falling back to local storage",
		zap.String("group_id", s.GroupID), zap.Error(cause))
	list, err := r.loadLocal(s)
	if err != nil {
		r.log.Error("local fallback load failed",
			zap.String("group_id", s.GroupID), zap.Error(err))
		list = nil
	}
	onNext(Snapshot{State: LocalFallback, Contacts: list})
}

// Add creates a contact in the session's group.
func (r *Repository) Add(ctx context.Context, s Session, in ContactInput) (models.Contact, error) {
	if err := r.checkWrite(s); err != nil {
		return models.Contact{}, err
	}
	if err := validateInput(in); err != nil {
		return models.Contact{}, err
	}
	if r.IsLocalMode(s) {
		now := time.Now().UTC()
		c := models.Contact{
			ID:        localContactID(s.GroupID),
			Name:      in.Name,
			Group:     in.Group,
			Memo:      in.Memo,
			GroupID:   s.GroupID,
			CreatedBy: s.Identity.UID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		list, err := r.loadLocal(s)
		if err != nil {
			return models.Contact{}, err
		}
		list = append(list, c)
		r.sortByName(list)
		if err := r.local.SaveContacts(s.GroupID, list); err != nil {
			return models.Contact{}, err
		}
		return c, nil
	}
	c := models.Contact{
		Name:      in.Name,
		Group:     in.Group,
		Memo:      in.Memo,
		CreatedBy: s.Identity.UID,
	}
	created, err := r.remote.Insert(ctx, s.GroupID, c)
	if err != nil {
		return models.Contact{}, r.classifyWrite(err, "could not add contact")
	}
	return created, nil
}

// Update merges the input into an existing contact.
func (r *Repository) Update(ctx context.Context, s Session, id string, in ContactInput) error {
	if err := r.checkWrite(s); err != nil {
		return err
	}
	if err := validateInput(in); err != nil {
		return err
	}
	if r.IsLocalMode(s) {
		list, err := r.loadLocal(s)
		if err != nil {
			return err
		}
		found := false
		for i := range list {
			if list[i].ID == id {
				list[i].Name = in.Name
				list[i].Group = in.Group
				list[i].Memo = in.Memo
				list[i].UpdatedBy = s.Identity.UID
				list[i].UpdatedAt = time.Now().UTC()
				found = true
			}
		}
		if !found {
			return apperr.New(apperr.NotFound, "contact not found")
		}
		r.sortByName(list)
		return r.local.SaveContacts(s.GroupID, list)
	}
	set := bson.M{
		"name":       in.Name,
		"group":      in.Group,
		"memo":       in.Memo,
		"group_id":   s.GroupID,
		"updated_by": s.Identity.UID,
	}
	if err := r.remote.Update(ctx, s.GroupID, id, set); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.Wrap(apperr.NotFound, "contact not found", err)
		}
		return r.classifyWrite(err, "could not update contact")
	}
	return nil
}

// Delete removes a contact.
func (r *Repository) Delete(ctx context.Context, s Session, id string) error {
	if err := r.checkWrite(s); err != nil {
		return err
	}
	if r.IsLocalMode(s) {
		list, err := r.loadLocal(s)
		if err != nil {
			return err
		}
		kept := list[:0:0]
		for _, c := range list {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		if len(kept) == len(list) {
			return apperr.New(apperr.NotFound, "contact not found")
		}
		return r.local.SaveContacts(s.GroupID, kept)
	}
	if err := r.remote.Delete(ctx, s.GroupID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.Wrap(apperr.NotFound, "contact not found", err)
		}
		return r.classifyWrite(err, "could not delete contact")
	}
	return nil
}

// UniqueGroups returns the filter labels for a contact list: the
// all-groups sentinel "" first, then the distinct non-empty labels in
// lexicographic order.
func UniqueGroups(contacts []models.Contact) []string {
	seen := make(map[string]struct{})
	for _, c := range contacts {
		if c.Group != "" {
			seen[c.Group] = struct{}{}
		}
	}
	labels := make([]string, 0, len(seen))
	for g := range seen {
		labels = append(labels, g)
	}
	sort.Strings(labels)
	return append([]string{""}, labels...)
}

func (r *Repository) checkWrite(s Session) error {
	if s.GroupID == "" {
		return apperr.New(apperr.InvalidInput, "group id is required")
	}
	if !r.IsLocalMode(s) && !r.hasAccess(s) {
		return apperr.Newf(apperr.Forbidden, "no write access to group %q", s.GroupID)
	}
	return nil
}

func validateInput(in ContactInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.New(apperr.InvalidInput, "name is required")
	}
	return nil
}

// loadLocal reads the local list, seeding demo data on the very first
// read for guests and local profiles. Authenticated sessions that land
// here through a fallback start empty instead.
func (r *Repository) loadLocal(s Session) ([]models.Contact, error) {
	_, ok, err := r.local.GetItem(groupid.LocalContactsKey(s.GroupID))
	if err != nil {
		return nil, err
	}
	if ok {
		list, err := r.local.LoadContacts(s.GroupID)
		if err != nil {
			return nil, err
		}
		r.sortByName(list)
		return list, nil
	}
	if !s.Identity.IsAnonymous && !s.Profile.IsLocalProfile {
		return nil, nil
	}
	seed := demoContacts(s.GroupID, s.Identity.UID)
	if err := r.local.SaveContacts(s.GroupID, seed); err != nil {
		return nil, err
	}
	r.sortByName(seed)
	return seed, nil
}

// demoContacts builds the first-run sample data for a group.
func demoContacts(groupID, uid string) []models.Contact {
	now := time.Now().UTC()
	scope := "ワークスペース共有"
	if strings.Contains(groupID, "personal") {
		scope = "個人用"
	}
	return []models.Contact{
		{
			ID:        "demo-" + groupID + "-1",
			Name:      "田中太郎",
			Group:     "営業部",
			Memo:      scope + "の連絡先です。",
			GroupID:   groupID,
			CreatedBy: uid,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        "demo-" + groupID + "-2",
			Name:      "佐藤花子",
			Group:     "開発部",
			Memo:      "React開発者",
			GroupID:   groupID,
			CreatedBy: uid,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// localContactID mints an id for locally created contacts. Millisecond
// timestamps keep the format of ids written by earlier deployments.
func localContactID(groupID string) string {
	return "demo-" + groupID + "-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func (r *Repository) sortByName(list []models.Contact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.SliceStable(list, func(i, j int) bool {
		return r.col.CompareString(list[i].Name, list[j].Name) < 0
	})
}

// classifyWrite distinguishes remote permission rejections from other
// write failures.
func (r *Repository) classifyWrite(err error, msg string) error {
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 13 || strings.Contains(ce.Message, "not authorized")) {
		return apperr.Wrap(apperr.PermissionDenied, "write access to this group was denied", err)
	}
	if strings.Contains(err.Error(), "not authorized") {
		return apperr.Wrap(apperr.PermissionDenied, "write access to this group was denied", err)
	}
	return apperr.Wrap(apperr.Unknown, msg, err)
}
