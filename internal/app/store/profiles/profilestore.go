// internal/app/store/profiles/profilestore.go
package profilestore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

// Store provides access to the remote `users` collection. Documents are
// keyed by uid so the `users/<uid>` addressing used by existing data
// keeps resolving.
type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound = errors.New("profile not found")

	// ErrBadDocument marks a stored document whose shape does not
	// match the Profile schema. Callers must surface it rather than
	// fall back: it signals corrupt data, not connectivity trouble.
	ErrBadDocument = errors.New("profile document has unexpected shape")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Get retrieves the profile for uid.
func (s *Store) Get(ctx context.Context, uid string) (models.Profile, error) {
	var raw bson.Raw
	err := s.c.FindOne(ctx, bson.M{"_id": uid}).Decode(&raw)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Profile{}, ErrNotFound
		}
		return models.Profile{}, err
	}
	return decodeProfile(raw)
}

// Create inserts a new profile document keyed by its uid.
func (s *Store) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

// JoinGroup adds groupID to the membership set. $addToSet makes the
// union-add idempotent at the store, so concurrent joins cannot
// duplicate an entry.
func (s *Store) JoinGroup(ctx context.Context, uid, groupID string) error {
	res, err := s.c.UpdateByID(ctx, uid, bson.M{
		"$addToSet": bson.M{"member_of_groups": groupID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// LeaveGroup removes groupID from the membership set. The filter
// requires at least one other membership to remain, which keeps the
// "never empty" invariant enforced at the store rather than trusted to
// callers. ErrLastGroup is returned when the removal would empty the
// set.
func (s *Store) LeaveGroup(ctx context.Context, uid, groupID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":              uid,
			"member_of_groups": bson.M{"$elemMatch": bson.M{"$ne": groupID}},
		},
		bson.M{
			"$pull": bson.M{"member_of_groups": groupID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Either the profile is missing or groupID is its only
		// membership; look again to tell the two apart.
		if err := s.c.FindOne(ctx, bson.M{"_id": uid}).Err(); err == mongo.ErrNoDocuments {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return ErrLastGroup
	}
	return nil
}

// ErrLastGroup means removal would leave the profile with no groups.
var ErrLastGroup = errors.New("cannot leave the last remaining group")

// UpdateFields merges the given fields into the profile and bumps
// updated_at.
func (s *Store) UpdateFields(ctx context.Context, uid string, set bson.M) error {
	if set == nil {
		set = bson.M{}
	}
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateByID(ctx, uid, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Watch delivers the current profile and then every subsequent change
// for uid until ctx is cancelled. The initial snapshot is delivered
// before the stream starts so subscribers never begin empty-handed.
func (s *Store) Watch(ctx context.Context, uid string, onNext func(models.Profile), onError func(error)) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"documentKey._id": uid}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := s.c.Watch(ctx, pipeline, opts)
	if err != nil {
		return err
	}

	if p, err := s.Get(ctx, uid); err == nil {
		onNext(p)
	} else if err != ErrNotFound {
		stream.Close(ctx)
		return err
	}

	go func() {
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			var ev struct {
				FullDocument bson.Raw `bson:"fullDocument"`
			}
			if err := stream.Decode(&ev); err != nil {
				onError(err)
				return
			}
			if len(ev.FullDocument) == 0 {
				continue
			}
			p, err := decodeProfile(ev.FullDocument)
			if err != nil {
				onError(err)
				return
			}
			onNext(p)
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			onError(err)
		}
	}()
	return nil
}

// decodeProfile rejects unknown-shape documents at the store boundary
// instead of passing them through.
func decodeProfile(raw bson.Raw) (models.Profile, error) {
	if _, ok := raw.Lookup("_id").StringValueOK(); !ok {
		return models.Profile{}, ErrBadDocument
	}
	if _, ok := raw.Lookup("member_of_groups").ArrayOK(); !ok {
		return models.Profile{}, ErrBadDocument
	}
	var p models.Profile
	if err := bson.Unmarshal(raw, &p); err != nil {
		return models.Profile{}, ErrBadDocument
	}
	return p, nil
}
