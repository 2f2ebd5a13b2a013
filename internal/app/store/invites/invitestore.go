// internal/app/store/invites/invitestore.go
package invitestore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

// Store provides access to the `invite_codes` collection. Codes are not
// unique across time: only the freshest match for a code is consulted,
// and expiry is checked lazily at redemption rather than by deletion.
type Store struct {
	c *mongo.Collection
}

var ErrNotFound = errors.New("invite code not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invite_codes")}
}

// Create inserts a new invite code document.
func (s *Store) Create(ctx context.Context, ic models.InviteCode) (models.InviteCode, error) {
	ic.ID = primitive.NewObjectID()
	ic.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, ic); err != nil {
		return models.InviteCode{}, err
	}
	return ic, nil
}

// GetByCode retrieves the most recently created invite matching code.
func (s *Store) GetByCode(ctx context.Context, code string) (models.InviteCode, error) {
	var ic models.InviteCode
	err := s.c.FindOne(ctx,
		bson.M{"code": code},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&ic)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.InviteCode{}, ErrNotFound
		}
		return models.InviteCode{}, err
	}
	return ic, nil
}

// IncrementUsed records one redemption. Codes are reusable, so this is
// bookkeeping rather than consumption.
func (s *Store) IncrementUsed(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"used_count": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureIndexes creates indexes for the invite_codes collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_invite_code_created"),
		},
		{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}},
			Options: options.Index().SetName("idx_invite_workspace"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}
