// internal/app/store/contacts/contactstore.go
package contactstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dalemusser/ledgerhub/internal/app/system/groupid"
	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

// Store provides access to one group's remote contact collection. Each
// group's contacts live in their own collection named
// `groups/<groupId>/contacts`; the slash is part of the collection name
// so existing data paths keep resolving.
type Store struct {
	db *mongo.Database
}

var ErrNotFound = errors.New("contact not found")

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) collection(groupID string) *mongo.Collection {
	return s.db.Collection(groupid.ContactsCollection(groupID))
}

// List returns all contacts for groupID in store order. Callers sort
// for display; the store imposes no ordering.
func (s *Store) List(ctx context.Context, groupID string) ([]models.Contact, error) {
	cur, err := s.collection(groupID).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Contact
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert adds a contact and returns it with its generated id and
// timestamps filled in. Ids are hex object-id strings so they stay
// interchangeable with locally generated ids.
func (s *Store) Insert(ctx context.Context, groupID string, c models.Contact) (models.Contact, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID().Hex()
	c.GroupID = groupID
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := s.collection(groupID).InsertOne(ctx, c); err != nil {
		return models.Contact{}, err
	}
	return c, nil
}

// Update merges the given fields into a contact and bumps updated_at.
func (s *Store) Update(ctx context.Context, groupID, id string, set bson.M) error {
	if set == nil {
		set = bson.M{}
	}
	set["updated_at"] = time.Now().UTC()
	res, err := s.collection(groupID).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a contact.
func (s *Store) Delete(ctx context.Context, groupID, id string) error {
	res, err := s.collection(groupID).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Watch invokes onEvent after every change to the group's collection
// until ctx is cancelled. Events carry no payload: subscribers re-read
// the full list, which keeps ordering and filtering in one place.
func (s *Store) Watch(ctx context.Context, groupID string, onEvent func(), onError func(error)) error {
	stream, err := s.collection(groupID).Watch(ctx, mongo.Pipeline{},
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return err
	}
	go func() {
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			onEvent()
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			onError(err)
		}
	}()
	return nil
}
