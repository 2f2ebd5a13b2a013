// internal/app/store/workspaces/workspacestore.go
package workspacestore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

// Store provides access to the `workspaces` collection. Documents are
// keyed by the workspace id string (`ws_...`) so `workspaces/<id>`
// addressing from existing data keeps resolving.
type Store struct {
	c *mongo.Collection
}

var ErrNotFound = errors.New("workspace not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("workspaces")}
}

// Create inserts a new workspace document.
func (s *Store) Create(ctx context.Context, ws models.Workspace) (models.Workspace, error) {
	now := time.Now().UTC()
	ws.CreatedAt = now
	ws.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, ws); err != nil {
		return models.Workspace{}, err
	}
	return ws, nil
}

// Get retrieves a workspace by its id.
func (s *Store) Get(ctx context.Context, id string) (models.Workspace, error) {
	var ws models.Workspace
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ws)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Workspace{}, ErrNotFound
		}
		return models.Workspace{}, err
	}
	return ws, nil
}

// UpsertSettings merges the given fields into the workspace document,
// creating it when absent. Creation-on-write keeps settings usable for
// workspaces provisioned before the settings fields existed.
func (s *Store) UpsertSettings(ctx context.Context, id string, set bson.M) error {
	if set == nil {
		set = bson.M{}
	}
	set["updated_at"] = time.Now().UTC()
	_, err := s.c.UpdateByID(ctx, id,
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	return err
}

// IncrementMemberCount adjusts the cached member count by delta.
func (s *Store) IncrementMemberCount(ctx context.Context, id string, delta int) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"member_count": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureIndexes creates indexes for the workspaces collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// Creator lookup for admin checks
		{
			Keys:    bson.D{{Key: "created_by", Value: 1}},
			Options: options.Index().SetName("idx_workspace_created_by"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}
