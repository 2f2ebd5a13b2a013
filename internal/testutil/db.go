// Package testutil provides shared helpers for integration and handler
// tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const testMongoURI = "mongodb://localhost:27017"

// SetupTestDB connects to the local test MongoDB and returns a fresh
// database for this test, dropped again in cleanup. Tests are skipped
// when no MongoDB is reachable, so the suite stays runnable offline.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(testMongoURI))
	if err == nil {
		err = client.Ping(ctx, readpref.Primary())
	}
	if err != nil {
		t.Skipf("MongoDB not available at %s: %v", testMongoURI, err)
	}

	db := client.Database(fmt.Sprintf("ledgerhub_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

// TestContext returns a context with a generous timeout for test
// operations.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
