// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/dalemusser/ledgerhub/internal/app/localstore"
	invitestore "github.com/dalemusser/ledgerhub/internal/app/store/invites"
	workspacestore "github.com/dalemusser/ledgerhub/internal/app/store/workspaces"
	"github.com/dalemusser/ledgerhub/internal/app/system/timeouts"
)

// ConnectDB opens the local store and connects to MongoDB.
//
// The local store is required: without it guests have nowhere to keep
// data, so failure aborts startup. MongoDB is not: an unreachable
// database logs a warning and leaves the Mongo deps nil, and the app
// runs in local-only mode until the next restart.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	local, err := localstore.Open(appCfg.LocalStorePath, logger)
	if err != nil {
		return DBDeps{}, err
	}
	deps := DBDeps{Local: local}

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	connectCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err == nil {
		pingCtx, cancelPing := context.WithTimeout(ctx, timeouts.Ping())
		defer cancelPing()
		err = client.Ping(pingCtx, readpref.Primary())
	}
	if err != nil {
		logger.Warn("MongoDB unavailable, running in local-only mode",
			zap.String("uri", appCfg.MongoURI), zap.Error(err))
		return deps, nil
	}

	deps.MongoClient = client
	deps.MongoDatabase = client.Database(appCfg.MongoDatabase)
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase))
	return deps, nil
}

// EnsureSchema creates the indexes the stores rely on. Skipped in
// local-only mode.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	if err := workspacestore.New(deps.MongoDatabase).EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := invitestore.New(deps.MongoDatabase).EnsureIndexes(ctx); err != nil {
		return err
	}
	return nil
}
