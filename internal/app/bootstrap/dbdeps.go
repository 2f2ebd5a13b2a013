// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dalemusser/ledgerhub/internal/app/localstore"
)

// DBDeps holds database/back-end dependencies for the app.
//
// MongoClient and MongoDatabase are nil when the remote database was
// unreachable at startup; the app then serves every session from Local.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Local         *localstore.Store
}
