// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/redis/go-redis/v9"
	"github.com/techradar/compass/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil unless cache_backend is "redis".
	Redis redis.UniversalClient

	Txn txn.Runner

	// Services is built once the backends are up and shared by Startup,
	// BuildHandler, and Shutdown.
	Services *Services
}
