// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, log level, CORS); everything that
// is specific to the catalog lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI          string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase     string // Database name within MongoDB
	MongoMaxPoolSize  uint64
	MongoMinPoolSize  uint64
	MongoTransactions bool // try multi-document transactions for renames

	// Bearer token verification
	JWTSecret string
	JWTIssuer string // blank accepts any issuer

	// Group-list cache
	GroupCacheTTL        time.Duration
	GroupCacheMaxEntries int
	CacheBackend         string // "memory" or "redis"

	// Redis (only used when CacheBackend is "redis")
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// History destination: all, db, log, off
	HistoryLog string

	// How often the orphan reconciler scans; 0 disables it.
	ReconcileInterval time.Duration
}
