// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/techradar/compass/internal/app/system/history"
	"github.com/techradar/compass/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// devJWTSecret is accepted only when WAFFLE runs in dev mode.
const devJWTSecret = "dev-only-change-me-please-0123456789ABCDEF"

// Cache backends for the group list.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// appConfigKeys defines the configuration keys for Compass.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: COMPASS_MONGO_URI, COMPASS_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "compass", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "mongo_transactions", Default: true, Desc: "Use transactions for group renames when the server supports them"},

	// Bearer tokens
	{Name: "jwt_secret", Default: devJWTSecret, Desc: "HS256 secret for bearer tokens (must be strong in production)"},
	{Name: "jwt_issuer", Default: "", Desc: "Required token issuer (blank accepts any)"},

	// Group-list cache
	{Name: "group_cache_ttl", Default: "1h", Desc: "Group list cache TTL (e.g., 1h, 10m)"},
	{Name: "group_cache_max_entries", Default: 256, Desc: "Max cached group-list pages (memory backend)"},
	{Name: "cache_backend", Default: CacheMemory, Desc: "Group list cache: 'memory' or 'redis'"},

	// Redis
	{Name: "redis_addr", Default: "localhost:6379", Desc: "Redis address (cache_backend=redis)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	// History
	{Name: "history_log", Default: history.ModeAll, Desc: "History records: 'all' (db+log), 'db', 'log', or 'off'"},

	// Background work
	{Name: "reconcile_interval", Default: "15m", Desc: "Orphaned group scan interval (0 disables)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// WAFFLE_* / COMPASS_* environment variables and command-line flags, merged
// with precedence flags > env > files > defaults. Per-operation timeouts
// come from COMPASS_TIMEOUT_* and are applied here as well.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "COMPASS", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:          appValues.String("mongo_uri"),
		MongoDatabase:     appValues.String("mongo_database"),
		MongoMaxPoolSize:  uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize:  uint64(appValues.Int("mongo_min_pool_size")),
		MongoTransactions: appValues.Bool("mongo_transactions"),

		JWTSecret: appValues.String("jwt_secret"),
		JWTIssuer: appValues.String("jwt_issuer"),

		GroupCacheTTL:        appValues.Duration("group_cache_ttl", time.Hour),
		GroupCacheMaxEntries: appValues.Int("group_cache_max_entries"),
		CacheBackend:         appValues.String("cache_backend"),

		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		HistoryLog: appValues.String("history_log"),

		ReconcileInterval: appValues.Duration("reconcile_interval", 15*time.Minute),
	}

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n), zap.Any("timeouts", timeouts.Current()))
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// It catches a malformed Mongo URI before connecting, rejects unknown cache
// and history settings, and refuses the built-in JWT secret outside dev.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	switch appCfg.CacheBackend {
	case CacheMemory:
	case CacheRedis:
		if appCfg.RedisAddr == "" {
			return errors.New("cache_backend=redis requires redis_addr")
		}
	default:
		return fmt.Errorf("cache_backend must be %q or %q, got %q", CacheMemory, CacheRedis, appCfg.CacheBackend)
	}

	if !history.ValidMode(appCfg.HistoryLog) {
		return fmt.Errorf("history_log must be one of all, db, log, off; got %q", appCfg.HistoryLog)
	}

	if appCfg.GroupCacheTTL <= 0 {
		return errors.New("group_cache_ttl must be positive")
	}
	if appCfg.ReconcileInterval < 0 {
		return errors.New("reconcile_interval must not be negative")
	}

	if coreCfg.Env != "dev" && (appCfg.JWTSecret == "" || appCfg.JWTSecret == devJWTSecret) {
		return errors.New("jwt_secret must be set outside dev")
	}

	return nil
}
