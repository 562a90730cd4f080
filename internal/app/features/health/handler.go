// internal/app/features/health/handler.go
package health

import (
	"context"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/techradar/compass/internal/app/system/respond"
	"github.com/techradar/compass/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// Handler holds the dependency probes reported by /health.
type Handler struct {
	Database CheckFunc
	Cache    CheckFunc // nil when the group cache is in-process
	Log      *zap.Logger
}

// NewHandler builds a Handler probing MongoDB and, when rdb is non-nil, Redis.
func NewHandler(client *mongo.Client, rdb redis.UniversalClient, logger *zap.Logger) *Handler {
	h := &Handler{
		Database: func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
		Log:      logger,
	}
	if rdb != nil {
		h.Cache = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return h
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "cache":"connected" }
//
// On database failure: 503 with "database":"disconnected". A Redis failure
// degrades the status but stays 200, since reads fall through to MongoDB.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "connected"}

	if err := h.Database(ctx); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		respond.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	if h.Cache != nil {
		resp.Cache = "connected"
		if err := h.Cache(ctx); err != nil {
			h.Log.Warn("health-check: redis ping failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Cache = "disconnected"
			resp.Error = err.Error()
		}
	}

	respond.JSON(w, http.StatusOK, resp)
}
