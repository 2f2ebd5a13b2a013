// internal/app/features/health/handler.go
package health

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	uierrors "github.com/dalemusser/ledgerhub/internal/app/features/errors"
	"github.com/dalemusser/ledgerhub/internal/app/system/timeouts"
)

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client *mongo.Client // nil when running on local storage only
	Log    *zap.Logger
}

// NewHandler constructs a health Handler with the Mongo client and logger.
func NewHandler(client *mongo.Client, logger *zap.Logger) *Handler {
	return &Handler{Client: client, Log: logger}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// With a reachable database: 200 and {"status":"ok","database":"connected"}.
// Without a configured database the service still serves local-mode
// sessions, so the status stays ok with database "local_only".
// A configured but unreachable database reports 503.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	if h.Client == nil {
		uierrors.RenderJSON(w, http.StatusOK, healthResponse{
			Status:   "ok",
			Database: "local_only",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		uierrors.RenderJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:   "error",
			Database: "disconnected",
			Message:  "Database unavailable",
			Error:    err.Error(),
		})
		return
	}

	uierrors.RenderJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Database: "connected",
	})
}
