package handler

import (
	"net/http"
	"time"

	"simtinel/internal/realtime"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type SystemHandler struct {
	db        *sqlx.DB
	redis     *redis.Client
	hub       *realtime.Hub
	logger    Logger
	startTime time.Time
}

func NewSystemHandler(db *sqlx.DB, redisClient *redis.Client, hub *realtime.Hub, log Logger) *SystemHandler {
	return &SystemHandler{
		db:        db,
		redis:     redisClient,
		hub:       hub,
		logger:    log,
		startTime: time.Now(),
	}
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	})
}

// Ready verifies the backing stores are reachable.
func (h *SystemHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "ok", "redis": "ok"}
	status := http.StatusOK

	if err := h.db.PingContext(r.Context()); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := h.redis.Ping(r.Context()).Err(); err != nil {
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	if status != http.StatusOK {
		h.logger.Warn("readiness check failed", map[string]interface{}{"checks": checks})
	}
	respondJSON(w, status, map[string]interface{}{"checks": checks, "realtime": h.hub.Stats()})
}
