package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/fsuperadmin/backend/internal/infrastructure/logger"
	"github.com/fsuperadmin/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping() error
}

// SessionCounter reports the number of open collection dialogs
type SessionCounter interface {
	OpenSessions() (batches, partials int)
}

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	version   string
	db        Pinger
	sessions  SessionCounter
}

// NewSystemHandler creates a new SystemHandler. db may be nil when the
// ledger is remote and no local database is configured.
func NewSystemHandler(version string, db Pinger, sessions SessionCounter) *SystemHandler {
	return &SystemHandler{
		startTime: time.Now(),
		version:   version,
		db:        db,
		sessions:  sessions,
	}
}

// SystemInfoResponse represents the system information response
// @name HandlerSystemInfoResponse
type SystemInfoResponse struct {
	Name                string `json:"name" example:"Cobro API"`
	Version             string `json:"version" example:"1.0.0"`
	GoVersion           string `json:"go_version" example:"go1.25.5"`
	Uptime              string `json:"uptime" example:"1h30m45s"`
	OpenBatchSessions   int    `json:"open_batch_sessions"`
	OpenPartialSessions int    `json:"open_partial_sessions"`
}

// GetSystemInfo godoc
// @ID           getSystemSystemInfo
// @Summary      Get system information
// @Description  Returns version, uptime and the number of open collection dialogs
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "Cobro API",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.sessions != nil {
		info.OpenBatchSessions, info.OpenPartialSessions = h.sessions.OpenSessions()
	}
	h.Success(c, info)
}

// PingResponse represents the ping response
// @name HandlerPingResponse
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Description  Simple ping endpoint to check if the API is responsive
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[PingResponse]
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Health answers liveness checks
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Ready answers readiness checks, failing while the database is unreachable
func (h *SystemHandler) Ready(c *gin.Context) {
	database := "not_configured"
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			logger.L(c.Request.Context()).Warn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeInternal, "database unreachable", getRequestID(c)))
			return
		}
		database = "connected"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "database": database})
}
