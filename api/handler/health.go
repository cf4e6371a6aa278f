package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/eduminer/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// pingMessage is the body of GET /api/v1/ping.
const pingMessage = "The server is up and running!"

// StatsProvider reports browser session usage.
type StatsProvider interface {
	Stats() models.SessionStats
}

// Health returns a handler for GET /api/v1/health.
//
// Status degrades when every browser session slot is in use.
func Health(sp StatsProvider, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sp.Stats()

		status := "healthy"
		if stats.MaxSessions > 0 && stats.ActiveSessions >= stats.MaxSessions {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			SessionStats: stats,
			Version:      Version,
		})
	}
}

// Ping returns a handler for GET /api/v1/ping.
func Ping() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.PingResponse{Message: pingMessage})
	}
}
