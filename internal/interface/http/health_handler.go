package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	DB      Pinger // optional
	AppName string
}

func NewHealthHandler(db Pinger, appName string) *HealthHandler {
	return &HealthHandler{DB: db, AppName: appName}
}

// Health GET /health. Reports "degraded" with 503 when the database does not
// answer.
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{"status": "healthy", "timestamp": time.Now().UTC()}
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["database"] = "unavailable"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
	}
	c.JSON(http.StatusOK, body)
}

// Root GET /
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": h.AppName + " API is running"})
}
