package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oksasatya/go-ddd-task-tracker/internal/interface/middleware"
)

// DebugModule exposes Prometheus metrics at /metrics.
type DebugModule struct {
	PrivateOnly bool
}

func NewDebugModule(privateOnly bool) *DebugModule { return &DebugModule{PrivateOnly: privateOnly} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	handlers := []gin.HandlerFunc{}
	if m.PrivateOnly {
		handlers = append(handlers, middleware.RequireAllow(middleware.AllowPrivateIP()))
	}
	handlers = append(handlers, gin.WrapH(promhttp.Handler()))
	rg.GET("/metrics", handlers...)
}
