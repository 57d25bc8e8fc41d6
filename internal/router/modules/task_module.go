package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-tracker/internal/application"
	handlers "github.com/oksasatya/go-ddd-task-tracker/internal/interface/http"
	"github.com/oksasatya/go-ddd-task-tracker/internal/interface/middleware"
)

// TaskModule serves /api/tasks. Every route requires a bearer token.
type TaskModule struct {
	Handler *handlers.TaskHandler
	Auth    *application.Authenticator
	Redis   *redis.Client
	Logger  *logrus.Logger
	Limits  Limits
}

func NewTaskModule(h *handlers.TaskHandler, auth *application.Authenticator, rdb *redis.Client, logger *logrus.Logger, limits Limits) *TaskModule {
	return &TaskModule{Handler: h, Auth: auth, Redis: rdb, Logger: logger, Limits: limits}
}

func (m *TaskModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/tasks")
	g.Use(
		middleware.BearerAuth(m.Auth),
		limiter(m.Redis, m.Logger, m.Limits.Protected, middleware.KeyBySubject()),
	)
	{
		g.GET("", m.Handler.List)
		g.POST("", m.Handler.Create)
		g.GET("/search", m.Handler.Search)
		g.GET("/:id", m.Handler.Get)
		g.PUT("/:id", m.Handler.Update)
		g.PATCH("/:id/complete", m.Handler.ToggleComplete)
		g.DELETE("/:id", m.Handler.Delete)
	}
}
