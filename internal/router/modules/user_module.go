package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-tracker/internal/application"
	handlers "github.com/oksasatya/go-ddd-task-tracker/internal/interface/http"
	"github.com/oksasatya/go-ddd-task-tracker/internal/interface/middleware"
)

// UserModule serves /api/users/:id. Callers may only reach their own id.
type UserModule struct {
	Handler *handlers.UserHandler
	Auth    *application.Authenticator
	Redis   *redis.Client
	Logger  *logrus.Logger
	Limits  Limits
}

func NewUserModule(h *handlers.UserHandler, auth *application.Authenticator, rdb *redis.Client, logger *logrus.Logger, limits Limits) *UserModule {
	return &UserModule{Handler: h, Auth: auth, Redis: rdb, Logger: logger, Limits: limits}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/users")
	g.Use(
		middleware.BearerAuth(m.Auth),
		limiter(m.Redis, m.Logger, m.Limits.Protected, middleware.KeyBySubject()),
	)
	{
		g.GET("/:id", m.Handler.GetProfile)
		g.PUT("/:id", m.Handler.UpdateProfile)
		g.PUT("/:id/avatar", m.Handler.UploadAvatar)
		g.DELETE("/:id", m.Handler.Delete)
	}
}
