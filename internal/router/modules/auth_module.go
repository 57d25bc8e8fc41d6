package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-tracker/internal/application"
	handlers "github.com/oksasatya/go-ddd-task-tracker/internal/interface/http"
	"github.com/oksasatya/go-ddd-task-tracker/internal/interface/middleware"
)

// AuthModule serves the credential endpoints.
// Public: POST /api/auth/sign-up, POST /api/auth/sign-in (plus the /email aliases)
// Protected: GET /api/auth/me
type AuthModule struct {
	Handler *handlers.AuthHandler
	Auth    *application.Authenticator
	Redis   *redis.Client
	Logger  *logrus.Logger
	Limits  Limits
}

func NewAuthModule(h *handlers.AuthHandler, auth *application.Authenticator, rdb *redis.Client, logger *logrus.Logger, limits Limits) *AuthModule {
	return &AuthModule{Handler: h, Auth: auth, Redis: rdb, Logger: logger, Limits: limits}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	signUpLimiter := limiter(m.Redis, m.Logger, m.Limits.SignUp, middleware.KeyByIPAndPath())
	signInLimiter := limiter(m.Redis, m.Logger, m.Limits.SignIn, middleware.KeyByIPAndPath())

	g := rg.Group("/auth")
	g.POST("/sign-up", signUpLimiter, m.Handler.SignUp)
	g.POST("/sign-up/email", signUpLimiter, m.Handler.SignUp)
	g.POST("/sign-in", signInLimiter, m.Handler.SignIn)
	g.POST("/sign-in/email", signInLimiter, m.Handler.SignIn)

	g.GET("/me",
		middleware.BearerAuth(m.Auth),
		limiter(m.Redis, m.Logger, m.Limits.Protected, middleware.KeyBySubject()),
		m.Handler.Me,
	)
}
