package router

import (
	"github.com/oksasatya/go-ddd-task-tracker/internal/container"
	handlers "github.com/oksasatya/go-ddd-task-tracker/internal/interface/http"
	"github.com/oksasatya/go-ddd-task-tracker/internal/router/modules"
)

// InitModules builds the handlers from c and registers every feature module.
// Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	authHandler := handlers.NewAuthHandler(c.Auth, c.Users, c.Logger)
	taskHandler := handlers.NewTaskHandler(c.Tasks, c.Logger)
	userHandler := handlers.NewUserHandler(c.Users, c.Logger)

	limits := modules.Limits{
		SignIn:    c.Config.SignInRatePerMin,
		SignUp:    c.Config.SignUpRatePerMin,
		Protected: c.Config.ProtectedRatePerMin,
	}

	r.Add(modules.NewAuthModule(authHandler, c.Auth, c.Redis, c.Logger, limits))
	r.Add(modules.NewTaskModule(taskHandler, c.Auth, c.Redis, c.Logger, limits))
	r.Add(modules.NewUserModule(userHandler, c.Auth, c.Redis, c.Logger, limits))

	// health and metrics live outside /api
	var db handlers.Pinger
	if c.DB != nil {
		db = c.DB
	}
	health := handlers.NewHealthHandler(db, c.Config.AppName)
	r.Engine.GET("/", health.Root)
	r.Engine.GET("/health", health.Health)
	if c.Config.MetricsEnabled {
		modules.NewDebugModule(c.Config.MetricsPrivateOnly).Register(&r.Engine.RouterGroup)
	}
}
