package container

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-tracker/config"
	"github.com/oksasatya/go-ddd-task-tracker/internal/application"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/helpers"
)

// Container carries the components built once in main so the router can wire
// modules from them. Optional clients (GCS, Elasticsearch, RabbitMQ) are
// folded into the services and are not listed here.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger
	DB     *pgxpool.Pool
	Redis  *redis.Client // nil disables rate limiting

	JWT    *helpers.JWTManager
	Hasher *helpers.PasswordHasher

	Auth  *application.Authenticator
	Users *application.UserService
	Tasks *application.TaskService

	closers []func()
}

// OnClose registers a cleanup run by Close in reverse order.
func (c *Container) OnClose(fn func()) {
	c.closers = append(c.closers, fn)
}

func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
