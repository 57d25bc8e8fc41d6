package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-tracker/internal/interface/middleware"
)

// Limits are requests per minute. Zero disables the limiter.
type Limits struct {
	SignIn    int
	SignUp    int
	Protected int
}

func limiter(rdb *redis.Client, logger *logrus.Logger, max int, keyFn middleware.KeyFunc) gin.HandlerFunc {
	return middleware.RateLimit(rdb, logger, max, time.Minute, keyFn, nil)
}
