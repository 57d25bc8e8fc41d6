package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-tracker/config"
	"github.com/oksasatya/go-ddd-task-tracker/internal/application"
	"github.com/oksasatya/go-ddd-task-tracker/internal/container"
	pginfra "github.com/oksasatya/go-ddd-task-tracker/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-task-tracker/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-task-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-task-tracker/internal/router"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/helpers"
	"github.com/oksasatya/go-ddd-task-tracker/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		logger.Warn(w)
	}
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()

	c, err := build(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	defer c.Close()

	validation.Init()

	// Gin engine and global middleware
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.SecureHeaders(middleware.SecureOptions(cfg.IsDev())))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics())
	}

	reg := router.NewRegistry(r)
	// health checks on /health stay out of the access log
	if cfg.HTTPLogEnabled {
		reg.Use(middleware.AccessLog(logger))
	}
	router.InitModules(reg, c)
	reg.RegisterAll()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		helpers.LogError(logger, "server forced to shutdown", err, nil)
		return
	}
	logger.Info("server exited properly")
}

// build connects the required stores and the optional integrations. Postgres
// is the only hard dependency; everything else degrades with a warning.
func build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*container.Container, error) {
	c := &container.Container{Config: cfg, Logger: logger}

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		MaxConnLife: cfg.DBMaxConnLife,
	})
	if err != nil {
		return nil, err
	}
	c.DB = pool
	c.OnClose(pool.Close)

	if cfg.AutoMigrate {
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			c.Close()
			return nil, err
		}
	}

	if cfg.RedisAddr != "" {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rdb.Ping(ctx).Err(); err != nil {
			helpers.LogError(logger, "redis unreachable, rate limits fail open until it recovers", err, logrus.Fields{"addr": cfg.RedisAddr})
		}
		c.Redis = rdb
		c.OnClose(func() { _ = rdb.Close() })
	}

	opts := helpers.TokenOptions{
		Secret:    cfg.SecretKey,
		Algorithm: cfg.JWTAlgorithm,
		TTL:       cfg.AccessTokenTTL,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		VerifyExp: cfg.JWTVerifyExp,
		VerifyIat: cfg.JWTVerifyIat,
		VerifyNbf: cfg.JWTVerifyNbf,
		VerifySub: cfg.JWTVerifySub,
		VerifyAud: cfg.JWTVerifyAud,
		VerifyIss: cfg.JWTVerifyIss,
	}
	jwtManager, err := helpers.NewJWTManager(opts)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.JWT = jwtManager
	c.Hasher = helpers.NewPasswordHasher(cfg.BcryptCost)

	users := pginfra.NewUserRepository(pool)
	tasks := pginfra.NewTaskRepository(pool)

	c.Auth = application.NewAuthenticator(users, c.Hasher, c.JWT, logger)
	c.Auth.Record = middleware.RecordAuthAttempt
	c.Auth.AppName = cfg.AppName
	c.Users = application.NewUserService(users, c.Hasher, nil, logger)
	c.Tasks = application.NewTaskService(tasks, nil, logger)

	if cfg.GCSBucket != "" {
		gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			helpers.LogError(logger, "gcs disabled, avatar uploads unavailable", err, nil)
		} else {
			c.Users.Avatars = &helpers.GCSBucket{Client: gcs, Name: cfg.GCSBucket}
			c.OnClose(func() { _ = gcs.Close() })
		}
	}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			helpers.LogError(logger, "elasticsearch disabled, search falls back to postgres", err, nil)
		} else {
			idx := search.NewTaskIndex(es, cfg.ESTasksIndex, logger)
			if err := idx.EnsureIndex(ctx); err != nil {
				helpers.LogError(logger, "elasticsearch index not ready, search falls back to postgres", err, logrus.Fields{"index": cfg.ESTasksIndex})
			}
			c.Tasks.Search = idx
			c.Users.Index = idx
		}
	}

	if cfg.MailSendEnabled && cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			helpers.LogError(logger, "rabbitmq disabled, welcome emails will not be queued", err, nil)
		} else {
			c.Auth.Notifier = pub
			c.OnClose(pub.Close)
		}
	}

	helpers.LogInfo(logger, "dependencies ready", logrus.Fields{
		"redis":   c.Redis != nil,
		"avatars": c.Users.Avatars != nil,
		"search":  c.Tasks.Search != nil,
		"mail":    c.Auth.Notifier != nil,
	})
	return c, nil
}
