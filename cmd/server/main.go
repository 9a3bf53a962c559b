package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	gomongo "go.mongodb.org/mongo-driver/mongo"

	"github.com/showsec/security-demo/internal/api"
	"github.com/showsec/security-demo/internal/core/ports"
	"github.com/showsec/security-demo/internal/core/service"
	"github.com/showsec/security-demo/internal/infrastructure/config"
	"github.com/showsec/security-demo/internal/infrastructure/db/memory"
	"github.com/showsec/security-demo/internal/infrastructure/db/mongo"
	"github.com/showsec/security-demo/internal/infrastructure/db/redis"
	"github.com/showsec/security-demo/internal/infrastructure/queue"
	"github.com/showsec/security-demo/pkg/logger"
)

func main() {
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	cfg, err := config.Load(rootCtx)
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	// --- User directory + audit trail: MongoDB when configured, else memory ---
	var (
		store   ports.CredentialStore
		audit   ports.AuditRepository
		mongoDB *gomongo.Database
	)
	if cfg.Mongo.URI != "" {
		client, db, err := mongo.Connect(rootCtx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			log.Fatal().Err(err).Msg("mongo unavailable")
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		users := mongo.NewUserRepository(db)
		if err := users.EnsureIndexes(rootCtx); err != nil {
			log.Fatal().Err(err).Msg("mongo index setup failed")
		}
		store = users
		audit = mongo.NewAuditRepository(db)
		mongoDB = db
		log.Info().Str("database", cfg.Mongo.Database).Msg("using mongodb user directory")
	} else {
		mem := memory.NewStore()
		store = mem
		audit = mem
		log.Info().Msg("using in-memory user directory")
	}

	// --- Pending challenges: Redis when configured, else memory ---
	var (
		challenges  ports.ChallengeRegistry
		redisClient *goredis.Client
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(rootCtx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("redis unavailable")
		}
		defer func() { _ = rdb.Close() }()
		challenges = redis.NewChallengeRegistry(rdb)
		redisClient = rdb
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis challenge registry")
	} else {
		challenges = memory.NewChallengeRegistry()
		log.Info().Msg("using in-memory challenge registry")
	}

	// --- Core wiring ---
	dispatcher := queue.NewAuditDispatcher(0, audit, log)
	dispatcher.Start(rootCtx)

	totp := service.NewTOTPChallenge("security-demo", cfg.Auth.TOTPStepSeconds, cfg.Auth.TOTPSkewSteps)
	authService := service.NewAuthService(store, challenges, totp, dispatcher, ports.RealClock{}, service.AuthConfig{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
		Lockout: ports.LockoutPolicy{
			MaxAttempts: cfg.Auth.MaxAttempts,
			LockoutFor:  cfg.Auth.LockoutFor(),
		},
		ChallengeTTL: cfg.Auth.ChallengeTTL(),
	}, log)

	e := api.NewRouter(api.Dependencies{
		AuthService: authService,
		Audit:       audit,
		Mongo:       mongoDB,
		Redis:       redisClient,
		JWTSecret:   cfg.JWTSecret,
		Logger:      log,
	})

	// --- Serve until signalled ---
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		errCh <- e.Start(":" + cfg.Port)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutdown requested")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	}

	cancelRoot()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
