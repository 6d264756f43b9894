package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	echoapi "github.com/relaychat/auth-service/api/echo"
	"github.com/relaychat/auth-service/cache"
	rediscache "github.com/relaychat/auth-service/cache/redis"
	"github.com/relaychat/auth-service/config"
	"github.com/relaychat/auth-service/directory"
	"github.com/relaychat/auth-service/internal/federation"
	applog "github.com/relaychat/auth-service/log"
	"github.com/relaychat/auth-service/mongodb"
	"github.com/relaychat/auth-service/notify"
	"github.com/relaychat/auth-service/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}
	applog.Setup(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		zlog.Fatal().Err(err).Msg("failed to ensure indexes")
	}

	var sessionCache cache.SessionStore
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		sessionCache = rediscache.NewSessionCache(client, cfg.RedisPrefix)
	} else {
		sessionCache = cache.NewMemorySessionStore()
	}

	keys, err := services.NewKeySet()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize signing keys")
	}
	keys.StartRotation(ctx, cfg.KeyRotationInterval)

	tokenService := services.NewTokenService(
		mongodb.NewSessionRepository(db),
		sessionCache,
		keys,
		cfg.Issuer,
	)

	var providers []federation.Provider
	if cfg.GoogleClientID != "" {
		google, err := federation.NewGoogleProvider(
			cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		if err != nil {
			zlog.Fatal().Err(err).Msg("failed to configure google provider")
		}
		providers = append(providers, google)
	}

	authService := services.NewAuthService(
		mongodb.NewFlowAttemptRepository(db),
		mongodb.NewClientRepository(db),
		tokenService,
		directory.NewClient(cfg.DirectoryURL, &http.Client{Timeout: 10 * time.Second}),
		&notify.LogSender{Channel: "email"},
		&notify.LogSender{Channel: "sms"},
		federation.NewRegistry(providers...),
		cfg.LoginURL,
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	echoapi.NewAuthAPI(authService).RegisterRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("http server failed")
		}
	}()
	zlog.Info().Str("port", cfg.HTTPPort).Msg("auth service started")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("http server shutdown failed")
	}
}
