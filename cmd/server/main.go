package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cannerai/cannerd/api"
	"github.com/cannerai/cannerd/config"
	"github.com/cannerai/cannerd/internal/authbackend"
	"github.com/cannerai/cannerd/internal/authcode"
	"github.com/cannerai/cannerd/internal/genai"
	"github.com/cannerai/cannerd/internal/server"
	"github.com/cannerai/cannerd/mongodb"
	"github.com/cannerai/cannerd/services"
)

const codeJanitorInterval = time.Minute

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	initLogger(cfg)
	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db_name", cfg.MongoDBName).
		Str("log_level", cfg.LogLevel).
		Bool("test_routes", cfg.EnableTestRoutes).
		Msg("Starting cannerd server")

	if cfg.JWTSecretKey == "dev-jwt-secret-change-me" {
		log.Warn().Msg("JWT_SECRET_KEY is the insecure default, do not run this in production")
	}

	ctx := context.Background()
	if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MongoDB connection")
	}
	db := mongodb.GetDB()

	responseRepo, err := mongodb.NewResponseRepository(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ResponseRepository")
	}

	codeStore := newCodeStore(cfg)
	tokenService := services.NewTokenService(cfg.JWTSecretKey)
	remoteClient := authbackend.NewClient(cfg.AuthBackendURL, time.Duration(cfg.ExchangeTimeoutSec)*time.Second)
	exchangeService := services.NewExchangeService(
		codeStore,
		tokenService,
		remoteClient,
		time.Duration(cfg.ExchangeTimeoutSec)*time.Second,
	)
	generator := genai.NewClient(cfg.GeminiAPIKey, genai.NewMediaFetcher())

	restAPI := api.NewAPI(api.Options{
		Codes:            codeStore,
		Tokens:           tokenService,
		Exchange:         exchangeService,
		Responses:        responseRepo,
		Generator:        generator,
		DBPing:           mongodb.Ping,
		AuthFrontendURL:  cfg.AuthFrontendURL,
		EnableTestRoutes: cfg.EnableTestRoutes,
	})

	httpServer := server.NewHTTPServer(cfg, restAPI)

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := mongodb.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("MongoDB disconnect failed")
	}
	log.Info().Msg("Server stopped")
}

func initLogger(cfg *config.ServerConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.LogPretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	log.Logger = logger.Level(level).With().Timestamp().Logger()
}

// newCodeStore picks the authorization-code store: process memory by
// default, Redis when configured so several instances can resolve each
// other's codes.
func newCodeStore(cfg *config.ServerConfig) authcode.Store {
	if cfg.RedisAddr == "" {
		return authcode.NewMemoryStore(codeJanitorInterval)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis-backed authorization code store")
	return authcode.NewRedisStore(client, "")
}
