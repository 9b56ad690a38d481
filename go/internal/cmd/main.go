package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/pukagames/moonrace/go/internal/dbconfig"
	"github.com/pukagames/moonrace/go/internal/feed"
	"github.com/pukagames/moonrace/go/internal/gateway"
	"github.com/pukagames/moonrace/go/internal/identity"
	"github.com/pukagames/moonrace/go/internal/session"
	"github.com/pukagames/moonrace/go/internal/store/postgres"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig(os.Getenv("MOONRACE_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	dbCfg := dbconfig.NewConfigFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	pool, err := postgres.Connect(ctx, dbCfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	// Connect to NATS
	natsCfg := feed.DefaultConnConfig()
	natsCfg.URL = cfg.NATS.URL
	nc, err := feed.Connect(natsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Close()

	log.Info().
		Str("database", dbCfg.Database).
		Str("nats_url", cfg.NATS.URL).
		Str("port", cfg.Gateway.Port).
		Int("win_threshold", cfg.gameConfig().WinThreshold).
		Msg("starting moonrace session service")

	// Relay Postgres NOTIFYs onto the NATS change feed
	listenerCfg := postgres.DefaultListenerConfig()
	listenerCfg.DatabaseURL = dbCfg.DSN()
	listener, err := postgres.NewListener(pool, feed.NewPublisher(nc), listenerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start change listener")
	}
	go func() {
		if err := listener.Start(ctx); err != nil {
			log.Error().Err(err).Msg("change listener stopped")
		}
	}()

	// Session lifecycle and profile apps, backed by the same pool
	sessionStore := postgres.New(pool, feed.NewSubscriber(nc))
	manager := session.NewManager(sessionStore, clockwork.NewRealClock(), cfg.gameConfig())
	identityApp := identity.NewApp(identity.NewRepository(pool))
	manager.SetRewarder(identityApp)

	// WebSocket fan-out for browser clients
	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	go cm.Start(ctx)

	consumer := gateway.NewEventConsumer(cm, nc)
	if err := consumer.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start gateway consumer")
	}
	defer consumer.Stop()

	server := setupServer(
		cfg.Gateway.Port,
		gateway.NewWebSocketHandler(cm),
		gateway.NewAPIHandler(manager, identityApp),
	)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("gateway server failed")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	cancel()
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("failed to shut down gateway server")
	}
}
