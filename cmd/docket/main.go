package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/citylaw/docket/internal/auth"
	"github.com/citylaw/docket/internal/config"
	"github.com/citylaw/docket/internal/messenger/slack"
	"github.com/citylaw/docket/internal/notify"
	"github.com/citylaw/docket/internal/server"
	"github.com/citylaw/docket/internal/store/postgres"
	redisstore "github.com/citylaw/docket/internal/store/redis"
	"github.com/citylaw/docket/internal/tasks"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	level, parseErr := zerolog.ParseLevel(os.Getenv("DOCKET_LOG_LEVEL"))
	if parseErr != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv("DOCKET_LOG_FORMAT") == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	// Connect to Redis.
	pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	// Chat delivery is optional; the inbox and realtime stream always run.
	messengers := notify.NewRegistry()
	if cfg.Slack.BotToken != "" {
		messengers.Register(slack.NewFromToken(cfg.Slack.BotToken))
		log.Info().Msg("slack notifications enabled")
	}
	notifier := notify.New(store.Notifications(), store.Users(), pubsub, messengers, cfg.Server.PublicURL)

	taskSvc := tasks.NewService(store, notifier)
	authSvc := auth.NewService(store.Users(), cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	deps := server.Deps{
		Store:  store,
		Tasks:  taskSvc,
		Auth:   authSvc,
		PubSub: pubsub,
		Checks: map[string]server.Pinger{"postgres": store, "redis": pubsub},
	}

	var providers []*auth.OAuthProvider
	if g := cfg.SSO.Google; g.Enabled() {
		providers = append(providers, auth.NewGoogleProvider(g.ClientID, g.ClientSecret, g.RedirectURL))
	}
	if m := cfg.SSO.Microsoft; m.Enabled() {
		providers = append(providers, auth.NewMicrosoftProvider(cfg.SSO.MicrosoftTenant, m.ClientID, m.ClientSecret, m.RedirectURL))
	}
	if sso := auth.NewSSO(authSvc, pubsub, providers...); sso.Enabled() {
		deps.SSO = sso
		log.Info().Int("providers", len(providers)).Msg("sso enabled")
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.New(ctx, cfg, deps)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
