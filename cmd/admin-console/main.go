package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
	"github.com/vasiliy-maslov/rental-admin-console/internal/config"
	"github.com/vasiliy-maslov/rental-admin-console/internal/console"
	"github.com/vasiliy-maslov/rental-admin-console/internal/contract"
	"github.com/vasiliy-maslov/rental-admin-console/internal/db"
	consoleHttp "github.com/vasiliy-maslov/rental-admin-console/internal/handler/http"
	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
	"github.com/vasiliy-maslov/rental-admin-console/internal/session"
)

const purgeInterval = 10 * time.Minute

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogger(cfg)

	log.Info().Str("env", cfg.App.Env).Str("session_driver", cfg.Session.Driver).Msg("Admin console starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open session storage")
	}
	defer closeStorage()

	client := apiclient.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, session.Tokens{})
	services := resource.NewServices(client)
	sessions := session.NewManager(storage, services.Auth, cfg.Session.CookieTTL)

	registry := console.NewRegistry(services, console.Options{
		PriceDebounce: cfg.Order.PriceDebounce,
		PollInterval:  cfg.Notifications.PollInterval,
	})
	defer registry.Close()

	handler := consoleHttp.NewHandler(sessions, registry, services,
		contract.CompanyData{Name: cfg.Company.Name, Address: cfg.Company.Address, Phone: cfg.Company.Phone},
		consoleHttp.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.IsProduction()})

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	handler.RegisterRoutes(router)

	go purgeSessions(ctx, sessions, registry)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Backend.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Str("backend", cfg.Backend.BaseURL).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Admin console stopped gracefully")
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if cfg.Log.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("service", cfg.App.Name).Logger()
}

// openStorage picks the session storage named by the config. The returned
// function releases it.
func openStorage(ctx context.Context, cfg *config.Config) (session.Storage, func(), error) {
	switch cfg.Session.Driver {
	case "file":
		store, err := session.NewFileStore(cfg.Session.Dir, cfg.Session.Secret)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	case "sqlite":
		gdb, err := session.OpenSQLite(cfg.Session.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := session.NewGormStore(gdb)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if sqlDB, err := gdb.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil

	case "postgres":
		pg, err := db.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pg.ApplyMigrations(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return session.NewPostgresStore(pg.Pool), pg.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown session driver %q", cfg.Session.Driver)
}

// purgeSessions removes expired sessions from storage and then drops the
// in-memory workspaces that no longer have a live session.
func purgeSessions(ctx context.Context, sessions *session.Manager, registry *console.Registry) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to purge expired sessions")
			} else if n > 0 {
				log.Info().Int64("purged", n).Msg("Expired sessions purged")
			}
			if dropped := registry.Sweep(ctx, sessions); dropped > 0 {
				log.Info().Int("dropped", dropped).Msg("Orphaned workspaces dropped")
			}
		}
	}
}
