package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/uptrace/bun"

	"apptflow/internal/clock"
	"apptflow/internal/config"
	"apptflow/internal/service/booking"
	"apptflow/internal/service/cleanup"
	"apptflow/internal/store"
	"apptflow/internal/store/postgres"
	"apptflow/internal/store/sqlite"
	"apptflow/internal/transport/httpapi"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "apptflow-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "apptflow-server"),
	)
	slog.SetDefault(log)

	log.Info(
		"starting",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("database_driver", cfg.DatabaseDriver),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, appts, participants, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("store open failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	svc := booking.NewService(appts, participants, clock.System{}, booking.Config{
		WindowBefore: cfg.ConflictWindowBefore,
		WindowAfter:  cfg.ConflictWindowAfter,
	})
	sweeper := cleanup.NewSweeper(appts, clock.System{}, log, cfg.CleanupInterval)
	go sweeper.Run(ctx)

	handler := httpapi.NewHandler(svc, sweeper, participants, log)
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	log.Info("http server started", slog.String("http_addr", cfg.HTTPAddr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, server, cfg)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (*bun.DB, store.AppointmentRepository, store.ParticipantRepository, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		log.Info("opening sqlite database", slog.String("db_path", cfg.DatabasePath))
		db, err := sqlite.Open(cfg.DatabasePath)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := sqlite.Migrate(ctx, db); err != nil {
			_ = sqlite.Close(db)
			return nil, nil, nil, err
		}
		return db, sqlite.NewAppointmentRepo(db), sqlite.NewParticipantRepo(db), nil
	default:
		log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
		db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return db, postgres.NewAppointmentRepo(db), postgres.NewParticipantRepo(db), nil
	}
}

func shutdown(log *slog.Logger, server *http.Server, cfg config.Config) {
	log.Info("shutting down http server", slog.Duration("timeout", cfg.ShutdownTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed; forcing close", slog.Any("err", err))
		_ = server.Close()
		return
	}
	log.Info("http server stopped")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
