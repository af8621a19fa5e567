package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Skotchmaster/session_manager/internal/audit"
	"github.com/Skotchmaster/session_manager/internal/config"
	"github.com/Skotchmaster/session_manager/internal/db"
	"github.com/Skotchmaster/session_manager/internal/events"
	"github.com/Skotchmaster/session_manager/internal/hash"
	"github.com/Skotchmaster/session_manager/internal/httpserver"
	"github.com/Skotchmaster/session_manager/internal/logging"
	"github.com/Skotchmaster/session_manager/internal/metrics"
	authmw "github.com/Skotchmaster/session_manager/internal/middleware/auth"
	"github.com/Skotchmaster/session_manager/internal/repo"
	"github.com/Skotchmaster/session_manager/internal/service"
	"github.com/Skotchmaster/session_manager/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.IsProduction())
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DB)
	cancel()
	if err != nil {
		logger.Error("db init failed", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.Error("db close", "error", err)
		}
	}()

	publisher := events.New(cfg.Kafka.Brokers, cfg.Kafka.UserTopic)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka close", "error", err)
		}
	}()

	recorder := newAuditRecorder(cfg.Elastic, logger)
	m := metrics.New()

	gormRepo := repo.New(gdb)
	hasher := hash.NewBcrypt()
	access, refresh := []byte(cfg.JWT.AccessSecret), []byte(cfg.JWT.RefreshSecret)

	authSvc := &service.AuthService{
		Repo:   gormRepo,
		Hasher: hasher,
		Issuer: &tokens.Issuer{
			AccessSecret:  access,
			RefreshSecret: refresh,
			AccessTTL:     cfg.JWT.AccessTTL.Duration(),
			RefreshTTL:    cfg.JWT.RefreshTTL.Duration(),
		},
		Verifier: tokens.Verifier{AccessSecret: access, RefreshSecret: refresh},
		Events:   publisher,
		Audit:    recorder,
		Metrics:  m,
	}
	usersSvc := &service.UserService{
		Repo:   gormRepo,
		Hasher: hasher,
		Events: publisher,
		Audit:  recorder,
	}

	var origins []string
	if cfg.ClientURL != "" {
		origins = strings.Split(cfg.ClientURL, ",")
	}

	e := httpserver.New(&httpserver.Deps{
		AuthHandler:  &httpserver.AuthHTTP{Svc: authSvc, Cookie: cfg.RefreshCookie()},
		UsersHandler: &httpserver.UsersHTTP{Svc: usersSvc},
		Gate:         authmw.NewGate(access, m),
		Metrics:      m,
		Ready:        func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	}, logger, origins)
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	go func() {
		logger.Info("server starting", "addr", cfg.HTTPAddr, "env", cfg.Env, "db", cfg.DB.Driver)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("echo start", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}
	logger.Info("server stopped")
}

// newAuditRecorder falls back to a no-op recorder when Elasticsearch is not configured.
func newAuditRecorder(cfg config.ElasticConfig, logger *slog.Logger) audit.Recorder {
	if cfg.URL == "" {
		logger.Info("audit trail disabled: ES_URL not set")
		return audit.Nop{}
	}
	client, err := audit.NewElasticClient(cfg.URL, cfg.User, cfg.Password)
	if err != nil {
		logger.Error("elasticsearch client", "error", err)
		return audit.Nop{}
	}

	rec := &audit.Elastic{ES: client, Index: cfg.AuditIndex}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rec.Ping(ctx); err != nil {
		logger.Warn("elasticsearch not reachable at startup", "error", err)
	}
	return rec
}
