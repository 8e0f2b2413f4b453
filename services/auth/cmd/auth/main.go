package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/complyhub/platform/pkg/db"
	"github.com/complyhub/platform/pkg/logging"
	"github.com/complyhub/platform/pkg/metrics"
	"github.com/complyhub/platform/pkg/tokens"
	"github.com/complyhub/platform/services/auth/internal/audit"
	"github.com/complyhub/platform/services/auth/internal/config"
	"github.com/complyhub/platform/services/auth/internal/httpserver"
	"github.com/complyhub/platform/services/auth/internal/permissions"
	"github.com/complyhub/platform/services/auth/internal/repo"
	"github.com/complyhub/platform/services/auth/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatalf("db init error: %v", err)
	}
	gormRepo := repo.New(gdb)
	err = gormRepo.Migrate(initCtx)
	cancel()
	if err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sinks := audit.Multi{&audit.StoreRecorder{Store: gormRepo}}
	var kafkaPub *audit.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub = audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		sinks = append(sinks, kafkaPub)
	}
	if cfg.ESURL != "" {
		es, err := audit.NewESClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			logger.Warn("elasticsearch_unavailable", "error", err)
		} else {
			sinks = append(sinks, &audit.ESIndexer{Client: es, Index: cfg.ESAuditIndex})
		}
	}

	resolver := &permissions.Resolver{Graph: gormRepo}
	svc := &service.AuthService{
		Users:       gormRepo,
		Sessions:    gormRepo,
		Permissions: resolver,
		Codec: &tokens.Codec{
			AccessSecret:  cfg.JWTSecret,
			RefreshSecret: cfg.RefreshSecret,
			AccessTTL:     cfg.AccessTTL,
			RefreshTTL:    cfg.RefreshTTL,
		},
		Audit:   sinks,
		Metrics: metrics.New(reg, "complyhub"),
		Policy:  cfg.Policy(),
	}

	e := httpserver.New(logger)
	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
		Directory:   &httpserver.DirectoryHTTP{Dir: gormRepo, Permissions: resolver},
		Ready:       func(ctx context.Context) error { return db.Ping(ctx, gdb) },
		Gatherer:    reg,
	})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweepSessions(sweepCtx, logger, svc, cfg.SweepInterval)

	go func() {
		logger.Info("auth_listening", "addr", cfg.AuthAddr, "revocable_sessions", cfg.RevocableSessions, "login_scope", cfg.LoginScope)
		if err := e.Start(cfg.AuthAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	stopSweep()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown", "error", err)
	}
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka_close", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close", "error", err)
	}
}

func sweepSessions(ctx context.Context, logger *slog.Logger, svc *service.AuthService, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := svc.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("session_sweep_failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("session_sweep", "deleted", n)
			}
		}
	}
}
