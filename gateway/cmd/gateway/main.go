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

	"github.com/complyhub/platform/gateway/internal/config"
	"github.com/complyhub/platform/gateway/internal/httpserver"
	"github.com/complyhub/platform/gateway/internal/middleware"
	"github.com/complyhub/platform/pkg/authclient"
	"github.com/complyhub/platform/pkg/logging"
	"github.com/complyhub/platform/pkg/metrics"
	"github.com/labstack/echo/v4"
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

	var verifier middleware.Verifier
	switch cfg.VerifyMode {
	case config.VerifyLocal:
		verifier = middleware.NewLocalVerifier(cfg.JWTSecret, nil)
	default:
		verifier = authclient.NewClient(cfg.AuthURL, cfg.VerifyTimeout)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 30 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	if err := httpserver.Register(e, &httpserver.Deps{
		Logger:   logger,
		AuthURL:  cfg.AuthURL,
		Services: cfg.Services,
		Verifier: verifier,
		Metrics:  metrics.New(reg, "gateway"),
		Gatherer: reg,
	}); err != nil {
		log.Fatal(err)
	}

	go func() {
		logger.Info("gateway_listening", "addr", cfg.ListenAddr, "verify_mode", cfg.VerifyMode)
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
