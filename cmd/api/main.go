package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/stamns/modelwatch/internal/config"
	"github.com/stamns/modelwatch/internal/history"
	"github.com/stamns/modelwatch/internal/httpapi"
	"github.com/stamns/modelwatch/internal/httpapi/middleware"
	"github.com/stamns/modelwatch/internal/logging"
	"github.com/stamns/modelwatch/internal/probe"
	"github.com/stamns/modelwatch/internal/scheduler"
	"github.com/stamns/modelwatch/internal/source"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src := source.NewFileSource(logger, cfg.ProvidersFile)
	if err := src.Reload(); err != nil {
		// keep running; targets can be reloaded once the file shows up
		logger.Warn("initial_target_load_failed",
			zap.String("path", cfg.ProvidersFile),
			zap.Error(err),
		)
	}

	book := history.NewBook(cfg.HistoryCapacity)
	sched := scheduler.New(logger, src, book, probe.New(cfg.ProbeTimeout), scheduler.Config{
		PollInterval:      cfg.PollInterval,
		ProbeTimeout:      cfg.ProbeTimeout,
		RoundCeiling:      cfg.RoundCeiling,
		Workers:           cfg.MaxConcurrent,
		ChatCheck:         cfg.ChatCheckEnabled,
		DegradedThreshold: cfg.DegradedThreshold,
	})
	go sched.Run(ctx)

	api := httpapi.NewServer(logger, book, sched, src)
	api.Keys = middleware.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	api.PublicRPM = cfg.PublicRPM
	api.PublicBurst = cfg.PublicBurst

	srv := &http.Server{Addr: cfg.Addr, Handler: api.Router()}
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("api_serve_error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
