// Command amqpmockd runs the AMQP mock broker: an AMQP 0-9-1 TCP listener, a
// side-channel HTTP control API, and a Prometheus metrics endpoint, all
// sharing one in-memory Storage instance.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"amqpmock/internal/amqpframe"
	"amqpmock/internal/broker"
	"amqpmock/internal/config"
	"amqpmock/internal/httpapi"
	"amqpmock/internal/routing"
	"amqpmock/internal/statslog"
	"amqpmock/internal/storage"
)

func main() {
	cfg := config.Load()
	configureLogging(cfg.LogLevel)

	// ── Broker state ───────────────────────────────────────────────────────────

	store := storage.New()
	routingEngine := routing.New(store)
	b := broker.New(store, routingEngine, amqpframe.Table{
		"product":      "amqpmock",
		"version":      "1.0",
		"capabilities": amqpframe.Table{},
	})

	// ── AMQP listener ──────────────────────────────────────────────────────────

	acceptor, err := broker.Listen(cfg.AMQPHost+":"+cfg.AMQPPort, b)
	if err != nil {
		slog.Error("amqp listen failed", "component", "amqpmockd", "error", err)
		os.Exit(1)
	}

	amqpCtx, stopAMQP := context.WithCancel(context.Background())
	go func() {
		slog.Info("amqp listener started", "component", "amqpmockd", "addr", acceptor.Addr().String())
		if err := acceptor.Serve(amqpCtx); err != nil {
			slog.Error("amqp listener error", "component", "amqpmockd", "error", err)
			os.Exit(1)
		}
	}()

	// ── HTTP control API ───────────────────────────────────────────────────────

	h := &httpapi.Handler{Storage: store}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	httpSrv := &http.Server{
		Addr:         cfg.HTTPHost + ":" + cfg.HTTPPort,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("http control API started", "component", "amqpmockd", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "component", "amqpmockd", "error", err)
			os.Exit(1)
		}
	}()

	// ── Optional stats logger ──────────────────────────────────────────────────

	var statsScheduler *cron.Cron
	if cfg.StatsLogSchedule != "" {
		statsScheduler, err = statslog.Start(store, cfg.StatsLogSchedule)
		if err != nil {
			slog.Error("invalid stats log schedule", "component", "amqpmockd", "schedule", cfg.StatsLogSchedule, "error", err)
			os.Exit(1)
		}
	}

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	//
	// Shutdown order: stop accepting new AMQP sockets, stop accepting new HTTP
	// requests (in-flight requests finish), stop the stats scheduler.

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutdown signal received", "component", "amqpmockd")

	stopAMQP()

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := httpSrv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "component", "amqpmockd", "error", err)
	}

	if statsScheduler != nil {
		<-statsScheduler.Stop().Done()
	}

	slog.Info("shutdown complete", "component", "amqpmockd")
}

func configureLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
