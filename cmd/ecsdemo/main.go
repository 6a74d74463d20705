package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecsforge/runtime/ecs"
	"github.com/ecsforge/runtime/ecsconfig"
	"github.com/ecsforge/runtime/ecsdebug"
	"github.com/ecsforge/runtime/ecsmetrics"
	"github.com/ecsforge/runtime/ecssched"
	"github.com/ecsforge/runtime/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults layered under env)")
	debugAddr := flag.String("debug-addr", "", "override the debug server bind address from config")
	flag.Parse()

	cfg, err := ecsconfig.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *debugAddr != "" {
		cfg.DebugAddr = *debugAddr
	}

	session := uuid.NewString()
	logger := logging.New(session, cfg.LogLevel, cfg.LogFormat)
	metrics := ecsmetrics.New(session)
	prometheus.MustRegister(metrics)

	world := ecs.NewWorld(
		ecs.WithSession(session),
		ecs.WithLogger(logger),
		ecs.WithMetrics(metrics),
		ecs.WithTrackingEnabled(cfg.TrackingEnabledByDefault),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.SampleProcess(rootCtx, 5*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	if cfg.DebugAddr != "" {
		dbg := ecsdebug.New(world, logger)
		dbg.Poll(rootCtx, 100*time.Millisecond)
		mux.Handle("/debug/", http.StripPrefix("/debug", dbg))

		srv := &http.Server{Addr: cfg.DebugAddr, Handler: mux}
		go func() {
			logger.WithField("addr", cfg.DebugAddr).Info("debug server listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("debug server stopped")
			}
		}()
		go func() {
			<-rootCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	loop := ecssched.NewLoop(world, cfg.TickRateHz, cfg.TrackingEnabledByDefault)
	logger.WithField("hz", cfg.TickRateHz).Info("starting tick loop")
	if err := loop.Run(rootCtx); err != nil && err != context.Canceled {
		logger.WithError(err).Warn("tick loop exited")
	}
}
