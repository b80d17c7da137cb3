package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"groovy/internal/config"
	"groovy/internal/daemon"
	"groovy/internal/engine"
	"groovy/internal/ipc"
	"groovy/internal/logging"
	"groovy/internal/observability"
	"groovy/internal/scanner"
	"groovy/internal/tracking"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := tracking.Open(cfg)
	if err != nil {
		logger.Error("open tracking store", logging.Error(err))
		os.Exit(1)
	}

	if err := seedWorkflows(ctx, cfg, store, logger); err != nil {
		logger.Error("seed workflow definitions", logging.Error(err))
		_ = store.Close()
		os.Exit(1)
	}

	metrics := observability.InitMetrics()
	scans := scanner.New(cfg, store, logger, metrics)
	eng := engine.New(store, scans, logger, metrics)

	d, err := daemon.New(cfg, store, eng, scans, metrics, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		os.Exit(1)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		logger.Error("start ipc server", logging.Error(err))
		os.Exit(1)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("groovyd shutting down")
}
