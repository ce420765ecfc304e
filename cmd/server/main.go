package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/analyzer"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/config"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/logging"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/realtime"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/server"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/traces"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(config.DefaultLogLevel, config.DefaultLogFormat).Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTraces, err := traces.Init(ctx, cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTraces(flushCtx); err != nil {
			logger.Error("trace flush failed", "error", err)
		}
	}()

	stream := realtime.NewHub(logger)
	stack, err := analyzer.Build(ctx, cfg, logger, stream)
	if err != nil {
		logger.Error("failed to build analyzer", "error", err)
		os.Exit(1)
	}
	defer stack.Close()

	srv := server.New(server.Options{
		Port:           cfg.Port,
		DefaultNetwork: cfg.DefaultNetwork,
		Analyzer:       stack.Analyzer,
		History:        stack.History,
		Health:         stack.Health,
		Stream:         stream,
		Logger:         logger,
	})

	if err := srv.Run(ctx); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
