package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/chaos"
	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/config"
	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/ingest"
	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/logging"
	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/msg"
	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/observability"
	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/store"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		fmt.Println(config.Usage())
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.ServiceName, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting classifieds ingestor",
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("http_port", cfg.HTTPPort),
		zap.Strings("kafka_brokers", cfg.Kafka.SeedBrokers()),
		zap.String("topic", cfg.Kafka.Topic),
		zap.Int32("partition", cfg.Kafka.Partition),
		zap.Duration("idle_timeout", cfg.Kafka.IdleTimeout),
		zap.Duration("retry_after", cfg.RetryAfter),
		zap.Int("commit_every", cfg.Store.CommitEvery),
		zap.String("db_driver", cfg.Store.Driver),
		zap.String("table", cfg.Store.Table),
	)

	healthChecker := observability.NewHealthChecker(logger)

	grpcServer := grpc.NewServer()
	healthChecker.RegisterGRPC(grpcServer)

	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		logger.Fatal("failed to listen on gRPC port", zap.Error(err))
	}

	grpcErrCh := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr()))
		if err := grpcServer.Serve(grpcListener); err != nil {
			grpcErrCh <- err
		}
	}()

	httpErrCh := make(chan error, 1)
	go func() {
		if err := healthChecker.StartHTTPServer(cfg.HTTPAddr()); err != nil && err != http.ErrServerClosed {
			httpErrCh <- err
		}
	}()

	opts := ingest.Options{
		Open: func(ctx context.Context, from int64) (ingest.Session, error) {
			return msg.OpenPartition(cfg.Kafka, from, logger)
		},
		Conn:       store.NewConn(cfg.Store, logger),
		Injector:   chaos.New(cfg.Chaos, logger),
		Readiness:  healthChecker,
		RetryAfter: cfg.RetryAfter,
		Logger:     logger,
	}

	if cfg.Kafka.DeadLetterTopic != "" {
		producer, err := msg.NewProducer(cfg.Kafka, logger)
		if err != nil {
			logger.Fatal("failed to create dead-letter producer", zap.Error(err))
		}
		defer producer.Close()
		opts.DeadLetter = msg.NewDeadLetter(producer, cfg.Kafka.DeadLetterTopic)
		logger.Info("dead-lettering discarded messages", zap.String("topic", cfg.Kafka.DeadLetterTopic))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ingestor := ingest.New(opts)
	ingestErrCh := make(chan error, 1)
	go func() {
		ingestErrCh <- ingestor.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-grpcErrCh:
		logger.Error("gRPC server error", zap.Error(err))
		exitCode = 1
	case err := <-httpErrCh:
		logger.Error("HTTP server error", zap.Error(err))
		exitCode = 1
	case err := <-ingestErrCh:
		// Only an unknown resume position stops the loop.
		logger.Error("ingestion stopped", zap.Error(err))
		exitCode = 1
	}

	logger.Info("shutting down gracefully...")
	cancel()

	select {
	case <-ingestErrCh:
	case <-time.After(10 * time.Second):
		logger.Warn("ingestion loop did not stop in time")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := healthChecker.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down health checker", zap.Error(err))
	}
	grpcServer.GracefulStop()

	logger.Info("classifieds ingestor stopped", zap.Int64("resume_position", ingestor.Position()))
	if exitCode != 0 {
		logger.Sync()
		os.Exit(exitCode)
	}
}
