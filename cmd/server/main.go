package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/dasmlab/kashi/pkg/broker"
	"github.com/dasmlab/kashi/pkg/lyrics"
	"github.com/dasmlab/kashi/pkg/registry"
	"github.com/dasmlab/kashi/pkg/server"
	"github.com/dasmlab/kashi/pkg/service"
	"github.com/dasmlab/kashi/pkg/translate"
	"github.com/sirupsen/logrus"
)

type config struct {
	httpPort int
	grpcPort int

	deeplFreeURL string
	deeplProURL  string
	lrchubURL    string
	lrclibURL    string

	upstreamTimeout time.Duration
	logLevel        string
}

func main() {
	// An optional .env in the working directory feeds the KASHI_* variables.
	_ = godotenv.Load()

	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	level, err := logrus.ParseLevel(cfg.logLevel)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.WithFields(logrus.Fields{
		"http_port":        cfg.httpPort,
		"grpc_port":        cfg.grpcPort,
		"lrchub_url":       cfg.lrchubURL,
		"lrclib_url":       cfg.lrclibURL,
		"upstream_timeout": cfg.upstreamTimeout.String(),
		"log_level":        level.String(),
	}).Info("Starting Kashi message broker")

	dispatcher := broker.NewDispatcher(
		translate.NewTranslator(translate.Config{
			FreeURL: cfg.deeplFreeURL,
			ProURL:  cfg.deeplProURL,
			Timeout: cfg.upstreamTimeout,
			Logger:  logger,
		}),
		lyrics.NewResolver(
			lyrics.NewLRCHubClient(cfg.lrchubURL, cfg.upstreamTimeout, logger),
			lyrics.NewLRCLIBClient(cfg.lrclibURL, cfg.upstreamTimeout, logger),
			logger,
		),
		registry.NewClient(cfg.lrchubURL, cfg.upstreamTimeout, logger),
		logger,
	)

	if err := run(cfg, dispatcher, logger); err != nil {
		logger.WithError(err).Fatal("Server error")
	}
	logger.Info("Server stopped gracefully")
}

func parseConfig(args []string) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("kashi", flag.ContinueOnError)

	fs.IntVar(&cfg.httpPort, "http-port", 8080, "HTTP server port")
	fs.IntVar(&cfg.grpcPort, "grpc-port", 50051, "gRPC server port")
	fs.StringVar(&cfg.deeplFreeURL, "deepl-free-url", translate.DefaultFreeURL, "DeepL free tier translate endpoint")
	fs.StringVar(&cfg.deeplProURL, "deepl-pro-url", translate.DefaultProURL, "DeepL pro tier translate endpoint")
	fs.StringVar(&cfg.lrchubURL, "lrchub-url", lyrics.DefaultLRCHubURL, "Base URL of the LRCHub lyric and translation service")
	fs.StringVar(&cfg.lrclibURL, "lrclib-url", lyrics.DefaultLRCLIBURL, "Base URL of the LRCLIB search API")
	fs.DurationVar(&cfg.upstreamTimeout, "upstream-timeout", 0, "Timeout for each upstream request (0 means none)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	_ = fs.String("config", "", "config file (optional)")

	err := ff.Parse(fs, args,
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("KASHI"),
	)
	return cfg, err
}

func run(cfg config, dispatcher *broker.Dispatcher, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.grpcPort))
	if err != nil {
		return fmt.Errorf("listen on gRPC port %d: %w", cfg.grpcPort, err)
	}

	grpcServer := grpc.NewServer(
		grpc.Creds(insecure.NewCredentials()),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             15 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     5 * time.Minute,
			MaxConnectionAge:      30 * time.Minute,
			MaxConnectionAgeGrace: 5 * time.Second,
			Time:                  30 * time.Second,
			Timeout:               10 * time.Second,
		}),
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	service.RegisterBrokerServer(grpcServer, service.NewBrokerService(dispatcher, logger))
	reflection.Register(grpcServer)

	httpServer := server.NewHTTPServer(dispatcher, logger, cfg.httpPort)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithFields(logrus.Fields{
			"port": cfg.grpcPort,
		}).Info("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := httpServer.Start(); err != nil {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()

		httpErr := httpServer.Shutdown(shutdownCtx)

		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			logger.Warn("Graceful shutdown timeout, forcing stop...")
			grpcServer.Stop()
		}
		return httpErr
	})

	return g.Wait()
}
