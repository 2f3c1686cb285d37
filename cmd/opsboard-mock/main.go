package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/opsboard/internal/api"
	"github.com/miradorstack/opsboard/internal/app"
	"github.com/miradorstack/opsboard/internal/config"
	"github.com/miradorstack/opsboard/internal/logs"
	"github.com/miradorstack/opsboard/internal/metrics"
	"github.com/miradorstack/opsboard/internal/mock"
	"github.com/miradorstack/opsboard/internal/storage"
	"github.com/miradorstack/opsboard/internal/utils"
)

func main() {
	var (
		configPath string
		publish    bool
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&publish, "publish-nats", false, "Mirror the log feed onto NATS")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting opsboard mock backend", slog.String("address", cfg.Server.Address))
	gin.SetMode(gin.ReleaseMode)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Keep the backend's badger files apart from a client sharing the same data dir.
	storagePath := cfg.Storage.Path
	if cfg.Storage.Driver == "" || cfg.Storage.Driver == storage.DriverBadger {
		storagePath = filepath.Join(storagePath, "backend")
	}
	provider, err := storage.Open(ctx, storage.Options{
		Driver:      cfg.Storage.Driver,
		Path:        storagePath,
		DatabaseURL: cfg.Storage.DatabaseURL,
		Valkey:      storage.ValkeyConfig(cfg.Storage.Valkey),
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to open storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer provider.Close()

	var publisher mock.Publisher
	if publish {
		natsURL := cfg.Logs.NATSURL
		if natsURL == "" {
			natsURL = nats.DefaultURL
		}
		nc, err := nats.Connect(natsURL, nats.Name("opsboard-mock"))
		if err != nil {
			logger.Warn("nats unavailable, feed stays local", slog.Any("error", err))
		} else {
			defer nc.Close()
			publisher = &logs.NATSPublisher{Conn: nc, Subject: cfg.Logs.Subject}
		}
	}

	backend, err := app.NewBackend(ctx, cfg, provider, app.BackendOptions{
		Publisher: publisher,
		Metrics:   promhttp.Handler(),
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to build backend", slog.Any("error", err))
		os.Exit(1)
	}
	go backend.RunFeed(ctx)

	probes, err := api.NewProbeServer(cfg.Server)
	if err != nil {
		logger.Error("failed to create gRPC probe server", slog.Any("error", err))
		os.Exit(1)
	}
	probes.SetServing(api.ServiceStorage, true)

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           backend.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http server listening", slog.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", slog.Any("error", err))
			stop()
		}
	}()
	probes.SetServing(api.ServiceHTTP, true)

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		logger.Info("grpc probe server listening", slog.String("address", probes.Address()))
		if serveErr := probes.Start(); serveErr != nil {
			logger.Error("gRPC probe server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")
	probes.SetServing(api.ServiceHTTP, false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}
	probes.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("opsboard mock backend stopped")
}
