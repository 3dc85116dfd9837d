package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"network_controller/internal/app/port"
	"network_controller/internal/app/service"
	"network_controller/internal/config"
	"network_controller/internal/domain/entity"
	"network_controller/internal/infrastructure/metrics"
	"network_controller/internal/infrastructure/network/client"
	networkdefinition "network_controller/internal/infrastructure/network/definition"
	"network_controller/internal/infrastructure/restapi"
	"network_controller/internal/infrastructure/statestore"
	"network_controller/internal/pkg/events"
	"network_controller/internal/pkg/logger"
	"network_controller/internal/pkg/utils"
)

func main() {
	// Bootstrap logger until the configured zap logger exists.
	logger.InitSlog("INFO")

	cfgPath := flag.String("config", utils.GetEnv("CONFIG_PATH", "config/config.yml"), "path to the YAML configuration")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", "path", *cfgPath, "error", err)
	}

	zapLogger, err := logger.NewZapLogger(logger.Config{Level: cfg.Logging.Level, Encoding: cfg.Logging.Encoding})
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to initialize zap logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()
	logger.InitFromZap(zapLogger)
	zapLogger.Info("Configuration loaded", zap.String("path", *cfgPath))

	var persister port.StatePersister
	if cfg.Storage.Enabled {
		bolt, err := statestore.OpenBolt(cfg.Storage.Path)
		if err != nil {
			zapLogger.Fatal("Failed to open state storage", zap.String("path", cfg.Storage.Path), zap.Error(err))
		}
		defer func() {
			if err := bolt.Close(); err != nil {
				zapLogger.Error("Failed to close state storage", zap.Error(err))
			}
		}()
		persister = bolt
		zapLogger.Info("State persistence enabled", zap.String("path", cfg.Storage.Path))
	}

	initial := entity.NewControllerState(initialProviderConfig(cfg.Network.InitialProvider))
	store, err := statestore.Restore(initial, persister, logger.NewComponentLogger(zapLogger, "statestore"))
	if err != nil {
		zapLogger.Fatal("Failed to restore network state", zap.Error(err))
	}

	definitions := networkdefinition.NewNetworkDefinitionProvider(logger.NewComponentLogger(zapLogger, "definitions"))
	factory := client.NewFactory(cfg.RpcClient, cfg.Network, definitions, zapLogger)

	var (
		recorder       port.MetricsRecorder = metrics.NoopRecorder{}
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		prom := metrics.NewPrometheusRecorder(cfg.Metrics.Namespace, zapLogger)
		recorder = prom
		metricsHandler = prom.Handler()
	}

	controller := service.NewNetworkController(
		store,
		factory,
		definitions,
		recorder,
		logger.NewComponentLogger(zapLogger, "registry"),
		zapLogger,
	)
	defer controller.Destroy()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := controller.InitializeProvider(ctx); err != nil {
		zapLogger.Fatal("Failed to initialize provider", zap.Error(err))
	}
	zapLogger.Info("Network ready",
		zap.String("type", string(controller.ProviderConfig().Type)),
		zap.String("status", string(controller.NetworkStatus())),
	)

	controller.Subscribe(events.InfuraBlocked, func() {
		zapLogger.Warn("Infura is not available in this region")
	})
	_, poller := controller.GetProviderAndBlockTracker()
	unsubscribe := poller.Subscribe(port.PollerEventLatest, func(payload any) {
		if header, ok := payload.(*entity.BlockHeader); ok {
			zapLogger.Info("New block", zap.Uint64("number", header.NumberUint64()), zap.Stringer("hash", header.Hash))
		}
	})
	defer unsubscribe()

	swaggerSpec := ""
	if cfg.Swagger.Enabled {
		swaggerSpec = cfg.Swagger.SpecFile
	}
	router := restapi.SetupRouter(
		restapi.NewNetworkHandler(controller, definitions, zapLogger),
		restapi.RouterOptions{
			Logger:          zapLogger,
			MetricsPath:     cfg.Metrics.Path,
			MetricsHandler:  metricsHandler,
			SwaggerSpecFile: swaggerSpec,
		},
	)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		zapLogger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting")
}

func initialProviderConfig(p config.ProviderConfig) entity.ProviderConfiguration {
	cfg := entity.ProviderConfiguration{
		Type:     entity.NetworkType(p.Type),
		ChainID:  p.ChainID,
		RPCURL:   p.RPCURL,
		Ticker:   p.Ticker,
		Nickname: p.Nickname,
	}
	if p.BlockExplorerURL != "" {
		cfg.RPCPrefs = &entity.RPCPrefs{BlockExplorerURL: p.BlockExplorerURL}
	}
	return cfg
}
