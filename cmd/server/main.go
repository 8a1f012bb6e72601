package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/jsonapi-settings/internal/application"
	"github.com/eugenenazirov/jsonapi-settings/internal/config"
	"github.com/eugenenazirov/jsonapi-settings/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("jsonapi-settings", "JSON API settings service - resolves serializer options from host settings with live reload")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	watch := kingpinApp.Flag("watch", "Reload host settings when the configuration file changes").Bool()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()
	strict := kingpinApp.Flag("strict-rendering-strategy", "Require JSON_API_NESTED_SERIALIZERS_RENDERING_STRATEGY to be set explicitly").Bool()
	settings := kingpinApp.Flag("set", "Host setting override as KEY=VALUE (repeatable)").Short('s').StringMap()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile:              *configFile,
		WatchConfig:             *watch,
		StrictRenderingStrategy: *strict,
		Settings:                *settings,
	}

	if *port != "" {
		overrides.Port = port
	}

	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()
	defer zap.ReplaceGlobals(logger)()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app, cfg.ShutdownGracePeriod, logger)
}

// closer stops background work such as the config watcher.
type closer interface {
	Server() *http.Server
	Close()
}

func shutdown(app closer, timeout time.Duration, logger *zap.Logger) {
	defer app.Close()
	server := app.Server()

	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
