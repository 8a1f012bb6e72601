package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/jsonapi-settings/internal/api"
	"github.com/eugenenazirov/jsonapi-settings/internal/config"
	"github.com/eugenenazirov/jsonapi-settings/internal/jsonapi"
	"github.com/eugenenazirov/jsonapi-settings/internal/signals"
	"github.com/eugenenazirov/jsonapi-settings/internal/storage"
	"github.com/eugenenazirov/jsonapi-settings/internal/usersettings"
	"github.com/eugenenazirov/jsonapi-settings/internal/watcher"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	host     *usersettings.Settings
	settings *jsonapi.Settings
	watcher  *watcher.Watcher
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application with all dependencies from the provided
// configuration. It fails when the JSON API settings cannot be trusted.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store := storage.NewMemoryStorage(cfg.Settings)
	host := usersettings.New(store, signals.New(), logger.Named("host_settings"))

	opts := []jsonapi.SettingsOption{jsonapi.WithLogger(logger.Named("jsonapi"))}
	if cfg.StrictRenderingStrategy {
		opts = append(opts, jsonapi.WithStrictRenderingStrategy())
	}
	settings, err := jsonapi.Init(host, host.Signal(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JSON API settings: %w", err)
	}

	var w *watcher.Watcher
	if cfg.WatchConfig && cfg.ConfigFile != "" {
		w = watcher.New(cfg.ConfigFile, cfg.ReloadSettings, host, logger.Named("watcher"))
	}

	handler := api.NewHandler(settings, host)
	router := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		host:     host,
		settings: settings,
		watcher:  w,
		handler:  handler,
		router:   router,
		logger:   logger,
		server:   NewServer(cfg, router),
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the config watcher, if enabled, and the HTTP server in a goroutine.
func (a *App) Start(ctx context.Context) error {
	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			return fmt.Errorf("start config watcher: %w", err)
		}
	}

	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Close stops background work started by Start.
func (a *App) Close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Settings returns the JSON API settings facade.
func (a *App) Settings() *jsonapi.Settings {
	return a.settings
}
