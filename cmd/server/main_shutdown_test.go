package main

import (
	"context"
	"net/http"
	"os"
	osSignal "os/signal"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/jsonapi-settings/internal/application"
	"github.com/eugenenazirov/jsonapi-settings/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sendSIGTERM(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		signalNotify = osSignal.Notify
	})
	signalNotify = func(ch chan<- os.Signal, sig ...os.Signal) {
		go func() {
			ch <- syscall.SIGTERM
		}()
	}
}

type stubApp struct {
	server *http.Server
	closed int
}

func (s *stubApp) Server() *http.Server { return s.server }
func (s *stubApp) Close()               { s.closed++ }

func TestShutdownSignals(t *testing.T) {
	sendSIGTERM(t)

	app := &stubApp{server: &http.Server{}}
	called := make(chan struct{}, 1)
	app.server.RegisterOnShutdown(func() {
		called <- struct{}{}
	})

	shutdown(app, time.Millisecond, zaptest.NewLogger(t))

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatalf("expected server shutdown callback to execute")
	}
	if app.closed != 1 {
		t.Fatalf("expected Close to run once, got %d", app.closed)
	}
}

func TestShutdownStopsConfigWatcher(t *testing.T) {
	sendSIGTERM(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "settings:\n  JSON_API_NESTED_SERIALIZERS_RENDERING_STRATEGY: ATTRIBUTE\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	port := "127.0.0.1:0"
	rps, burst := 0.0, 0
	cfg, err := config.Load(&config.CLIOverrides{
		ConfigFile:     path,
		WatchConfig:    true,
		Port:           &port,
		RateLimitRPS:   &rps,
		RateLimitBurst: &burst,
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	// The listener goroutine may log after the test returns.
	app, err := application.New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		shutdown(app, time.Second, zaptest.NewLogger(t))
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("shutdown did not return; config watcher still running")
	}
}
