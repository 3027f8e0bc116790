// Package app wires together the weather station services and manages
// their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/Lukasxlama/weather-station-web-app/internal/api"
	"github.com/Lukasxlama/weather-station-web-app/internal/config"
	"github.com/Lukasxlama/weather-station-web-app/internal/debugsql"
	"github.com/Lukasxlama/weather-station-web-app/internal/ingest"
	"github.com/Lukasxlama/weather-station-web-app/internal/store"
)

// App owns the long-lived resources: the packet store, the ingestion
// listener, the HTTP server, and the optional mDNS advertisement.
type App struct {
	cfg    config.Config
	logger *slog.Logger
	store  *store.Store
	mdns   *zeroconf.Server
}

// New constructs a new application instance.
func New(cfg config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Run starts all services and blocks until the context is cancelled or a
// service fails. Shutdown order: HTTP drain, listener disconnect, mDNS,
// store close.
func (a *App) Run(ctx context.Context) error {
	st, err := store.Open(ctx, store.Config{
		Backend: a.cfg.DBBackend,
		Path:    a.cfg.DatabasePath,
		DSN:     a.cfg.DatabaseURL,
	})
	if err != nil {
		return err
	}
	a.store = st

	defer func() {
		if cerr := a.store.Close(); cerr != nil {
			a.logger.Error("close store", "error", cerr)
		}
	}()

	listener := ingest.New(ingest.Config{
		BrokerURL: a.cfg.BrokerURL,
		Topic:     a.cfg.Topic,
		Username:  a.cfg.MQTTUsername,
		Password:  a.cfg.MQTTPassword,
		QueueSize: a.cfg.IngestQueue,
	}, a.logger, st)

	listenerCtx, stopListener := context.WithCancel(context.Background())
	defer stopListener()

	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		listener.Run(listenerCtx)
	}()

	sandbox := debugsql.NewExecutor(st.DB(), a.logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler: api.New(st, sandbox, a.logger).Routes(),
	}

	httpErrCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.cfg.MDNSEnabled {
		if err := a.startMDNS(a.cfg.HTTPPort); err != nil {
			a.logger.Warn("mDNS advertisement failed", "error", err)
		}
	}
	defer a.stopMDNS()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		a.logger.Info("http server stopped")

		stopListener()
		<-listenerDone
		a.logger.Info("ingestion listener stopped")
		return nil
	case err := <-httpErrCh:
		stopListener()
		<-listenerDone
		return err
	}
}
