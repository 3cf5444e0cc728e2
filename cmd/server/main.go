// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

// CaseTrail server entrypoint. Wires the audit pipeline: DuckDB store,
// alert bus and notifiers, pattern trackers, HTTP API, and the
// supervision tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BTheCoderr/casetrail/internal/alerting"
	"github.com/BTheCoderr/casetrail/internal/api"
	"github.com/BTheCoderr/casetrail/internal/audit"
	"github.com/BTheCoderr/casetrail/internal/config"
	"github.com/BTheCoderr/casetrail/internal/database"
	"github.com/BTheCoderr/casetrail/internal/logging"
	"github.com/BTheCoderr/casetrail/internal/perf"
	"github.com/BTheCoderr/casetrail/internal/reports"
	"github.com/BTheCoderr/casetrail/internal/supervisor"
	"github.com/BTheCoderr/casetrail/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().Str("version", version).Msg("CaseTrail starting")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Event store: DuckDB when a path is configured, in-memory otherwise.
	var store audit.Store
	var pinger api.Pinger
	if cfg.Database.Path != "" {
		db, err := database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		duck := audit.NewDuckDBStore(db.Conn())
		if err := duck.CreateTables(ctx); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		store = duck
		pinger = db
	} else {
		logging.Warn().Msg("No database path configured, using in-memory store")
		store = audit.NewMemoryStore(cfg.Audit.MemoryBuffer)
	}
	store = audit.Instrument(store)

	// Alert pipeline: bus, notifiers, dispatcher.
	bus := alerting.NewBus(cfg.Alerting.Buffer)
	defer bus.Close()

	hub := websocket.NewHub()

	notifiers := []alerting.Notifier{alerting.NewLogNotifier(), hub}
	if cfg.Alerting.Webhook.Enabled {
		notifiers = append(notifiers, alerting.NewWebhookNotifier(alerting.WebhookConfig{
			URL:     cfg.Alerting.Webhook.URL,
			Headers: cfg.Alerting.Webhook.Headers,
			Timeout: cfg.Alerting.Webhook.Timeout,
		}))
	}

	natsComponents, err := initNATS(cfg)
	if err != nil {
		return fmt.Errorf("init NATS: %w", err)
	}
	if natsComponents != nil {
		defer natsComponents.Shutdown(context.Background())
		if n := natsComponents.Notifier(); n != nil {
			notifiers = append(notifiers, n)
		}
	}

	dispatcher := alerting.NewDispatcher(bus, notifiers...)

	// Audit service and specialized loggers.
	opts := []audit.Option{audit.WithAlertPublisher(bus)}
	switch cfg.Audit.Mode {
	case "strict":
		opts = append(opts, audit.WithMode(audit.ModeStrict))
	case "best_effort":
		opts = append(opts, audit.WithMode(audit.ModeBestEffort))
	}
	svc := audit.NewService(store, opts...)

	usage := perf.NewLogger(svc, cfg.Perf.Thresholds)
	builder := reports.NewBuilder(store)

	// HTTP surface.
	handler := api.NewHandler(svc, builder, hub, pinger)
	router := api.NewRouter(handler, cfg.API, usage)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Supervision tree.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddMessagingService(&supervisor.RunFunc{ServiceName: "websocket-hub", Run: hub.Run})
	tree.AddMessagingService(&supervisor.RunFunc{ServiceName: "alert-dispatcher", Run: dispatcher.Run})
	tree.AddMessagingService(supervisor.NewRetentionService(svc, cfg.Audit.RetentionDays, cfg.Audit.CleanupInterval))
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)
	logging.Info().Str("addr", server.Addr).Msg("CaseTrail ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutting down")
		cancel()
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
		case <-time.After(cfg.Server.ShutdownTimeout + 5*time.Second):
			if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
				for _, s := range report {
					logging.Warn().Str("service", s.Name).Msg("Service did not stop in time")
				}
			}
			return fmt.Errorf("shutdown timed out")
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}
