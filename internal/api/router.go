// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BTheCoderr/casetrail/internal/config"
	"github.com/BTheCoderr/casetrail/internal/middleware"
	"github.com/BTheCoderr/casetrail/internal/perf"
)

// Router assembles the HTTP routing tree.
type Router struct {
	handler *Handler
	cfg     config.APIConfig
	usage   *perf.Logger
}

// NewRouter creates a router over the given handler set. usage may be nil
// to disable API usage auditing.
func NewRouter(handler *Handler, cfg config.APIConfig, usage *perf.Logger) *Router {
	return &Router{handler: handler, cfg: cfg, usage: usage}
}

// Setup builds the chi routing tree with the full middleware stack.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints get permissive rate limiting so monitoring can
	// poll frequently.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/live", rt.handler.HealthLive)
		r.Get("/ready", rt.handler.HealthReady)
	})

	r.Route("/api/v1/audit", func(r chi.Router) {
		r.Use(rt.rateLimit())
		r.Use(rt.dataMiddleware()...)

		r.Get("/events", rt.handler.Events)
		r.Get("/events/count", rt.handler.EventCount)
		r.Get("/events/export", rt.handler.ExportEvents)
		r.Get("/stats", rt.handler.Stats)
		r.Get("/activities", rt.handler.UserActivities)
		r.Get("/security", rt.handler.SecurityEvents)
		r.Get("/performance", rt.handler.PerformanceMetrics)
		r.Get("/documents", rt.handler.DocumentAccesses)
		r.Get("/compliance", rt.handler.ComplianceRecords)
		r.Post("/compliance/{id}/complete", rt.handler.CompleteCompliance)
		r.Get("/api-usage", rt.handler.APIUsage)
	})

	r.Route("/api/v1/reports", func(r chi.Router) {
		r.Use(rt.rateLimit())
		r.Use(rt.dataMiddleware()...)

		r.Get("/access", rt.handler.AccessReport)
		r.Get("/modifications", rt.handler.ModificationReport)
		r.Get("/documents", rt.handler.DocumentReport)
		r.Get("/security", rt.handler.SecurityReport)
		r.Get("/activity", rt.handler.ActivityReport)
		r.Get("/performance", rt.handler.PerformanceReport)
	})

	r.Get("/ws", rt.handler.WebSocket)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (rt *Router) rateLimit() func(http.Handler) http.Handler {
	limit := rt.cfg.RateLimit
	window := rt.cfg.RateWindow
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return httprate.LimitByIP(limit, window)
}

// dataMiddleware is the stack for endpoints that read or mutate audit
// data: request capture, actor identification, metrics, and usage
// auditing.
func (rt *Router) dataMiddleware() []func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{
		middleware.AuditContext,
		middleware.ActorFromJWT(rt.cfg.JWTSecret),
		middleware.Prometheus,
	}
	if rt.usage != nil {
		mws = append(mws, middleware.APIUsage(rt.usage))
	}
	return mws
}
