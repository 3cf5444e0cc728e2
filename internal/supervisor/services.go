// CaseTrail - Legal Aid Platform Audit and Observability Service
// Copyright 2026 BTheCoderr
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BTheCoderr/casetrail

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/BTheCoderr/casetrail/internal/logging"
)

// HTTPServer matches the *http.Server lifecycle methods the wrapper
// needs.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService adapts http.Server's blocking ListenAndServe to suture's
// context-aware Serve.
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPService wraps an HTTP server as a supervised service.
func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service. http.ErrServerClosed is expected on
// shutdown and converted to nil.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		// The original context is already canceled, shutdown needs its
		// own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	}
}

func (s *HTTPService) String() string { return "http-server" }

// RunFunc adapts a blocking func(ctx) error, like the alert dispatcher
// or the websocket hub run loop, to a named suture service.
type RunFunc struct {
	ServiceName string
	Run         func(ctx context.Context) error
}

// Serve implements suture.Service.
func (r *RunFunc) Serve(ctx context.Context) error {
	return r.Run(ctx)
}

func (r *RunFunc) String() string { return r.ServiceName }

// Purger deletes audit events older than a cutoff.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionService periodically purges events older than the retention
// window.
type RetentionService struct {
	purger    Purger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewRetentionService creates the retention loop. retentionDays must be
// positive; interval defaults to six hours.
func NewRetentionService(purger Purger, retentionDays int, interval time.Duration) *RetentionService {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &RetentionService{
		purger:    purger,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		interval:  interval,
		now:       time.Now,
	}
}

// Serve implements suture.Service. The first purge runs immediately so
// a restart does not postpone overdue cleanup by a full interval.
func (s *RetentionService) Serve(ctx context.Context) error {
	s.purge(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.purge(ctx)
		}
	}
}

func (s *RetentionService) purge(ctx context.Context) {
	cutoff := s.now().Add(-s.retention)
	deleted, err := s.purger.PurgeBefore(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Time("cutoff", cutoff).Msg("Retention purge failed")
		return
	}
	if deleted > 0 {
		logging.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Retention purge complete")
	}
}

func (s *RetentionService) String() string { return "retention" }
