// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api contains the REST API for the config service.
package api

// The OpenAPI document is generated using "github.com/swaggo/swag/v2/cmd/swag@v2.0.0-rc4"
// To update the OpenAPI document, run:
// install swag:
//	go install github.com/swaggo/swag/v2/cmd/swag@v2.0.0-rc4
// generate the document:
//	swag init -g pkg/api/server.go --v3.1 -o docs/server

// @title           Config Service API
// @version         1.0
// @description     CRUD and search over Kubernetes ConfigMaps in a single namespace.

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	apierrors "github.com/stacklok/configsvc/pkg/api/errors"
	v1 "github.com/stacklok/configsvc/pkg/api/v1"
	"github.com/stacklok/configsvc/pkg/configmaps"
	"github.com/stacklok/configsvc/pkg/logger"
	"github.com/stacklok/configsvc/pkg/metrics"
)

const (
	// Each handler makes a single call to the API server, bounded by the
	// store's own timeout; this is the outer limit for the whole request.
	middlewareTimeout  = 30 * time.Second
	readHeaderTimeout  = 10 * time.Second
	readTimeout        = 15 * time.Second
	writeTimeout       = middlewareTimeout + 5*time.Second
	idleTimeout        = 60 * time.Second
	maxRequestBodySize = 1 << 20
	// GracefulTimeout is how long in-flight requests get to finish on shutdown.
	GracefulTimeout = 30 * time.Second
)

// RouterConfig holds the dependencies of the HTTP router.
type RouterConfig struct {
	// Store is the ConfigMap backend.
	Store configmaps.Store
	// Namespace is the only namespace served.
	Namespace string
	// Metrics enables request instrumentation and /metrics when non-nil.
	Metrics *metrics.Metrics
}

// NewRouter builds the HTTP handler serving the config service API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(
		loggingMiddleware,
		middleware.Timeout(middlewareTimeout),
		requestBodySizeLimitMiddleware(maxRequestBodySize),
		headersMiddleware,
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.WriteError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	routers := map[string]http.Handler{
		"/healthz":        v1.HealthcheckRouter(),
		"/version":        v1.VersionRouter(),
		"/configs":        v1.ConfigsRouter(cfg.Store, cfg.Namespace),
		"/config-service": v1.SearchRouter(cfg.Store, cfg.Namespace),
	}
	if cfg.Metrics != nil {
		routers["/metrics"] = cfg.Metrics.Handler()
	}

	for prefix, router := range routers {
		r.Mount(prefix, router)
	}

	return r
}

func setupTCPListener(address string) (net.Listener, error) {
	return net.Listen("tcp", address)
}

// Serve listens on address and serves handler until ctx is cancelled,
// then shuts down gracefully. The caller sets up signal handling.
func Serve(ctx context.Context, address string, handler http.Handler) error {
	listener, err := setupTCPListener(address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	return serve(ctx, listener, handler)
}

func serve(ctx context.Context, listener net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infow("starting HTTP server", "address", listener.Addr().String())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	})

	// Runs on cancellation of ctx or when Serve fails.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), GracefulTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		logger.Info("HTTP server stopped")
		return nil
	})

	return g.Wait()
}
