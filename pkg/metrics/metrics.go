// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package metrics instruments the HTTP API and the ConfigMap store with
// OpenTelemetry meters and spans, exported in the Prometheus format.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/stacklok/configsvc/pkg/metrics"

// unmatchedRoute labels requests that did not match any route, keeping
// label cardinality bounded.
const unmatchedRoute = "unmatched"

// storeDurationBuckets covers 5ms to roughly 10s, doubling each step.
var storeDurationBuckets = prometheus.ExponentialBuckets(0.005, 2, 12)

// Metrics holds the instruments for one server instance.
type Metrics struct {
	registry      *prometheus.Registry
	meterProvider *sdkmetric.MeterProvider
	tracer        trace.Tracer

	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
	storeCalls      metric.Int64Counter
	storeDuration   metric.Float64Histogram
}

type options struct {
	tracerProvider trace.TracerProvider
}

// Option configures New.
type Option func(*options)

// WithTracerProvider sets the provider spans are started from. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// New creates a Metrics backed by its own Prometheus registry. Go runtime
// and process collectors are registered alongside the service metrics.
func New(opts ...Option) (*Metrics, error) {
	o := options{tracerProvider: otel.GetTracerProvider()}
	for _, opt := range opts {
		opt(&o)
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	exporter, err := otelprometheus.New(
		otelprometheus.WithRegisterer(registry),
		otelprometheus.WithoutTargetInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := meterProvider.Meter(instrumentationName)

	m := &Metrics{
		registry:      registry,
		meterProvider: meterProvider,
		tracer:        o.tracerProvider.Tracer(instrumentationName),
	}

	// The exporter adds the _total and _seconds suffixes.
	if m.requestCounter, err = meter.Int64Counter(
		"configsvc_http_requests",
		metric.WithDescription("Total number of HTTP requests by method, route and status code"),
	); err != nil {
		return nil, err
	}
	if m.requestDuration, err = meter.Float64Histogram(
		"configsvc_http_request_duration",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(prometheus.DefBuckets...),
	); err != nil {
		return nil, err
	}
	if m.storeCalls, err = meter.Int64Counter(
		"configsvc_store_calls",
		metric.WithDescription("Total number of ConfigMap store calls by operation and resulting status code"),
	); err != nil {
		return nil, err
	}
	if m.storeDuration, err = meter.Float64Histogram(
		"configsvc_store_call_duration",
		metric.WithDescription("ConfigMap store call latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(storeDurationBuckets...),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// Shutdown stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.meterProvider.Shutdown(ctx)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          m.registry,
	})
}

// Middleware records request counts and latency and wraps each request in a
// server span. Routes are labeled by their chi pattern, so it must run inside
// a chi router.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := m.tracer.Start(r.Context(), "HTTP "+r.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)

		span.SetName(r.Method + " " + route)
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}

		m.requestCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", route),
			attribute.String("code", strconv.Itoa(status)),
		))
		m.requestDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", route),
		))
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return unmatchedRoute
}

func (m *Metrics) observeStoreCall(ctx context.Context, operation string, code int, elapsed time.Duration) {
	m.storeCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("code", strconv.Itoa(code)),
	))
	m.storeDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}
