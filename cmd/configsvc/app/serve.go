// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"k8s.io/klog/v2"

	"github.com/stacklok/configsvc/pkg/api"
	"github.com/stacklok/configsvc/pkg/config"
	"github.com/stacklok/configsvc/pkg/configmaps"
	"github.com/stacklok/configsvc/pkg/k8s"
	"github.com/stacklok/configsvc/pkg/logger"
	"github.com/stacklok/configsvc/pkg/metrics"
	"github.com/stacklok/configsvc/pkg/versions"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the config service HTTP server",
		Long: `Start the HTTP server. ConfigMaps are read from and written to a single
namespace, discovered from the pod environment unless --namespace is set.
The listen port is taken from --port or SERVE_PORT.`,
		RunE: runServe,
	}

	cmd.Flags().String(config.KeyPort, "", "Port to listen on (env "+config.EnvPort+")")
	cmd.Flags().String(config.KeyNamespace, "", "Namespace to serve (env "+config.EnvNamespace+")")
	cmd.Flags().String(config.KeyKubeconfig, "", "Path to a kubeconfig file; empty uses in-cluster credentials")
	cmd.Flags().Duration(config.KeyRequestTimeout, config.DefaultRequestTimeout,
		"Timeout for each call to the Kubernetes API (env "+config.EnvRequestTimeout+")")
	cmd.Flags().Bool(config.KeyEnableMetrics, true, "Serve Prometheus metrics on /metrics")
	cmd.Flags().String(config.KeyOTLPEndpoint, "",
		"OTLP/HTTP collector (host:port) to export spans to (env "+config.EnvOTLPEndpoint+")")
	cmd.Flags().Bool(config.KeyOTLPInsecure, false, "Export spans without TLS")
	cmd.Flags().Float64(config.KeyTracingSamplingRate, config.DefaultTracingSamplingRate,
		"Fraction of traces to export, between 0 and 1")

	for _, name := range []string{
		config.KeyPort,
		config.KeyNamespace,
		config.KeyKubeconfig,
		config.KeyRequestTimeout,
		config.KeyEnableMetrics,
		config.KeyOTLPEndpoint,
		config.KeyOTLPInsecure,
		config.KeyTracingSamplingRate,
	} {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			logger.Fatalf("Failed to bind %s flag: %v", name, err)
		}
	}
	if err := config.BindEnv(viper.GetViper()); err != nil {
		logger.Fatalf("Failed to bind environment: %v", err)
	}

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// client-go logs through klog; route it to the service logger.
	klog.SetLogger(logger.NewLogr())

	clientset, _, err := k8s.NewClient(cfg.Kubeconfig, "configsvc/"+versions.GetVersionInfo().Version)
	if err != nil {
		return err
	}

	kubeStore := configmaps.NewKubeStore(clientset, configmaps.WithCallTimeout(cfg.RequestTimeout))
	if err := checkAccess(ctx, kubeStore, cfg.Namespace); err != nil {
		return err
	}

	routerCfg := api.RouterConfig{
		Store:     kubeStore,
		Namespace: cfg.Namespace,
	}
	if cfg.EnableMetrics {
		m, cleanup, err := newInstrumentation(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		routerCfg.Metrics = m
		routerCfg.Store = m.InstrumentStore(kubeStore)
	} else if cfg.OTLPEndpoint != "" {
		logger.Warnf("%s is ignored while metrics are disabled", config.KeyOTLPEndpoint)
	}

	logger.Infow("starting config service",
		"address", cfg.Address(),
		"namespace", cfg.Namespace,
		"request_timeout", cfg.RequestTimeout,
		"metrics", cfg.EnableMetrics,
		"otlp_endpoint", cfg.OTLPEndpoint,
	)

	return api.Serve(ctx, cfg.Address(), api.NewRouter(routerCfg))
}

// newInstrumentation builds the meters and, when an OTLP endpoint is set, the
// span exporter. cleanup flushes both.
func newInstrumentation(ctx context.Context, cfg *config.Config) (*metrics.Metrics, func(), error) {
	tracerProvider, shutdownTracing, err := metrics.NewTracerProvider(ctx, metrics.TracingConfig{
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		SamplingRate:   cfg.TracingSamplingRate,
		ServiceVersion: versions.GetVersionInfo().Version,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	if shutdownTracing != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	m, err := metrics.New(metrics.WithTracerProvider(tracerProvider))
	if err != nil {
		if shutdownTracing != nil {
			_ = shutdownTracing(ctx)
		}
		return nil, nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	cleanup := func() {
		shutdownCtx := context.WithoutCancel(ctx)
		if err := m.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("failed to shut down metrics: %v", err)
		}
		if shutdownTracing != nil {
			if err := shutdownTracing(shutdownCtx); err != nil {
				logger.Warnf("failed to shut down tracing: %v", err)
			}
		}
	}
	return m, cleanup, nil
}

// checkAccess fails fast when the service cannot list ConfigMaps, instead
// of starting and answering every request with 503.
func checkAccess(ctx context.Context, store *configmaps.KubeStore, namespace string) error {
	if err := store.Ping(ctx, namespace); err != nil {
		return fmt.Errorf("cannot access config maps: %w", err)
	}
	return nil
}
