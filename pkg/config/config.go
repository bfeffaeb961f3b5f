// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the runtime configuration of the config service
// from flags and environment variables through viper.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stacklok/configsvc/pkg/k8s"
	"github.com/stacklok/configsvc/pkg/validation"
)

// Viper keys. Flags of the same name are bound to them by the serve command.
const (
	KeyPort           = "port"
	KeyNamespace      = "namespace"
	KeyKubeconfig     = "kubeconfig"
	KeyRequestTimeout = "request-timeout"
	KeyEnableMetrics  = "enable-metrics"
	KeyDebug          = "debug"

	KeyOTLPEndpoint        = "otlp-endpoint"
	KeyOTLPInsecure        = "otlp-insecure"
	KeyTracingSamplingRate = "tracing-sampling-rate"
)

// Environment variables backing the viper keys.
const (
	EnvPort           = "SERVE_PORT"
	EnvNamespace      = "CONFIGSVC_NAMESPACE"
	EnvKubeconfig     = "KUBECONFIG"
	EnvRequestTimeout = "CONFIGSVC_REQUEST_TIMEOUT"
	EnvEnableMetrics  = "CONFIGSVC_ENABLE_METRICS"

	EnvOTLPEndpoint        = "CONFIGSVC_OTLP_ENDPOINT"
	EnvOTLPInsecure        = "CONFIGSVC_OTLP_INSECURE"
	EnvTracingSamplingRate = "CONFIGSVC_TRACING_SAMPLING_RATE"
)

// DefaultRequestTimeout bounds each call to the API server.
const DefaultRequestTimeout = 10 * time.Second

// DefaultTracingSamplingRate is the fraction of traces exported.
const DefaultTracingSamplingRate = 0.05

// ErrPortRequired is returned when neither the flag nor SERVE_PORT sets a port.
var ErrPortRequired = errors.New("port is required: set --port or " + EnvPort)

// discoverNamespace is replaced in tests.
var discoverNamespace = k8s.DiscoverNamespace

// Config is the validated service configuration.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port int
	// Namespace is the only namespace the service reads and writes.
	Namespace string
	// Kubeconfig is an explicit kubeconfig path; empty means auto-detect.
	Kubeconfig string
	// RequestTimeout bounds every call to the API server.
	RequestTimeout time.Duration
	// EnableMetrics mounts /metrics when true.
	EnableMetrics bool
	// Debug enables debug logging.
	Debug bool
	// OTLPEndpoint is the OTLP/HTTP collector (host:port) spans are sent to.
	// Empty disables span export.
	OTLPEndpoint string
	// OTLPInsecure sends spans without TLS.
	OTLPInsecure bool
	// TracingSamplingRate is the fraction of traces exported.
	TracingSamplingRate float64
}

// Address returns the listen address for the HTTP server.
func (c *Config) Address() string {
	return net.JoinHostPort("", strconv.Itoa(c.Port))
}

// BindEnv binds the environment variables and defaults to v.
func BindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		KeyPort:           EnvPort,
		KeyNamespace:      EnvNamespace,
		KeyKubeconfig:     EnvKubeconfig,
		KeyRequestTimeout: EnvRequestTimeout,
		KeyEnableMetrics:  EnvEnableMetrics,

		KeyOTLPEndpoint:        EnvOTLPEndpoint,
		KeyOTLPInsecure:        EnvOTLPInsecure,
		KeyTracingSamplingRate: EnvTracingSamplingRate,
	}
	for key, envVar := range bindings {
		if err := v.BindEnv(key, envVar); err != nil {
			return fmt.Errorf("failed to bind %s to %s: %w", key, envVar, err)
		}
	}

	v.SetDefault(KeyRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(KeyEnableMetrics, true)
	v.SetDefault(KeyTracingSamplingRate, DefaultTracingSamplingRate)
	return nil
}

// Load reads and validates the configuration from v.
// When no namespace is configured it is discovered from the pod environment.
func Load(v *viper.Viper) (*Config, error) {
	port, err := parsePort(v.GetString(KeyPort))
	if err != nil {
		return nil, err
	}

	timeout := v.GetDuration(KeyRequestTimeout)
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid %s %q: must be a positive duration", KeyRequestTimeout, v.GetString(KeyRequestTimeout))
	}

	rate := v.GetFloat64(KeyTracingSamplingRate)
	if rate < 0 || rate > 1 {
		return nil, fmt.Errorf("invalid %s %q: must be between 0 and 1",
			KeyTracingSamplingRate, v.GetString(KeyTracingSamplingRate))
	}

	cfg := &Config{
		Port:                port,
		Namespace:           strings.TrimSpace(v.GetString(KeyNamespace)),
		Kubeconfig:          v.GetString(KeyKubeconfig),
		RequestTimeout:      timeout,
		EnableMetrics:       v.GetBool(KeyEnableMetrics),
		Debug:               v.GetBool(KeyDebug),
		OTLPEndpoint:        strings.TrimSpace(v.GetString(KeyOTLPEndpoint)),
		OTLPInsecure:        v.GetBool(KeyOTLPInsecure),
		TracingSamplingRate: rate,
	}

	if cfg.Namespace == "" {
		cfg.Namespace = discoverNamespace(cfg.Kubeconfig)
	}
	if err := validation.ValidateNamespace(cfg.Namespace); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parsePort(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrPortRequired
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q: must be a number between 1 and 65535", raw)
	}
	return port, nil
}
