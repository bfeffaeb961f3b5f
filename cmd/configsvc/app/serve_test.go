// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/configsvc/pkg/config"
)

func TestNewInstrumentation(t *testing.T) { //nolint:paralleltest // may replace the global tracer provider
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{
			name: "metrics only",
			cfg:  &config.Config{EnableMetrics: true, TracingSamplingRate: config.DefaultTracingSamplingRate},
		},
		{
			name: "metrics and span export",
			cfg: &config.Config{
				EnableMetrics:       true,
				OTLPEndpoint:        "localhost:4318",
				OTLPInsecure:        true,
				TracingSamplingRate: 1,
			},
		},
	}

	for _, tt := range tests { //nolint:paralleltest // may replace the global tracer provider
		t.Run(tt.name, func(t *testing.T) {
			m, cleanup, err := newInstrumentation(context.Background(), tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, m)
			require.NotNil(t, cleanup)
			assert.NotNil(t, m.Handler())
			cleanup()
		})
	}
}
