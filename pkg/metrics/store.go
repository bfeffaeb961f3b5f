// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/apimachinery/pkg/fields"

	"github.com/stacklok/toolhive-core/httperr"

	"github.com/stacklok/configsvc/pkg/configmaps"
)

// Store operation labels.
const (
	opCreate         = "create"
	opGet            = "get"
	opList           = "list"
	opListBySelector = "list_by_selector"
	opPatch          = "patch"
	opDelete         = "delete"
)

type instrumentedStore struct {
	next    configmaps.Store
	metrics *Metrics
}

// InstrumentStore wraps store so every call is counted, timed and traced.
// The outcome is recorded as the HTTP status code the error maps to.
func (m *Metrics) InstrumentStore(store configmaps.Store) configmaps.Store {
	return &instrumentedStore{next: store, metrics: m}
}

// start opens a client span for operation. The returned func ends it and
// records the call.
func (s *instrumentedStore) start(
	ctx context.Context, operation, namespace, name string,
) (context.Context, func(error)) {
	attrs := []attribute.KeyValue{attribute.String("k8s.namespace.name", namespace)}
	if name != "" {
		attrs = append(attrs, attribute.String("k8s.configmap.name", name))
	}
	ctx, span := s.metrics.tracer.Start(ctx, "configmaps."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	started := time.Now()

	return ctx, func(err error) {
		defer span.End()

		code := http.StatusOK
		if err != nil {
			code = httperr.Code(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int("http.status_code", code))
		s.metrics.observeStoreCall(ctx, operation, code, time.Since(started))
	}
}

func (s *instrumentedStore) Create(ctx context.Context, namespace string, cfg configmaps.Config) (configmaps.Config, error) {
	ctx, done := s.start(ctx, opCreate, namespace, cfg.Name)
	created, err := s.next.Create(ctx, namespace, cfg)
	done(err)
	return created, err
}

func (s *instrumentedStore) Get(ctx context.Context, namespace, name string) (configmaps.Config, error) {
	ctx, done := s.start(ctx, opGet, namespace, name)
	cfg, err := s.next.Get(ctx, namespace, name)
	done(err)
	return cfg, err
}

func (s *instrumentedStore) List(ctx context.Context, namespace string) ([]configmaps.Config, error) {
	ctx, done := s.start(ctx, opList, namespace, "")
	items, err := s.next.List(ctx, namespace)
	done(err)
	return items, err
}

func (s *instrumentedStore) ListBySelector(
	ctx context.Context, namespace string, selector fields.Selector,
) ([]configmaps.Config, error) {
	ctx, done := s.start(ctx, opListBySelector, namespace, "")
	items, err := s.next.ListBySelector(ctx, namespace, selector)
	done(err)
	return items, err
}

func (s *instrumentedStore) Patch(
	ctx context.Context, namespace, name string, data map[string]string,
) (configmaps.Config, error) {
	ctx, done := s.start(ctx, opPatch, namespace, name)
	cfg, err := s.next.Patch(ctx, namespace, name, data)
	done(err)
	return cfg, err
}

func (s *instrumentedStore) Delete(ctx context.Context, namespace, name string) error {
	ctx, done := s.start(ctx, opDelete, namespace, name)
	err := s.next.Delete(ctx, namespace, name)
	done(err)
	return err
}
