// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package configmaps provides access to ConfigMaps stored in a Kubernetes cluster.
//
// The Store interface is the single point of contact with the API server.
// Store errors are one of the sentinels declared in errors.go, each carrying
// the HTTP status code the API layer reports for it.
package configmaps

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/fields"
)

// Config is a ConfigMap as exposed to API callers.
//
//	@Description	A ConfigMap in the operating namespace
type Config struct {
	// Name of the ConfigMap
	Name string `json:"name"`
	// Namespace the ConfigMap lives in
	Namespace string `json:"namespace"`
	// UID assigned by the cluster
	UID string `json:"uid,omitempty"`
	// ResourceVersion assigned by the cluster
	ResourceVersion string `json:"resourceVersion,omitempty"`
	// CreationTimestamp assigned by the cluster
	CreationTimestamp *time.Time `json:"creationTimestamp,omitempty"`
	// Labels attached to the ConfigMap
	Labels map[string]string `json:"labels,omitempty"`
	// Annotations attached to the ConfigMap
	Annotations map[string]string `json:"annotations,omitempty"`
	// Data holds the key-value pairs of the ConfigMap
	Data map[string]string `json:"data"`
}

// Store defines the operations available on ConfigMaps.
//
//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store
type Store interface {
	// Create creates a ConfigMap. It returns ErrAlreadyExists if a ConfigMap
	// with the same name exists in the namespace.
	Create(ctx context.Context, namespace string, cfg Config) (Config, error)
	// Get returns the named ConfigMap or ErrNotFound.
	Get(ctx context.Context, namespace, name string) (Config, error)
	// List returns every ConfigMap in the namespace in the order the cluster returns them.
	List(ctx context.Context, namespace string) ([]Config, error)
	// ListBySelector returns the ConfigMaps matching the field selector.
	// No match yields an empty slice, not an error.
	ListBySelector(ctx context.Context, namespace string, selector fields.Selector) ([]Config, error)
	// Patch merges data into the data of the named ConfigMap.
	Patch(ctx context.Context, namespace, name string, data map[string]string) (Config, error)
	// Delete removes the named ConfigMap or returns ErrNotFound.
	Delete(ctx context.Context, namespace, name string) error
}

// NameSelector returns a field selector matching the ConfigMap with the given name.
// The value is escaped, so it cannot widen the selector with extra terms.
func NameSelector(name string) fields.Selector {
	return fields.OneTermEqualSelector("metadata.name", name)
}
