// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package configmaps

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"

	"github.com/stacklok/configsvc/pkg/logger"
)

// DefaultCallTimeout bounds a single call to the API server when no timeout is configured.
const DefaultCallTimeout = 10 * time.Second

// KubeStore implements Store on top of a Kubernetes clientset.
type KubeStore struct {
	clientset kubernetes.Interface
	timeout   time.Duration
}

var _ Store = (*KubeStore)(nil)

// Option configures a KubeStore.
type Option func(*KubeStore)

// WithCallTimeout sets the deadline applied to each call to the API server.
// Non-positive values leave the default in place.
func WithCallTimeout(timeout time.Duration) Option {
	return func(s *KubeStore) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// NewKubeStore creates a KubeStore using the provided clientset.
func NewKubeStore(clientset kubernetes.Interface, opts ...Option) *KubeStore {
	s := &KubeStore{
		clientset: clientset,
		timeout:   DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks that the cluster is reachable and the credentials may list
// ConfigMaps in the namespace.
func (s *KubeStore) Ping(ctx context.Context, namespace string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.clientset.CoreV1().ConfigMaps(namespace).List(ctx, metav1.ListOptions{Limit: 1})
	if err != nil {
		return fmt.Errorf("failed to list config maps in namespace %q: %w", namespace, err)
	}
	return nil
}

// Create creates the ConfigMap in namespace.
func (s *KubeStore) Create(ctx context.Context, namespace string, cfg Config) (Config, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	logger.Debugw("creating config map", "namespace", namespace, "name", cfg.Name, "keys", len(cfg.Data))

	created, err := s.clientset.CoreV1().ConfigMaps(namespace).Create(ctx, toConfigMap(namespace, cfg), metav1.CreateOptions{})
	if err != nil {
		return Config{}, translateError("create", namespace, cfg.Name, err)
	}
	return FromConfigMap(created), nil
}

// Get returns the named ConfigMap.
func (s *KubeStore) Get(ctx context.Context, namespace, name string) (Config, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cm, err := s.clientset.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return Config{}, translateError("get", namespace, name, err)
	}
	return FromConfigMap(cm), nil
}

// List returns every ConfigMap in namespace.
func (s *KubeStore) List(ctx context.Context, namespace string) ([]Config, error) {
	return s.list(ctx, namespace, metav1.ListOptions{})
}

// ListBySelector returns the ConfigMaps in namespace matching selector.
func (s *KubeStore) ListBySelector(ctx context.Context, namespace string, selector fields.Selector) ([]Config, error) {
	if selector == nil {
		selector = fields.Everything()
	}
	return s.list(ctx, namespace, metav1.ListOptions{FieldSelector: selector.String()})
}

func (s *KubeStore) list(ctx context.Context, namespace string, opts metav1.ListOptions) ([]Config, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	list, err := s.clientset.CoreV1().ConfigMaps(namespace).List(ctx, opts)
	if err != nil {
		return nil, translateError("list", namespace, opts.FieldSelector, err)
	}
	return FromConfigMapList(list), nil
}

// Patch merges data into the named ConfigMap using a strategic merge patch.
// Keys absent from data keep their current values.
func (s *KubeStore) Patch(ctx context.Context, namespace, name string, data map[string]string) (Config, error) {
	body, err := buildDataPatch(data)
	if err != nil {
		return Config{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	logger.Debugw("patching config map", "namespace", namespace, "name", name, "keys", len(data))

	patched, err := s.clientset.CoreV1().ConfigMaps(namespace).Patch(
		ctx, name, types.StrategicMergePatchType, body, metav1.PatchOptions{},
	)
	if err != nil {
		return Config{}, translateError("patch", namespace, name, err)
	}
	return FromConfigMap(patched), nil
}

// Delete removes the named ConfigMap.
func (s *KubeStore) Delete(ctx context.Context, namespace, name string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.clientset.CoreV1().ConfigMaps(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	return translateError("delete", namespace, name, err)
}

// dataPatch is the body of a patch touching only the data field.
type dataPatch struct {
	Data map[string]string `json:"data"`
}

func buildDataPatch(data map[string]string) ([]byte, error) {
	if data == nil {
		data = map[string]string{}
	}
	body, err := json.Marshal(dataPatch{Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to encode config map patch: %w", err)
	}
	return body, nil
}
