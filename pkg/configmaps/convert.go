// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package configmaps

import (
	"maps"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// FromConfigMap converts a Kubernetes ConfigMap into a Config.
// Data is always non-nil so it serializes as an object.
func FromConfigMap(cm *corev1.ConfigMap) Config {
	cfg := Config{
		Name:            cm.Name,
		Namespace:       cm.Namespace,
		UID:             string(cm.UID),
		ResourceVersion: cm.ResourceVersion,
		Labels:          maps.Clone(cm.Labels),
		Annotations:     maps.Clone(cm.Annotations),
		Data:            make(map[string]string, len(cm.Data)),
	}
	maps.Copy(cfg.Data, cm.Data)

	if !cm.CreationTimestamp.IsZero() {
		created := cm.CreationTimestamp.UTC()
		cfg.CreationTimestamp = &created
	}

	return cfg
}

// FromConfigMapList converts the items of a ConfigMapList, keeping their order.
func FromConfigMapList(list *corev1.ConfigMapList) []Config {
	result := make([]Config, 0, len(list.Items))
	for i := range list.Items {
		result = append(result, FromConfigMap(&list.Items[i]))
	}
	return result
}

// toConfigMap builds the ConfigMap sent to the cluster on create.
// Store assigned fields (UID, ResourceVersion, CreationTimestamp) are not sent.
func toConfigMap(namespace string, cfg Config) *corev1.ConfigMap {
	data := make(map[string]string, len(cfg.Data))
	maps.Copy(data, cfg.Data)

	return &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "v1",
			Kind:       "ConfigMap",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:        cfg.Name,
			Namespace:   namespace,
			Labels:      maps.Clone(cfg.Labels),
			Annotations: maps.Clone(cfg.Annotations),
		},
		Data: data,
	}
}
