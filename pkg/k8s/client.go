// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package k8s builds the Kubernetes client used by configsvc and discovers
// the namespace it operates in.
package k8s

import (
	"errors"
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// configLoader abstracts the two ways of obtaining a rest.Config so the
// selection logic can be tested without a cluster.
type configLoader interface {
	inClusterConfig() (*rest.Config, error)
	kubeconfigConfig(path string) (*rest.Config, error)
}

type defaultConfigLoader struct{}

func (defaultConfigLoader) inClusterConfig() (*rest.Config, error) {
	return rest.InClusterConfig()
}

func (defaultConfigLoader) kubeconfigConfig(path string) (*rest.Config, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if path != "" {
		loadingRules.ExplicitPath = path
	}
	kubeConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{})
	return kubeConfig.ClientConfig()
}

// GetConfig returns the REST config for talking to the API server.
// An explicit kubeconfig path wins; otherwise the in-cluster service account
// is tried first and the default kubeconfig loading rules second.
func GetConfig(kubeconfig string) (*rest.Config, error) {
	return getConfigWithLoader(defaultConfigLoader{}, kubeconfig)
}

func getConfigWithLoader(loader configLoader, kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		config, err := loader.kubeconfigConfig(kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig %s: %w", kubeconfig, err)
		}
		return config, nil
	}

	config, inClusterErr := loader.inClusterConfig()
	if inClusterErr == nil {
		return config, nil
	}

	config, err := loader.kubeconfigConfig("")
	if err != nil {
		return nil, fmt.Errorf("no usable cluster credentials: %w", errors.Join(inClusterErr, err))
	}
	return config, nil
}

// NewClient loads credentials and creates a clientset.
// userAgent is sent with every request so API server audit logs identify the service.
func NewClient(kubeconfig, userAgent string) (kubernetes.Interface, *rest.Config, error) {
	config, err := GetConfig(kubeconfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kubernetes config: %w", err)
	}
	if userAgent != "" {
		config.UserAgent = userAgent
	}

	clientset, err := NewClientWithConfig(config)
	if err != nil {
		return nil, nil, err
	}
	return clientset, config, nil
}

// NewClientWithConfig creates a clientset from an existing config.
func NewClientWithConfig(config *rest.Config) (kubernetes.Interface, error) {
	if config == nil {
		return nil, fmt.Errorf("failed to create kubernetes client: config cannot be nil")
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return clientset, nil
}
