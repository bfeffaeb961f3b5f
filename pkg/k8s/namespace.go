// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package k8s

import (
	"fmt"
	"os"
	"strings"

	"k8s.io/client-go/tools/clientcmd"

	"github.com/stacklok/toolhive-core/env"
)

const (
	// DefaultNamespace is used when no other source names a namespace.
	DefaultNamespace = "default"
	// serviceAccountNamespacePath is where Kubernetes mounts the pod namespace.
	serviceAccountNamespacePath = "/var/run/secrets/kubernetes.io/serviceaccount/namespace"
	// podNamespaceEnv is the conventional downward API variable.
	podNamespaceEnv = "POD_NAMESPACE"
)

// DiscoverNamespace returns the namespace the pod runs in.
// Sources, in order: the service account namespace file, POD_NAMESPACE,
// the current kubeconfig context, and finally "default".
func DiscoverNamespace(kubeconfig string) string {
	return discoverNamespace(&env.OSReader{}, serviceAccountNamespacePath, kubeconfig)
}

func discoverNamespace(envReader env.Reader, saPath, kubeconfig string) string {
	if ns, err := getNamespaceFromServiceAccountPath(saPath); err == nil {
		return ns
	}

	if ns, err := validateNamespaceValue(envReader.Getenv(podNamespaceEnv), podNamespaceEnv); err == nil {
		return ns
	}

	if ns, err := extractNamespaceFromKubeconfig(loadKubeconfigRaw(kubeconfig)); err == nil {
		return ns
	}

	return DefaultNamespace
}

func getNamespaceFromServiceAccountPath(path string) (string, error) {
	//nolint:gosec // G304: path is a constant outside tests
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read namespace file: %w", err)
	}
	return parseNamespaceFromFile(data)
}

// parseNamespaceFromFile trims trailing newlines only.
func parseNamespaceFromFile(data []byte) (string, error) {
	ns := strings.TrimRight(string(data), "\n\r")
	if ns == "" {
		return "", fmt.Errorf("namespace file is empty")
	}
	return ns, nil
}

func validateNamespaceValue(ns, source string) (string, error) {
	if ns == "" {
		return "", fmt.Errorf("%s environment variable not set", source)
	}
	return ns, nil
}

func loadKubeconfigRaw(kubeconfig string) clientcmd.ClientConfig {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules.ExplicitPath = kubeconfig
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{})
}

func extractNamespaceFromKubeconfig(kubeConfig clientcmd.ClientConfig) (string, error) {
	rawConfig, err := kubeConfig.RawConfig()
	if err != nil {
		return "", fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	currentContext := rawConfig.CurrentContext
	if currentContext == "" {
		return "", fmt.Errorf("no current context set in kubeconfig")
	}

	contextConfig, exists := rawConfig.Contexts[currentContext]
	if !exists {
		return "", fmt.Errorf("current context %q not found in kubeconfig", currentContext)
	}

	ns := strings.TrimSpace(contextConfig.Namespace)
	if ns == "" {
		return "", fmt.Errorf("no namespace set in current context %q", currentContext)
	}
	return ns, nil
}
