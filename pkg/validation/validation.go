// Package validation provides functions for validating input data.
package validation

import (
	"fmt"
	"sort"
	"strings"

	k8svalidation "k8s.io/apimachinery/pkg/util/validation"
)

// Rule descriptions returned to clients in place of the apimachinery messages.
const (
	subdomainRule = "must be lowercase alphanumerics, '-' or '.' of at most 253 characters"
	labelRule     = "must be lowercase alphanumerics or '-' of at most 63 characters"
	keyRule       = "must be alphanumerics, '-', '_' or '.' of at most 253 characters, other than '.' or '..'"
)

// ValidateConfigName validates that name is usable as a ConfigMap name,
// which Kubernetes requires to be a DNS-1123 subdomain.
func ValidateConfigName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	if errs := k8svalidation.IsDNS1123Subdomain(name); len(errs) > 0 {
		return fmt.Errorf("invalid config map name %q: %s", name, subdomainRule)
	}
	return nil
}

// ValidateNamespace validates that namespace is a DNS-1123 label.
func ValidateNamespace(namespace string) error {
	if strings.TrimSpace(namespace) == "" {
		return fmt.Errorf("namespace is required")
	}
	if errs := k8svalidation.IsDNS1123Label(namespace); len(errs) > 0 {
		return fmt.Errorf("invalid namespace %q: %s", namespace, labelRule)
	}
	return nil
}

// ValidateDataKeys validates every key of data against the ConfigMap key rules.
// Keys are checked in sorted order so the reported key is deterministic.
func ValidateDataKeys(data map[string]string) error {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if errs := k8svalidation.IsConfigMapKey(key); len(errs) > 0 {
			return fmt.Errorf("invalid metadata key %q: %s", key, keyRule)
		}
	}
	return nil
}

// ValidateSearchTerm validates a value used to search ConfigMaps by name.
// Only values that could be a ConfigMap name are accepted.
func ValidateSearchTerm(term string) error {
	if term == "" {
		return fmt.Errorf("metadata query parameter is required")
	}
	if strings.ContainsAny(term, "\x00\r\n") {
		return fmt.Errorf("metadata query parameter contains control characters")
	}
	if errs := k8svalidation.IsDNS1123Subdomain(term); len(errs) > 0 {
		return fmt.Errorf("invalid metadata query parameter %q: %s", term, subdomainRule)
	}
	return nil
}
