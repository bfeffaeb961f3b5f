// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"github.com/stacklok/configsvc/pkg/configmaps"
)

// createConfigRequest represents the request to create a ConfigMap
//
//	@Description	Request to create a ConfigMap
type createConfigRequest struct {
	// Name of the ConfigMap
	Name string `json:"name"`
	// Namespace of the ConfigMap, must be the operating namespace
	Namespace string `json:"namespace"`
	// Key-value pairs stored as the ConfigMap data
	Metadata map[string]string `json:"metadata"`
}

// patchConfigRequest represents the request to merge keys into a ConfigMap
//
//	@Description	Request to merge key-value pairs into a ConfigMap
type patchConfigRequest struct {
	// Key-value pairs merged into the ConfigMap data
	Metadata map[string]string `json:"metadata"`
}

// messageResponse is the body of successful mutating requests
//
//	@Description	Confirmation message
type messageResponse struct {
	// Human readable outcome
	Message string `json:"message"`
}

// configListResponse represents the response for listing or searching ConfigMaps
//
//	@Description	Response containing a list of ConfigMaps
type configListResponse struct {
	// ConfigMaps in the order returned by the cluster
	Items []configmaps.Config `json:"items"`
}

func newConfigListResponse(items []configmaps.Config) configListResponse {
	if items == nil {
		items = []configmaps.Config{}
	}
	return configListResponse{Items: items}
}

const (
	msgConfigCreated = "config map created"
	msgConfigUpdated = "config map updated successfully"
	msgHealthy       = "healthy"
)
