// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/toolhive-core/httperr"

	apierrors "github.com/stacklok/configsvc/pkg/api/errors"
	"github.com/stacklok/configsvc/pkg/configmaps"
	"github.com/stacklok/configsvc/pkg/logger"
	"github.com/stacklok/configsvc/pkg/validation"
)

// ConfigsRoutes defines the routes for ConfigMap management.
type ConfigsRoutes struct {
	store     configmaps.Store
	namespace string
}

// ConfigsRouter creates a router for ConfigMaps in namespace.
func ConfigsRouter(store configmaps.Store, namespace string) http.Handler {
	routes := ConfigsRoutes{
		store:     store,
		namespace: namespace,
	}

	r := chi.NewRouter()
	r.Get("/", apierrors.ErrorHandler(routes.listConfigs))
	r.Post("/", apierrors.ErrorHandler(routes.createConfig))
	r.Get("/{name}", apierrors.ErrorHandler(routes.getConfig))
	r.Patch("/{name}", apierrors.ErrorHandler(routes.patchConfig))
	r.Delete("/{name}", apierrors.ErrorHandler(routes.deleteConfig))

	return r
}

// listConfigs
//
//	@Summary		List ConfigMaps
//	@Description	List every ConfigMap in the operating namespace
//	@Tags			configs
//	@Produce		json
//	@Success		200	{object}	configListResponse
//	@Failure		503	{object}	apierrors.Response	"Service Unavailable"
//	@Failure		504	{object}	apierrors.Response	"Gateway Timeout"
//	@Router			/configs [get]
func (s *ConfigsRoutes) listConfigs(w http.ResponseWriter, r *http.Request) error {
	items, err := s.store.List(r.Context(), s.namespace)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, newConfigListResponse(items))
	return nil
}

// createConfig
//
//	@Summary		Create a ConfigMap
//	@Description	Create a ConfigMap whose data is the request metadata
//	@Tags			configs
//	@Accept			json
//	@Produce		json
//	@Param			request	body		createConfigRequest	true	"ConfigMap to create"
//	@Success		200		{object}	messageResponse
//	@Failure		400		{object}	apierrors.Response	"Bad Request"
//	@Failure		409		{object}	apierrors.Response	"Conflict"
//	@Failure		503		{object}	apierrors.Response	"Service Unavailable"
//	@Router			/configs [post]
func (s *ConfigsRoutes) createConfig(w http.ResponseWriter, r *http.Request) error {
	var req createConfigRequest
	if err := decodeJSONBody(r, &req); err != nil {
		return err
	}
	if err := s.validateCreateRequest(req); err != nil {
		return httperr.WithCode(err, http.StatusBadRequest)
	}

	created, err := s.store.Create(r.Context(), s.namespace, configmaps.Config{
		Name: req.Name,
		Data: req.Metadata,
	})
	if err != nil {
		return err
	}

	logger.Infow("created config map",
		"namespace", created.Namespace,
		"name", created.Name,
		"keys", len(created.Data),
	)
	writeJSON(w, http.StatusOK, messageResponse{Message: msgConfigCreated})
	return nil
}

func (s *ConfigsRoutes) validateCreateRequest(req createConfigRequest) error {
	if err := validation.ValidateConfigName(req.Name); err != nil {
		return err
	}
	if err := validation.ValidateNamespace(req.Namespace); err != nil {
		return err
	}
	if req.Namespace != s.namespace {
		return fmt.Errorf("namespace %q is not served; expected %q", req.Namespace, s.namespace)
	}
	if req.Metadata == nil {
		return errors.New("metadata is required")
	}
	return validation.ValidateDataKeys(req.Metadata)
}

// getConfig
//
//	@Summary		Get a ConfigMap
//	@Description	Get a ConfigMap by name
//	@Tags			configs
//	@Produce		json
//	@Param			name	path		string	true	"ConfigMap name"
//	@Success		200		{object}	configmaps.Config
//	@Failure		400		{object}	apierrors.Response	"Bad Request"
//	@Failure		404		{object}	apierrors.Response	"Not Found"
//	@Failure		503		{object}	apierrors.Response	"Service Unavailable"
//	@Router			/configs/{name} [get]
func (s *ConfigsRoutes) getConfig(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")
	if err := validation.ValidateConfigName(name); err != nil {
		return httperr.WithCode(err, http.StatusBadRequest)
	}

	cfg, err := s.store.Get(r.Context(), s.namespace, name)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, cfg)
	return nil
}

// patchConfig
//
//	@Summary		Update a ConfigMap
//	@Description	Merge the request metadata into the data of a ConfigMap
//	@Tags			configs
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string				true	"ConfigMap name"
//	@Param			request	body		patchConfigRequest	true	"Keys to merge"
//	@Success		200		{object}	messageResponse
//	@Failure		400		{object}	apierrors.Response	"Bad Request"
//	@Failure		404		{object}	apierrors.Response	"Not Found"
//	@Failure		503		{object}	apierrors.Response	"Service Unavailable"
//	@Router			/configs/{name} [patch]
func (s *ConfigsRoutes) patchConfig(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")
	if err := validation.ValidateConfigName(name); err != nil {
		return httperr.WithCode(err, http.StatusBadRequest)
	}

	var req patchConfigRequest
	if err := decodeJSONBody(r, &req); err != nil {
		return err
	}
	if req.Metadata == nil {
		return httperr.WithCode(errors.New("metadata is required"), http.StatusBadRequest)
	}
	if err := validation.ValidateDataKeys(req.Metadata); err != nil {
		return httperr.WithCode(err, http.StatusBadRequest)
	}

	if _, err := s.store.Patch(r.Context(), s.namespace, name, req.Metadata); err != nil {
		return err
	}

	logger.Infow("updated config map", "namespace", s.namespace, "name", name, "keys", len(req.Metadata))
	writeJSON(w, http.StatusOK, messageResponse{Message: msgConfigUpdated})
	return nil
}

// deleteConfig
//
//	@Summary		Delete a ConfigMap
//	@Description	Delete a ConfigMap by name
//	@Tags			configs
//	@Param			name	path		string	true	"ConfigMap name"
//	@Success		204		{string}	string	"No Content"
//	@Failure		400		{object}	apierrors.Response	"Bad Request"
//	@Failure		404		{object}	apierrors.Response	"Not Found"
//	@Failure		503		{object}	apierrors.Response	"Service Unavailable"
//	@Router			/configs/{name} [delete]
func (s *ConfigsRoutes) deleteConfig(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")
	if err := validation.ValidateConfigName(name); err != nil {
		return httperr.WithCode(err, http.StatusBadRequest)
	}

	if err := s.store.Delete(r.Context(), s.namespace, name); err != nil {
		return err
	}

	logger.Infow("deleted config map", "namespace", s.namespace, "name", name)
	w.WriteHeader(http.StatusNoContent)
	return nil
}
