// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/toolhive-core/httperr"

	apierrors "github.com/stacklok/configsvc/pkg/api/errors"
	"github.com/stacklok/configsvc/pkg/configmaps"
	"github.com/stacklok/configsvc/pkg/validation"
)

// SearchRoutes defines the routes for searching ConfigMaps.
type SearchRoutes struct {
	store     configmaps.Store
	namespace string
}

// SearchRouter creates a router for ConfigMap search in namespace.
func SearchRouter(store configmaps.Store, namespace string) http.Handler {
	routes := SearchRoutes{
		store:     store,
		namespace: namespace,
	}

	r := chi.NewRouter()
	r.Get("/search", apierrors.ErrorHandler(routes.searchConfigs))
	return r
}

// searchConfigs
//
//	@Summary		Search ConfigMaps
//	@Description	Find ConfigMaps whose name equals the metadata query parameter
//	@Tags			configs
//	@Produce		json
//	@Param			metadata	query		string	true	"ConfigMap name to match"
//	@Success		200			{object}	configListResponse
//	@Failure		400			{object}	apierrors.Response	"Bad Request"
//	@Failure		503			{object}	apierrors.Response	"Service Unavailable"
//	@Router			/config-service/search [get]
func (s *SearchRoutes) searchConfigs(w http.ResponseWriter, r *http.Request) error {
	term := r.URL.Query().Get("metadata")
	if err := validation.ValidateSearchTerm(term); err != nil {
		return httperr.WithCode(err, http.StatusBadRequest)
	}

	items, err := s.store.ListBySelector(r.Context(), s.namespace, configmaps.NameSelector(term))
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, newConfigListResponse(items))
	return nil
}
