// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package configmaps

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/stacklok/toolhive-core/httperr"

	"github.com/stacklok/configsvc/pkg/logger"
)

var (
	// ErrNotFound is returned when the ConfigMap does not exist.
	ErrNotFound = httperr.WithCode(
		errors.New("config map not found"),
		http.StatusNotFound,
	)

	// ErrAlreadyExists is returned when creating a ConfigMap whose name is taken.
	ErrAlreadyExists = httperr.WithCode(
		errors.New("config map already exists"),
		http.StatusConflict,
	)

	// ErrInvalid is returned when the cluster rejects the ConfigMap as invalid.
	ErrInvalid = httperr.WithCode(
		errors.New("config map rejected as invalid"),
		http.StatusBadRequest,
	)

	// ErrUnavailable is returned when the cluster cannot be reached or refuses
	// the service's credentials.
	ErrUnavailable = httperr.WithCode(
		errors.New("config store unavailable"),
		http.StatusServiceUnavailable,
	)

	// ErrTimeout is returned when a call to the cluster exceeds its deadline.
	ErrTimeout = httperr.WithCode(
		errors.New("config store request timed out"),
		http.StatusGatewayTimeout,
	)
)

// translateError maps an error from the Kubernetes API to one of the package sentinels.
// Client errors are returned as bare sentinels so no cluster text reaches callers;
// the original error is logged. Server side failures keep the cause for logging.
func translateError(op, namespace, name string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case apierrors.IsNotFound(err):
		logger.Debugw("config map not found", "op", op, "namespace", namespace, "name", name, "error", err)
		return ErrNotFound
	case apierrors.IsAlreadyExists(err):
		logger.Debugw("config map already exists", "op", op, "namespace", namespace, "name", name, "error", err)
		return ErrAlreadyExists
	case apierrors.IsInvalid(err), apierrors.IsBadRequest(err):
		logger.Warnw("config map rejected by cluster", "op", op, "namespace", namespace, "name", name, "error", err)
		return ErrInvalid
	case errors.Is(err, context.DeadlineExceeded), apierrors.IsTimeout(err), apierrors.IsServerTimeout(err):
		return httperr.WithCode(
			fmt.Errorf("%w: %s %s/%s: %w", ErrTimeout, op, namespace, name, err),
			http.StatusGatewayTimeout,
		)
	case apierrors.IsUnauthorized(err), apierrors.IsForbidden(err),
		apierrors.IsServiceUnavailable(err), apierrors.IsTooManyRequests(err),
		!isAPIStatus(err):
		return httperr.WithCode(
			fmt.Errorf("%w: %s %s/%s: %w", ErrUnavailable, op, namespace, name, err),
			http.StatusServiceUnavailable,
		)
	default:
		return httperr.WithCode(
			fmt.Errorf("unexpected error during %s %s/%s: %w", op, namespace, name, err),
			http.StatusInternalServerError,
		)
	}
}

// isAPIStatus reports whether err came back from the API server as a Status
// rather than failing in transport.
func isAPIStatus(err error) bool {
	var status apierrors.APIStatus
	return errors.As(err, &status)
}
