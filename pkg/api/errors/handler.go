// Package errors provides HTTP error handling utilities for the API.
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/stacklok/toolhive-core/httperr"

	"github.com/stacklok/configsvc/pkg/logger"
)

// HandlerWithError is an HTTP handler that can return an error.
// Handlers return errors carrying a status code (see httperr.WithCode)
// instead of writing error responses themselves.
type HandlerWithError func(http.ResponseWriter, *http.Request) error

// Response is the JSON body written for every failed request.
//
//	@Description	Error response
type Response struct {
	// Error describes what went wrong
	Error string `json:"error"`
}

// serverErrorMessages are the only texts returned for 5xx responses.
var serverErrorMessages = map[int]string{
	http.StatusServiceUnavailable: "config store unavailable",
	http.StatusGatewayTimeout:     "config store request timed out",
}

// ErrorHandler wraps a HandlerWithError and converts returned errors
// into JSON error responses.
//
//   - No error: the handler already wrote the response.
//   - 5xx: the full error is logged, the client gets a fixed message.
//   - 4xx: the error message is returned to the client.
//
// Usage:
//
//	r.Get("/{name}", apierrors.ErrorHandler(routes.getConfig))
func ErrorHandler(fn HandlerWithError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		code := httperr.Code(err)
		message := err.Error()

		if code >= http.StatusInternalServerError {
			logger.Errorw("request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", code,
				"request_id", middleware.GetReqID(r.Context()),
				"error", err,
			)
			message = serverErrorMessage(code)
		} else {
			logger.Debugw("request rejected",
				"method", r.Method,
				"path", r.URL.Path,
				"status", code,
				"error", err,
			)
		}

		WriteError(w, code, message)
	}
}

// WriteError writes a JSON error body with the given status code.
func WriteError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(Response{Error: message}); err != nil {
		logger.Errorf("Failed to encode error response: %v", err)
	}
}

func serverErrorMessage(code int) string {
	if msg, ok := serverErrorMessages[code]; ok {
		return msg
	}
	return "internal server error"
}
