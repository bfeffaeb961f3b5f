// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"reflect"
	"slices"
	"strings"

	"github.com/stacklok/toolhive-core/httperr"

	"github.com/stacklok/configsvc/pkg/logger"
)

// decodeJSONBody decodes a single JSON object from the request body into v,
// which must point to a struct. Unknown fields, fields whose name differs
// from the json tag only in case, and trailing data are rejected.
func decodeJSONBody(r *http.Request, v any) error {
	if r.Body == nil {
		return httperr.WithCode(errors.New("request body is required"), http.StatusBadRequest)
	}

	var raw json.RawMessage
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&raw); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			return httperr.WithCode(errors.New("request body too large"), http.StatusRequestEntityTooLarge)
		case errors.Is(err, io.EOF):
			return httperr.WithCode(errors.New("request body is required"), http.StatusBadRequest)
		default:
			return httperr.WithCode(fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		}
	}

	if dec.More() {
		return httperr.WithCode(errors.New("invalid request body: unexpected data after JSON object"), http.StatusBadRequest)
	}

	// encoding/json matches field names case-insensitively.
	if name, ok := firstUnknownField(raw, v); ok {
		return httperr.WithCode(fmt.Errorf("invalid request body: json: unknown field %q", name), http.StatusBadRequest)
	}

	strict := json.NewDecoder(bytes.NewReader(raw))
	strict.DisallowUnknownFields()
	if err := strict.Decode(v); err != nil {
		return httperr.WithCode(fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
	}
	return nil
}

// firstUnknownField returns the first top-level key, in sorted order, of raw that is not the
// exact json name of a field of the struct v points to. Bodies that are not
// objects are left to the strict decoder to reject.
func firstUnknownField(raw json.RawMessage, v any) (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", false
	}

	known := jsonFieldNames(reflect.TypeOf(v))
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if _, ok := known[name]; !ok {
			return name, true
		}
	}
	return "", false
}

func jsonFieldNames(t reflect.Type) map[string]struct{} {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	names := make(map[string]struct{})
	if t.Kind() != reflect.Struct {
		return names
	}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		names[name] = struct{}{}
	}
	return names
}

// writeJSON writes body as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers are already sent, nothing left to tell the client.
		logger.Errorf("Failed to encode response: %v", err)
	}
}
