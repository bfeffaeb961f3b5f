// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/configsvc/pkg/configmaps"
	"github.com/stacklok/configsvc/pkg/configmaps/configmapstest"
	"github.com/stacklok/configsvc/pkg/metrics"
)

const testNamespace = "default"

func newTestRouter(t *testing.T) (http.Handler, *metrics.Metrics) {
	t.Helper()
	m, err := metrics.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	store := m.InstrumentStore(configmaps.NewKubeStore(configmapstest.NewClientset()))
	return NewRouter(RouterConfig{
		Store:     store,
		Namespace: testNamespace,
		Metrics:   m,
	}), m
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_ConfigLifecycle(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/configs",
		`{"name":"cfg1","namespace":"default","metadata":{"k":"v"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"config map created"}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/configs/cfg1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got configmaps.Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "cfg1", got.Name)
	assert.Equal(t, testNamespace, got.Namespace)
	assert.Equal(t, map[string]string{"k": "v"}, got.Data)

	rec = do(t, router, http.MethodPost, "/configs",
		`{"name":"cfg1","namespace":"default","metadata":{"other":"x"}}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"config map already exists"}`, rec.Body.String())

	rec = do(t, router, http.MethodPatch, "/configs/cfg1", `{"metadata":{"b":"2"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"config map updated successfully"}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/configs/cfg1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, map[string]string{"k": "v", "b": "2"}, got.Data)

	rec = do(t, router, http.MethodGet, "/configs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []configmaps.Config `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "cfg1", list.Items[0].Name)

	rec = do(t, router, http.MethodDelete, "/configs/cfg1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/configs/cfg1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"config map not found"}`, rec.Body.String())

	rec = do(t, router, http.MethodDelete, "/configs/cfg1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Search(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	for _, name := range []string{"cfg1", "cfg2"} {
		rec := do(t, router, http.MethodPost, "/configs",
			`{"name":"`+name+`","namespace":"default","metadata":{"k":"v"}}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := do(t, router, http.MethodGet, "/config-service/search?metadata=cfg2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"items":[{"name":"cfg2","namespace":"default","data":{"k":"v"}}]}`,
		stripServerFields(t, rec.Body.Bytes()))

	rec = do(t, router, http.MethodGet, "/config-service/search?metadata=cfg3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/config-service/search", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"metadata query parameter is required"}`, rec.Body.String())
}

// stripServerFields drops fields assigned by the cluster so bodies can be
// compared literally.
func stripServerFields(t *testing.T, body []byte) string {
	t.Helper()
	var list struct {
		Items []configmaps.Config `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	for i := range list.Items {
		list.Items[i].UID = ""
		list.Items[i].ResourceVersion = ""
		list.Items[i].CreationTimestamp = nil
	}
	out, err := json.Marshal(list)
	require.NoError(t, err)
	return string(out)
}

func TestRouter_Plumbing(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "health",
			method:         http.MethodGet,
			path:           "/healthz",
			expectedStatus: http.StatusOK,
			expectedBody:   `{"message":"healthy"}`,
		},
		{
			name:           "unknown route",
			method:         http.MethodGet,
			path:           "/nope",
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"error":"route not found"}`,
		},
		{
			name:           "unsupported method",
			method:         http.MethodPut,
			path:           "/configs/cfg1",
			body:           `{}`,
			expectedStatus: http.StatusMethodNotAllowed,
			expectedBody:   `{"error":"method not allowed"}`,
		},
		{
			name:           "oversized body",
			method:         http.MethodPost,
			path:           "/configs",
			body:           `{"name":"cfg1","namespace":"default","metadata":{"k":"` + strings.Repeat("x", maxRequestBodySize) + `"}}`,
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedBody:   `{"error":"request body too large"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(t, router, tt.method, tt.path, tt.body)
			require.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestRouter_Metrics(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/configs/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Regexp(t,
		regexp.MustCompile(`(?m)^configsvc_http_requests_total\{code="404",method="GET",.*route="/configs/\{name\}".*\} 1$`),
		body)
	assert.Regexp(t,
		regexp.MustCompile(`(?m)^configsvc_store_calls_total\{code="404",operation="get".*\} 1$`),
		body)
}

func TestRouter_MetricsDisabled(t *testing.T) {
	t.Parallel()
	router := NewRouter(RouterConfig{
		Store:     configmaps.NewKubeStore(configmapstest.NewClientset()),
		Namespace: testNamespace,
	})

	rec := do(t, router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, listener, router) }()

	url := "http://" + listener.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:gosec,noctx // test server address
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(GracefulTimeout):
		t.Fatal("server did not shut down")
	}
}

func TestServe_InvalidAddress(t *testing.T) {
	t.Parallel()
	err := Serve(context.Background(), "not-an-address", http.NotFoundHandler())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
