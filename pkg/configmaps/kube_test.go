// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package configmaps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/stacklok/toolhive-core/httperr"

	"github.com/stacklok/configsvc/pkg/configmaps/configmapstest"
)

const testNamespace = "default"

func newConfigMap(name string, data map[string]string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: testNamespace,
		},
		Data: data,
	}
}

func TestKubeStore_CreateThenGet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data map[string]string
	}{
		{name: "single key", data: map[string]string{"k": "v"}},
		{name: "multiple keys", data: map[string]string{"a": "1", "b": "2", "app.properties": "x=y"}},
		{name: "empty data", data: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := NewKubeStore(fake.NewSimpleClientset())

			created, err := store.Create(ctx, testNamespace, Config{Name: "cfg1", Data: tt.data})
			require.NoError(t, err)
			assert.Equal(t, "cfg1", created.Name)
			assert.Equal(t, testNamespace, created.Namespace)

			got, err := store.Get(ctx, testNamespace, "cfg1")
			require.NoError(t, err)
			assert.Equal(t, tt.data, got.Data)
			assert.NotNil(t, got.Data)
		})
	}
}

func TestKubeStore_CreateDuplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewKubeStore(fake.NewSimpleClientset(newConfigMap("cfg1", map[string]string{"a": "1"})))

	_, err := store.Create(ctx, testNamespace, Config{Name: "cfg1", Data: map[string]string{"other": "data"}})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, http.StatusConflict, httperr.Code(err))
}

func TestKubeStore_MissingConfigMap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		call func(context.Context, *KubeStore) error
	}{
		{
			name: "get",
			call: func(ctx context.Context, s *KubeStore) error {
				_, err := s.Get(ctx, testNamespace, "missing")
				return err
			},
		},
		{
			name: "delete",
			call: func(ctx context.Context, s *KubeStore) error {
				return s.Delete(ctx, testNamespace, "missing")
			},
		},
		{
			name: "patch",
			call: func(ctx context.Context, s *KubeStore) error {
				_, err := s.Patch(ctx, testNamespace, "missing", map[string]string{"a": "1"})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := NewKubeStore(fake.NewSimpleClientset())

			err := tt.call(context.Background(), store)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.Equal(t, http.StatusNotFound, httperr.Code(err))
			assert.Equal(t, "config map not found", err.Error())
		})
	}
}

func TestKubeStore_PatchMergesData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewKubeStore(fake.NewSimpleClientset(newConfigMap("cfg1", map[string]string{"a": "1", "b": "2"})))

	patched, err := store.Patch(ctx, testNamespace, "cfg1", map[string]string{"b": "3", "c": "4"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "3", "c": "4"}, patched.Data)

	got, err := store.Get(ctx, testNamespace, "cfg1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "3", "c": "4"}, got.Data)
}

func TestKubeStore_PatchEmptyDataKeepsExisting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewKubeStore(fake.NewSimpleClientset(newConfigMap("cfg1", map[string]string{"a": "1"})))

	patched, err := store.Patch(ctx, testNamespace, "cfg1", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1"}, patched.Data)
}

func TestKubeStore_DeleteThenGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewKubeStore(fake.NewSimpleClientset(newConfigMap("cfg1", map[string]string{"a": "1"})))

	require.NoError(t, store.Delete(ctx, testNamespace, "cfg1"))

	_, err := store.Get(ctx, testNamespace, "cfg1")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Delete(ctx, testNamespace, "cfg1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKubeStore_List(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	other := newConfigMap("elsewhere", map[string]string{"x": "y"})
	other.Namespace = "kube-system"
	store := NewKubeStore(fake.NewSimpleClientset(
		newConfigMap("cfg1", map[string]string{"a": "1"}),
		newConfigMap("cfg2", nil),
		other,
	))

	items, err := store.List(ctx, testNamespace)
	require.NoError(t, err)
	require.Len(t, items, 2)

	names := []string{items[0].Name, items[1].Name}
	assert.ElementsMatch(t, []string{"cfg1", "cfg2"}, names)
	for _, item := range items {
		assert.Equal(t, testNamespace, item.Namespace)
		assert.NotNil(t, item.Data)
	}
}

func TestKubeStore_ListEmptyNamespace(t *testing.T) {
	t.Parallel()
	store := NewKubeStore(fake.NewSimpleClientset())

	items, err := store.List(context.Background(), testNamespace)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestKubeStore_ListBySelector(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		value     string
		wantNames []string
	}{
		{name: "matches one", value: "cfg1", wantNames: []string{"cfg1"}},
		{name: "matches none", value: "absent", wantNames: []string{}},
		{name: "value with selector syntax is escaped", value: "cfg1,metadata.name!=cfg1", wantNames: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			clientset := configmapstest.NewClientset(
				newConfigMap("cfg1", map[string]string{"a": "1"}),
				newConfigMap("cfg2", map[string]string{"b": "2"}),
			)
			store := NewKubeStore(clientset)

			items, err := store.ListBySelector(context.Background(), testNamespace, NameSelector(tt.value))
			require.NoError(t, err)
			require.NotNil(t, items)

			names := make([]string, 0, len(items))
			for _, item := range items {
				names = append(names, item.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestKubeStore_ListBySelectorSendsEscapedSelector(t *testing.T) {
	t.Parallel()
	clientset := fake.NewSimpleClientset()

	var gotSelector string
	clientset.PrependReactor("list", "configmaps", func(action k8stesting.Action) (bool, runtime.Object, error) {
		gotSelector = action.(k8stesting.ListAction).GetListRestrictions().Fields.String()
		return true, &corev1.ConfigMapList{}, nil
	})
	store := NewKubeStore(clientset)

	_, err := store.ListBySelector(context.Background(), testNamespace, NameSelector("a,b=c"))
	require.NoError(t, err)
	assert.Equal(t, `metadata.name=a\,b\=c`, gotSelector)
}

func TestKubeStore_RemoteFailures(t *testing.T) {
	t.Parallel()

	gr := schema.GroupResource{Resource: "configmaps"}

	tests := []struct {
		name     string
		err      error
		wantIs   error
		wantCode int
	}{
		{
			name:     "forbidden",
			err:      apierrors.NewForbidden(gr, "", errors.New("rbac says no")),
			wantIs:   ErrUnavailable,
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "unauthorized",
			err:      apierrors.NewUnauthorized("token expired"),
			wantIs:   ErrUnavailable,
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "service unavailable",
			err:      apierrors.NewServiceUnavailable("etcd down"),
			wantIs:   ErrUnavailable,
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "transport failure",
			err:      errors.New("dial tcp 10.0.0.1:443: connect: connection refused"),
			wantIs:   ErrUnavailable,
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "deadline exceeded",
			err:      fmt.Errorf("request failed: %w", context.DeadlineExceeded),
			wantIs:   ErrTimeout,
			wantCode: http.StatusGatewayTimeout,
		},
		{
			name:     "server timeout",
			err:      apierrors.NewTimeoutError("too slow", 1),
			wantIs:   ErrTimeout,
			wantCode: http.StatusGatewayTimeout,
		},
		{
			name:     "invalid object",
			err:      apierrors.NewBadRequest("data too long"),
			wantIs:   ErrInvalid,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unexpected status",
			err:      apierrors.NewInternalError(errors.New("boom")),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			clientset := fake.NewSimpleClientset()
			clientset.PrependReactor("*", "configmaps", func(_ k8stesting.Action) (bool, runtime.Object, error) {
				return true, nil, tt.err
			})
			store := NewKubeStore(clientset)

			_, err := store.List(context.Background(), testNamespace)

			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			assert.NotErrorIs(t, err, ErrNotFound)
			assert.Equal(t, tt.wantCode, httperr.Code(err))
		})
	}
}

func TestKubeStore_Ping(t *testing.T) {
	t.Parallel()

	t.Run("reachable", func(t *testing.T) {
		t.Parallel()
		store := NewKubeStore(fake.NewSimpleClientset())
		assert.NoError(t, store.Ping(context.Background(), testNamespace))
	})

	t.Run("forbidden", func(t *testing.T) {
		t.Parallel()
		clientset := fake.NewSimpleClientset()
		clientset.PrependReactor("list", "configmaps", func(_ k8stesting.Action) (bool, runtime.Object, error) {
			return true, nil, apierrors.NewForbidden(schema.GroupResource{Resource: "configmaps"}, "", errors.New("denied"))
		})
		store := NewKubeStore(clientset)

		err := store.Ping(context.Background(), testNamespace)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `namespace "default"`)
	})
}

func TestWithCallTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{name: "positive timeout", timeout: 3 * time.Second, want: 3 * time.Second},
		{name: "zero keeps default", timeout: 0, want: DefaultCallTimeout},
		{name: "negative keeps default", timeout: -time.Second, want: DefaultCallTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := NewKubeStore(fake.NewSimpleClientset(), WithCallTimeout(tt.timeout))
			assert.Equal(t, tt.want, store.timeout)
		})
	}
}
