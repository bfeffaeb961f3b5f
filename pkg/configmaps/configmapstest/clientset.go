// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package configmapstest provides a fake Kubernetes clientset for tests
// that exercise the ConfigMap store without a cluster.
package configmapstest

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

// NewClientset returns a fake clientset seeded with objects that honours
// field selectors on ConfigMap lists. The object tracker ignores them on
// its own, so a plain fake would return every ConfigMap for a search.
func NewClientset(objects ...runtime.Object) *fake.Clientset {
	clientset := fake.NewSimpleClientset(objects...)
	withFieldSelectorSupport(clientset)
	return clientset
}

func withFieldSelectorSupport(clientset *fake.Clientset) {
	gvr := corev1.SchemeGroupVersion.WithResource("configmaps")
	gvk := corev1.SchemeGroupVersion.WithKind("ConfigMap")

	clientset.PrependReactor("list", "configmaps", func(action k8stesting.Action) (bool, runtime.Object, error) {
		listAction, ok := action.(k8stesting.ListAction)
		if !ok {
			return false, nil, nil
		}
		selector := listAction.GetListRestrictions().Fields
		if selector == nil || selector.Empty() {
			return false, nil, nil
		}

		obj, err := clientset.Tracker().List(gvr, gvk, action.GetNamespace())
		if err != nil {
			return true, nil, err
		}
		all, ok := obj.(*corev1.ConfigMapList)
		if !ok {
			return true, nil, fmt.Errorf("unexpected list type %T", obj)
		}

		filtered := &corev1.ConfigMapList{}
		for _, cm := range all.Items {
			if selector.Matches(fields.Set{"metadata.name": cm.Name, "metadata.namespace": cm.Namespace}) {
				filtered.Items = append(filtered.Items, cm)
			}
		}
		return true, filtered, nil
	})
}
