// Copyright (c) 2024-2025 BeeAI Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cluster wraps the Kubernetes API for sandbox pod lifecycle
// management.
package cluster

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	kerrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Client manages sandbox pods in a single namespace. All errors returned by
// Client implementations are wrapped in *Error.
type Client interface {
	GetPod(ctx context.Context, name string) (*corev1.Pod, error)
	CreatePod(ctx context.Context, pod *corev1.Pod) (*corev1.Pod, error)
	WaitPodReady(ctx context.Context, name string) (*corev1.Pod, error)
	DeletePod(ctx context.Context, name string) error
	Namespace() string
}

type client struct {
	config Config
	k      kubernetes.Interface
}

// New creates a Client backed by the real Kubernetes API. It prefers the
// in-cluster service account configuration and falls back to the kubeconfig
// path in config.
func New(config Config) (Client, error) {
	config = config.applyDefaults()
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		if config.Kubeconfig == "" {
			return nil, fmt.Errorf("in-cluster config: %s (no kubeconfig fallback set)", err)
		}
		restConfig, err = clientcmd.BuildConfigFromFlags("", config.Kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("build kubeconfig: %s", err)
		}
	}
	k, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("new clientset: %s", err)
	}
	return NewWithClientset(config, k), nil
}

// NewWithClientset creates a Client on an existing clientset. Used by tests
// with a fake clientset.
func NewWithClientset(config Config, k kubernetes.Interface) Client {
	return &client{config.applyDefaults(), k}
}

func (c *client) Namespace() string { return c.config.Namespace }

func (c *client) GetPod(ctx context.Context, name string) (*corev1.Pod, error) {
	pod, err := c.k.CoreV1().Pods(c.config.Namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, wrapErr("get pod", err)
	}
	return pod, nil
}

func (c *client) CreatePod(ctx context.Context, pod *corev1.Pod) (*corev1.Pod, error) {
	created, err := c.k.CoreV1().Pods(c.config.Namespace).Create(ctx, pod, metav1.CreateOptions{})
	if err != nil {
		return nil, wrapErr("create pod", err)
	}
	return created, nil
}

// WaitPodReady polls until the pod reports the Ready condition, returning
// the last observed pod. A pod that lands in a terminal phase fails
// immediately rather than burning the full timeout.
func (c *client) WaitPodReady(ctx context.Context, name string) (*corev1.Pod, error) {
	var ready *corev1.Pod
	err := wait.PollUntilContextTimeout(
		ctx, c.config.PollInterval, c.config.ReadyTimeout, true,
		func(ctx context.Context) (bool, error) {
			pod, err := c.k.CoreV1().Pods(c.config.Namespace).Get(ctx, name, metav1.GetOptions{})
			if err != nil {
				// Transient API errors are retried until the deadline.
				return false, nil
			}
			switch pod.Status.Phase {
			case corev1.PodFailed, corev1.PodSucceeded:
				return false, fmt.Errorf("pod reached terminal phase %s", pod.Status.Phase)
			}
			if podReady(pod) {
				ready = pod
				return true, nil
			}
			return false, nil
		})
	if err != nil {
		return nil, wrapErr("wait pod ready", err)
	}
	return ready, nil
}

// DeletePod deletes the pod. Deleting an already absent pod is not an error.
func (c *client) DeletePod(ctx context.Context, name string) error {
	err := c.k.CoreV1().Pods(c.config.Namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !kerrors.IsNotFound(err) {
		return wrapErr("delete pod", err)
	}
	return nil
}

func podReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}
