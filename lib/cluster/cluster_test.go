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
package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func podFixture(name string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{{Name: "runner", Image: "runner:latest"}},
		},
	}
}

func TestCreateAndGetPod(t *testing.T) {
	require := require.New(t)

	c := NewWithClientset(Config{Namespace: "sandbox"}, fake.NewSimpleClientset())
	ctx := context.Background()

	created, err := c.CreatePod(ctx, podFixture("runner-abc123"))
	require.NoError(err)
	require.Equal("runner-abc123", created.Name)

	got, err := c.GetPod(ctx, "runner-abc123")
	require.NoError(err)
	require.Equal("sandbox", got.Namespace)
}

func TestGetPodNotFoundIsClusterError(t *testing.T) {
	require := require.New(t)

	c := NewWithClientset(Config{Namespace: "sandbox"}, fake.NewSimpleClientset())

	_, err := c.GetPod(context.Background(), "nope")
	require.Error(err)
	require.True(IsClusterError(err))
}

func TestWaitPodReady(t *testing.T) {
	require := require.New(t)

	k := fake.NewSimpleClientset()
	c := NewWithClientset(Config{
		Namespace:    "sandbox",
		ReadyTimeout: 2 * time.Second,
		PollInterval: 10 * time.Millisecond,
	}, k)
	ctx := context.Background()

	pod := podFixture("runner-wait")
	_, err := c.CreatePod(ctx, pod)
	require.NoError(err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		pod.Status.Phase = corev1.PodRunning
		pod.Status.Conditions = []corev1.PodCondition{
			{Type: corev1.PodReady, Status: corev1.ConditionTrue},
		}
		k.CoreV1().Pods("sandbox").UpdateStatus(ctx, pod, metav1.UpdateOptions{})
	}()

	ready, err := c.WaitPodReady(ctx, "runner-wait")
	require.NoError(err)
	require.Equal("runner-wait", ready.Name)
}

func TestWaitPodReadyTimeout(t *testing.T) {
	require := require.New(t)

	k := fake.NewSimpleClientset()
	c := NewWithClientset(Config{
		Namespace:    "sandbox",
		ReadyTimeout: 200 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	}, k)
	ctx := context.Background()

	_, err := c.CreatePod(ctx, podFixture("runner-stuck"))
	require.NoError(err)

	_, err = c.WaitPodReady(ctx, "runner-stuck")
	require.Error(err)
	require.True(IsClusterError(err))
}

func TestWaitPodReadyTerminalPhase(t *testing.T) {
	require := require.New(t)

	k := fake.NewSimpleClientset()
	c := NewWithClientset(Config{
		Namespace:    "sandbox",
		ReadyTimeout: 5 * time.Second,
		PollInterval: 10 * time.Millisecond,
	}, k)
	ctx := context.Background()

	pod := podFixture("runner-dead")
	pod.Status.Phase = corev1.PodFailed
	_, err := k.CoreV1().Pods("sandbox").Create(ctx, pod, metav1.CreateOptions{})
	require.NoError(err)

	start := time.Now()
	_, err = c.WaitPodReady(ctx, "runner-dead")
	require.Error(err)
	require.True(IsClusterError(err))
	require.Less(time.Since(start), time.Second)
}

func TestDeletePodIdempotent(t *testing.T) {
	require := require.New(t)

	c := NewWithClientset(Config{Namespace: "sandbox"}, fake.NewSimpleClientset())
	ctx := context.Background()

	_, err := c.CreatePod(ctx, podFixture("runner-del"))
	require.NoError(err)

	require.NoError(c.DeletePod(ctx, "runner-del"))
	require.NoError(c.DeletePod(ctx, "runner-del"))
}
