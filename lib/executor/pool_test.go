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
package executor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	corev1 "k8s.io/api/core/v1"

	"github.com/beeai-labs/interpreter/lib/cluster"
	mockcluster "github.com/beeai-labs/interpreter/mocks/lib/cluster"
)

func poolConfigFixture() Config {
	return Config{
		Image:                "runner:test",
		PodNamePrefix:        "test-sandbox-",
		PodQueueTargetLength: 2,
		RunnerPort:           8000,
	}
}

func fastRetryConfig() Config {
	c := poolConfigFixture()
	c.Retry.Min = time.Millisecond
	c.Retry.Max = time.Millisecond
	c.Retry.Attempts = 3
	return c
}

func expectHealthySpawns(c *mockcluster.MockClient, created *int64) {
	c.EXPECT().GetPod(gomock.Any(), gomock.Any()).Return(
		nil, &cluster.Error{Op: "get pod", Err: errors.New("not running in cluster")}).AnyTimes()
	c.EXPECT().CreatePod(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, pod *corev1.Pod) (*corev1.Pod, error) {
			atomic.AddInt64(created, 1)
			return pod, nil
		}).AnyTimes()
	c.EXPECT().WaitPodReady(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, name string) (*corev1.Pod, error) {
			pod := &corev1.Pod{}
			pod.Name = name
			pod.Status.PodIP = "10.0.0.7"
			return pod, nil
		}).AnyTimes()
	c.EXPECT().DeletePod(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func TestReplenishFillsQueueToTarget(t *testing.T) {
	require := require.New(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc := mockcluster.NewMockClient(ctrl)
	var created int64
	expectHealthySpawns(mc, &created)

	p := NewPool(poolConfigFixture(), mc, tally.NoopScope)
	p.Replenish(context.Background())

	p.mu.Lock()
	defer p.mu.Unlock()
	require.Len(p.queue, 2)
	require.Equal(int64(2), atomic.LoadInt64(&created))
	require.Zero(p.spawning)
}

func TestReplenishDoesNotOvershoot(t *testing.T) {
	require := require.New(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc := mockcluster.NewMockClient(ctrl)
	var created int64
	expectHealthySpawns(mc, &created)

	p := NewPool(poolConfigFixture(), mc, tally.NoopScope)
	p.Replenish(context.Background())
	p.Replenish(context.Background())

	p.mu.Lock()
	defer p.mu.Unlock()
	require.Len(p.queue, 2)
	require.Equal(int64(2), atomic.LoadInt64(&created))
}

func TestLeaseWarmPod(t *testing.T) {
	require := require.New(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc := mockcluster.NewMockClient(ctrl)
	var created int64
	expectHealthySpawns(mc, &created)

	p := NewPool(poolConfigFixture(), mc, tally.NoopScope)
	p.Replenish(context.Background())

	s, err := p.Lease(context.Background())
	require.NoError(err)
	require.True(strings.HasPrefix(s.Name, "test-sandbox-"))
	require.Equal("10.0.0.7:8000", s.Addr)

	// Lease refills the queue in the background.
	require.Eventually(func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.queue) == 2 && p.spawning == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestLeaseColdSpawnsSynchronously(t *testing.T) {
	require := require.New(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc := mockcluster.NewMockClient(ctrl)
	var created int64
	expectHealthySpawns(mc, &created)

	p := NewPool(poolConfigFixture(), mc, tally.NoopScope)

	s, err := p.Lease(context.Background())
	require.NoError(err)
	require.NotNil(s)
	require.Equal("10.0.0.7:8000", s.Addr)
}

func TestSpawnRetriesAndReapsUnreadyPods(t *testing.T) {
	require := require.New(t)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc := mockcluster.NewMockClient(ctrl)
	mc.EXPECT().GetPod(gomock.Any(), gomock.Any()).Return(
		nil, &cluster.Error{Op: "get pod", Err: errors.New("not running in cluster")}).AnyTimes()
	mc.EXPECT().CreatePod(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, pod *corev1.Pod) (*corev1.Pod, error) {
			return pod, nil
		}).AnyTimes()
	var waits, deletes int64
	mc.EXPECT().WaitPodReady(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, name string) (*corev1.Pod, error) {
			atomic.AddInt64(&waits, 1)
			return nil, &cluster.Error{Op: "wait pod ready", Err: errors.New("never ready")}
		}).AnyTimes()
	mc.EXPECT().DeletePod(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, name string) error {
			atomic.AddInt64(&deletes, 1)
			return nil
		}).AnyTimes()

	p := NewPool(fastRetryConfig(), mc, tally.NoopScope)

	_, err := p.spawnWithRetry(context.Background())
	require.Error(err)
	require.Equal(int64(3), atomic.LoadInt64(&waits))
	// Every failed spawn reaps its pending pod.
	require.Equal(int64(3), atomic.LoadInt64(&deletes))
}
