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
	"fmt"
	"os"
	"sync"

	"github.com/uber-go/tally"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/beeai-labs/interpreter/lib/cluster"
	"github.com/beeai-labs/interpreter/utils/backoff"
	"github.com/beeai-labs/interpreter/utils/log"
	"github.com/beeai-labs/interpreter/utils/randutil"
)

// Sandbox is a leased, ready-to-use sandbox pod.
type Sandbox struct {
	Name string
	Addr string // host:port of the in-pod runner.
}

// Pool maintains a queue of warm sandbox pods so executions do not pay pod
// cold-start latency. Every lease hands out a pod exactly once; used pods
// are deleted by the executor, never returned.
type Pool struct {
	config  Config
	cluster cluster.Client
	stats   tally.Scope
	backoff *backoff.Backoff

	ownerOnce sync.Once
	ownerRef  *metav1.OwnerReference

	mu       sync.Mutex
	queue    []*Sandbox
	spawning int
}

// NewPool creates a new Pool. The pool is empty until the first Replenish.
func NewPool(config Config, cluster cluster.Client, stats tally.Scope) *Pool {
	config = config.applyDefaults()
	return &Pool{
		config:  config,
		cluster: cluster,
		stats:   stats.SubScope("pool"),
		backoff: backoff.New(config.Retry),
	}
}

// Lease pops a warm sandbox, or provisions one synchronously when the queue
// is empty. A background replenish is scheduled either way.
func (p *Pool) Lease(ctx context.Context) (*Sandbox, error) {
	p.mu.Lock()
	var s *Sandbox
	if len(p.queue) > 0 {
		s = p.queue[0]
		p.queue = p.queue[1:]
	}
	p.mu.Unlock()

	defer func() {
		go p.Replenish(context.Background())
	}()

	if s != nil {
		p.stats.Counter("lease_warm").Inc(1)
		return s, nil
	}
	p.stats.Counter("lease_cold").Inc(1)
	return p.spawnWithRetry(ctx)
}

// Replenish spawns pods until queue length plus in-flight spawns reaches the
// target. Concurrent calls account for each other through the spawning
// counter, so the pool never overshoots.
func (p *Pool) Replenish(ctx context.Context) {
	p.mu.Lock()
	k := p.config.PodQueueTargetLength - len(p.queue) - p.spawning
	if k < 0 {
		k = 0
	}
	p.spawning += k
	p.mu.Unlock()

	var wg sync.WaitGroup
	for n := 0; n < k; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := p.spawnWithRetry(ctx)
			p.mu.Lock()
			p.spawning--
			if err == nil {
				p.queue = append(p.queue, s)
			}
			p.mu.Unlock()
			if err != nil {
				log.Errorf("Error replenishing sandbox pool: %s", err)
				p.stats.Counter("replenish_failures").Inc(1)
			}
		}()
	}
	wg.Wait()

	p.mu.Lock()
	p.stats.Gauge("queue_length").Update(float64(len(p.queue)))
	p.mu.Unlock()
}

func (p *Pool) spawnWithRetry(ctx context.Context) (*Sandbox, error) {
	var s *Sandbox
	var err error
	a := p.backoff.Attempts()
	for a.WaitForNext() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if s, err = p.spawn(ctx); err == nil {
			return s, nil
		}
		log.Errorf("Error spawning sandbox pod (will retry): %s", err)
		p.stats.Counter("spawn_failures").Inc(1)
	}
	return nil, fmt.Errorf("spawn sandbox: %s (%s)", err, a.Err())
}

func (p *Pool) spawn(ctx context.Context) (*Sandbox, error) {
	name := p.config.PodNamePrefix + randutil.Suffix(6)
	pod, err := buildPod(p.config, name, p.resolveOwnerRef(ctx))
	if err != nil {
		return nil, err
	}
	if _, err := p.cluster.CreatePod(ctx, pod); err != nil {
		return nil, err
	}
	ready, err := p.cluster.WaitPodReady(ctx, name)
	if err != nil {
		// The pod may still be pending. Reap it so it cannot leak.
		if derr := p.cluster.DeletePod(context.Background(), name); derr != nil {
			log.With("pod", name).Errorf("Error deleting unready pod: %s", derr)
		}
		return nil, err
	}
	return &Sandbox{
		Name: name,
		Addr: fmt.Sprintf("%s:%d", ready.Status.PodIP, p.config.RunnerPort),
	}, nil
}

// resolveOwnerRef looks up the pod this process runs in, identified by
// hostname, and builds an owner reference to it. Resolution happens once;
// outside a cluster it yields nil and sandbox pods are simply unowned.
func (p *Pool) resolveOwnerRef(ctx context.Context) *metav1.OwnerReference {
	p.ownerOnce.Do(func() {
		hostname, err := os.Hostname()
		if err != nil {
			log.Errorf("Error resolving hostname for owner reference: %s", err)
			return
		}
		self, err := p.cluster.GetPod(ctx, hostname)
		if err != nil {
			log.With("hostname", hostname).Infof("No owning pod found, sandboxes will be unowned: %s", err)
			return
		}
		p.ownerRef = &metav1.OwnerReference{
			APIVersion: "v1",
			Kind:       "Pod",
			Name:       self.Name,
			UID:        self.UID,
		}
	})
	return p.ownerRef
}
