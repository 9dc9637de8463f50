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

import "time"

// Config defines Kubernetes cluster client configuration.
type Config struct {
	// Namespace pods are managed in. Defaults to the namespace of the
	// service account when running in-cluster.
	Namespace string `yaml:"namespace"`

	// Kubeconfig is an optional path to a kubeconfig file. When empty, the
	// in-cluster service account configuration is used.
	Kubeconfig string `yaml:"kubeconfig"`

	// ReadyTimeout bounds how long WaitPodReady polls before giving up.
	ReadyTimeout time.Duration `yaml:"ready_timeout"`

	// PollInterval is the pod status polling period.
	PollInterval time.Duration `yaml:"poll_interval"`
}

func (c Config) applyDefaults() Config {
	if c.Namespace == "" {
		c.Namespace = "default"
	}
	if c.ReadyTimeout == 0 {
		c.ReadyTimeout = 60 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	return c
}
