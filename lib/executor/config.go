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
	"time"

	"github.com/beeai-labs/interpreter/utils/backoff"
)

// Config defines executor configuration: the sandbox pod template and the
// warm pool sizing.
type Config struct {
	// Image is the sandbox runner image.
	Image string `yaml:"image"`

	// PodNamePrefix prefixes generated sandbox pod names.
	PodNamePrefix string `yaml:"pod_name_prefix"`

	// PodQueueTargetLength is the number of warm pods the pool keeps ready.
	PodQueueTargetLength int `yaml:"pod_queue_target_length"`

	// RunnerPort is the port the in-pod runner listens on.
	RunnerPort int `yaml:"runner_port"`

	// Resources defines the sandbox container resource requests and limits.
	Resources ResourcesConfig `yaml:"resources"`

	// PodSpecExtra is an optional free-form overlay merged onto the
	// generated pod spec, for cluster-specific knobs like node selectors
	// or runtime classes.
	PodSpecExtra map[string]interface{} `yaml:"pod_spec_extra"`

	// ExecutionTimeout bounds a single code execution when the request
	// does not carry its own timeout.
	ExecutionTimeout time.Duration `yaml:"execution_timeout"`

	// Retry configures backoff for sandbox provisioning.
	Retry backoff.Config `yaml:"retry"`
}

// ResourcesConfig holds Kubernetes resource quantity strings.
type ResourcesConfig struct {
	CPURequest    string `yaml:"cpu_request"`
	CPULimit      string `yaml:"cpu_limit"`
	MemoryRequest string `yaml:"memory_request"`
	MemoryLimit   string `yaml:"memory_limit"`
}

func (c Config) applyDefaults() Config {
	if c.Image == "" {
		c.Image = "interpreter-runner:latest"
	}
	if c.PodNamePrefix == "" {
		c.PodNamePrefix = "interpreter-sandbox-"
	}
	if c.PodQueueTargetLength == 0 {
		c.PodQueueTargetLength = 2
	}
	if c.RunnerPort == 0 {
		c.RunnerPort = 8000
	}
	if c.Resources.CPURequest == "" {
		c.Resources.CPURequest = "500m"
	}
	if c.Resources.CPULimit == "" {
		c.Resources.CPULimit = "1"
	}
	if c.Resources.MemoryRequest == "" {
		c.Resources.MemoryRequest = "512Mi"
	}
	if c.Resources.MemoryLimit == "" {
		c.Resources.MemoryLimit = "1Gi"
	}
	if c.ExecutionTimeout == 0 {
		c.ExecutionTimeout = 60 * time.Second
	}
	return c
}
