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
package tracing

// Config defines OpenTelemetry tracing configuration.
type Config struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	CollectorHost string `yaml:"collector_host"`
	CollectorPort int    `yaml:"collector_port"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

func (c Config) applyDefaults() Config {
	if c.CollectorHost == "" {
		c.CollectorHost = "localhost"
	}
	if c.CollectorPort == 0 {
		c.CollectorPort = 4318
	}
	if c.SamplingRate == 0 {
		c.SamplingRate = 1.0
	}
	return c
}
