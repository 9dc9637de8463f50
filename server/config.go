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
package server

// Config defines Server configuration.
type Config struct {
	// FileSizeLimit is the maximum accepted upload size, as a Kubernetes
	// quantity string.
	FileSizeLimit string `yaml:"file_size_limit"`

	// RequireChatID rejects execute and upload requests which do not name a
	// session, instead of falling back to the shared default session.
	RequireChatID bool `yaml:"require_chat_id"`

	// GlobalMaxDownloads is the download quota applied to files whose
	// request did not set one. Zero means unlimited.
	GlobalMaxDownloads int64 `yaml:"global_max_downloads"`

	// SchemaPath optionally points to a JSON schema that execute request
	// payloads are validated against after normalization.
	SchemaPath string `yaml:"schema_path"`

	OriginGuard OriginGuardConfig `yaml:"origin_guard"`
}

func (c Config) applyDefaults() Config {
	if c.FileSizeLimit == "" {
		c.FileSizeLimit = "1Gi"
	}
	return c
}
