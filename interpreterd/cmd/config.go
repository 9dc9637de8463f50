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
package cmd

import (
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/beeai-labs/interpreter/lib/cluster"
	"github.com/beeai-labs/interpreter/lib/executor"
	"github.com/beeai-labs/interpreter/lib/fileindex"
	"github.com/beeai-labs/interpreter/lib/store"
	"github.com/beeai-labs/interpreter/lib/tracing"
	"github.com/beeai-labs/interpreter/localdb"
	"github.com/beeai-labs/interpreter/metrics"
	"github.com/beeai-labs/interpreter/server"
	"github.com/beeai-labs/interpreter/utils/listener"
)

// Config defines interpreterd configuration.
type Config struct {
	ZapLogging zap.Config              `yaml:"zap"`
	Metrics    metrics.Config          `yaml:"metrics"`
	Tracing    tracing.Config          `yaml:"tracing"`
	Listener   listener.Config         `yaml:"listener"`
	Database   localdb.Config          `yaml:"database"`
	Store      store.Config            `yaml:"store"`
	Cluster    cluster.Config          `yaml:"cluster"`
	Executor   executor.Config         `yaml:"executor"`
	Server     server.Config           `yaml:"server"`
	Cleanup    fileindex.CleanupConfig `yaml:"cleanup"`
}

// applyEnvOverrides layers deployment environment variables over the file
// configuration, so a container image can be reconfigured without a config
// file rebuild.
func applyEnvOverrides(config *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err == nil {
				*dst = b
			}
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err == nil {
				*dst = n
			}
		}
	}
	setInt64 := func(key string, dst *int64) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err == nil {
				*dst = n
			}
		}
	}
	setList := func(key string, dst *[]string) {
		if v, ok := os.LookupEnv(key); ok {
			var items []string
			for _, item := range strings.Split(v, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			*dst = items
		}
	}

	setString("APP_HTTP_LISTEN_ADDR", &config.Listener.Addr)
	setString("APP_FILE_STORAGE_PATH", &config.Store.RootDir)
	setString("APP_DATABASE_SOURCE", &config.Database.Source)

	setString("APP_EXECUTOR_IMAGE", &config.Executor.Image)
	setString("APP_EXECUTOR_POD_NAME_PREFIX", &config.Executor.PodNamePrefix)
	setInt("APP_EXECUTOR_POD_QUEUE_TARGET_LENGTH", &config.Executor.PodQueueTargetLength)
	setString("APP_EXECUTOR_NAMESPACE", &config.Cluster.Namespace)

	setString("APP_FILE_SIZE_LIMIT", &config.Server.FileSizeLimit)
	setBool("APP_REQUIRE_CHAT_ID", &config.Server.RequireChatID)
	setInt64("APP_GLOBAL_MAX_DOWNLOADS", &config.Server.GlobalMaxDownloads)
	setBool("APP_PUBLIC_SPAWN_ENABLED", &config.Server.OriginGuard.PublicSpawnEnabled)
	setList("APP_INTERNAL_HOST_ALLOWLIST", &config.Server.OriginGuard.HostAllowlist)
	setList("APP_INTERNAL_IP_ALLOWLIST", &config.Server.OriginGuard.IPAllowlist)
	setString("BEE_SCHEMA_PATH", &config.Server.SchemaPath)
}
