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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyEnvOverrides(t *testing.T) {
	require := require.New(t)

	t.Setenv("APP_HTTP_LISTEN_ADDR", "0.0.0.0:9000")
	t.Setenv("APP_EXECUTOR_IMAGE", "runner:v2")
	t.Setenv("APP_EXECUTOR_POD_QUEUE_TARGET_LENGTH", "5")
	t.Setenv("APP_REQUIRE_CHAT_ID", "true")
	t.Setenv("APP_GLOBAL_MAX_DOWNLOADS", "10")
	t.Setenv("APP_PUBLIC_SPAWN_ENABLED", "1")
	t.Setenv("APP_INTERNAL_IP_ALLOWLIST", "10.0.0.0/8, 192.168.0.0/16")

	var config Config
	config.Executor.Image = "runner:v1"
	applyEnvOverrides(&config)

	require.Equal("0.0.0.0:9000", config.Listener.Addr)
	require.Equal("runner:v2", config.Executor.Image)
	require.Equal(5, config.Executor.PodQueueTargetLength)
	require.True(config.Server.RequireChatID)
	require.Equal(int64(10), config.Server.GlobalMaxDownloads)
	require.True(config.Server.OriginGuard.PublicSpawnEnabled)
	require.Equal(
		[]string{"10.0.0.0/8", "192.168.0.0/16"},
		config.Server.OriginGuard.IPAllowlist)
}

func TestApplyEnvOverridesNoEnv(t *testing.T) {
	require := require.New(t)

	var config Config
	config.Executor.Image = "runner:v1"
	applyEnvOverrides(&config)
	require.Equal("runner:v1", config.Executor.Image)
}
