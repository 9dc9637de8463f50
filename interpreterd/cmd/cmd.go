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
	"context"
	"flag"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/beeai-labs/interpreter/lib/cluster"
	"github.com/beeai-labs/interpreter/lib/executor"
	"github.com/beeai-labs/interpreter/lib/fileindex"
	"github.com/beeai-labs/interpreter/lib/store"
	"github.com/beeai-labs/interpreter/lib/tracing"
	"github.com/beeai-labs/interpreter/localdb"
	"github.com/beeai-labs/interpreter/metrics"
	"github.com/beeai-labs/interpreter/server"
	"github.com/beeai-labs/interpreter/utils/configutil"
	"github.com/beeai-labs/interpreter/utils/listener"
	"github.com/beeai-labs/interpreter/utils/log"
)

// Flags defines interpreterd CLI flags.
type Flags struct {
	ConfigFile  string
	SecretsFile string
}

// ParseFlags parses interpreterd CLI flags.
func ParseFlags() *Flags {
	var flags Flags
	flag.StringVar(
		&flags.ConfigFile, "config", "", "configuration file path")
	flag.StringVar(
		&flags.SecretsFile, "secrets", "", "path to a secrets YAML file to load into configuration")
	flag.Parse()
	return &flags
}

type options struct {
	config  *Config
	metrics tally.Scope
	logger  *zap.Logger
}

// Option defines an optional Run parameter.
type Option func(*options)

// WithConfig ignores config/secrets flags and directly uses the provided
// config struct.
func WithConfig(c Config) Option {
	return func(o *options) { o.config = &c }
}

// WithMetrics ignores metrics config and directly uses the provided tally
// scope.
func WithMetrics(s tally.Scope) Option {
	return func(o *options) { o.metrics = s }
}

// WithLogger ignores logging config and directly uses the provided logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Run runs interpreterd.
func Run(flags *Flags, opts ...Option) {
	var overrides options
	for _, o := range opts {
		o(&overrides)
	}

	var config Config
	if overrides.config != nil {
		config = *overrides.config
	} else {
		if flags.ConfigFile != "" {
			if err := configutil.Load(flags.ConfigFile, &config); err != nil {
				panic(err)
			}
		}
		if flags.SecretsFile != "" {
			if err := configutil.Load(flags.SecretsFile, &config); err != nil {
				panic(err)
			}
		}
		applyEnvOverrides(&config)
	}

	if overrides.logger != nil {
		log.SetGlobalLogger(overrides.logger.Sugar())
	} else if config.ZapLogging.Encoding != "" {
		zlog := log.ConfigureLogger(config.ZapLogging)
		defer zlog.Sync()
	}

	stats := overrides.metrics
	if stats == nil {
		s, closer, err := metrics.New(config.Metrics)
		if err != nil {
			log.Fatalf("Failed to init metrics: %s", err)
		}
		stats = s
		defer closer.Close()
	}

	shutdownTracing, err := tracing.InitProvider(context.Background(), config.Tracing)
	if err != nil {
		log.Fatalf("Failed to init tracing: %s", err)
	}
	defer shutdownTracing(context.Background())

	db, err := localdb.New(config.Database)
	if err != nil {
		log.Fatalf("Failed to init local db: %s", err)
	}
	defer db.Close()

	index := fileindex.New(db, clock.New())

	fstore, err := store.New(config.Store)
	if err != nil {
		log.Fatalf("Failed to init file store: %s", err)
	}

	k8s, err := cluster.New(config.Cluster)
	if err != nil {
		log.Fatalf("Failed to init cluster client: %s", err)
	}

	pool := executor.NewPool(config.Executor, k8s, stats)
	go pool.Replenish(context.Background())

	exec := executor.New(config.Executor, pool, k8s, fstore, index, clock.New(), stats)

	cleanup := fileindex.NewCleanupManager(
		config.Cleanup, index, fstore, clock.New(), stats)
	cleanup.Start()
	defer cleanup.Stop()

	srv, err := server.New(config.Server, stats, exec, fstore, index)
	if err != nil {
		log.Fatalf("Failed to init server: %s", err)
	}

	log.Infof("Starting interpreter server on %s", config.Listener)
	log.Fatal(listener.Serve(config.Listener, srv.Handler()))
}
