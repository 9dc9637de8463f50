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
package fileindex

import (
	"fmt"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"

	"github.com/beeai-labs/interpreter/utils/log"
)

// CleanupConfig defines configuration for periodically removing expired
// index entries.
type CleanupConfig struct {
	Disabled bool          `yaml:"disabled"`
	Interval time.Duration `yaml:"interval"` // How often cleanup runs.

	// DeleteBlobs turns the sweep into a garbage collector: expired rows are
	// purged from the index and their blobs removed from disk. When false,
	// expired entries are only tombstoned and blobs stay on disk.
	DeleteBlobs bool `yaml:"delete_blobs"`
}

func (c CleanupConfig) applyDefaults() CleanupConfig {
	if c.Interval == 0 {
		c.Interval = 3 * time.Hour
	}
	return c
}

// BlobDeleter removes blob bytes from disk. Implemented by store.Store.
type BlobDeleter interface {
	DeleteBlob(chatID, hash, filename string) error
}

// CleanupManager periodically expires stale entries in an Index.
type CleanupManager struct {
	config   CleanupConfig
	index    *Index
	blobs    BlobDeleter
	clk      clock.Clock
	stats    tally.Scope
	stopOnce sync.Once
	stopc    chan struct{}
}

// NewCleanupManager creates a new CleanupManager. blobs may be nil when
// config.DeleteBlobs is false.
func NewCleanupManager(
	config CleanupConfig,
	index *Index,
	blobs BlobDeleter,
	clk clock.Clock,
	stats tally.Scope) *CleanupManager {

	return &CleanupManager{
		config: config.applyDefaults(),
		index:  index,
		blobs:  blobs,
		clk:    clk,
		stats:  stats.SubScope("cleanup"),
		stopc:  make(chan struct{}),
	}
}

// Start launches the background cleanup loop.
func (m *CleanupManager) Start() {
	if m.config.Disabled {
		log.Warn("File index cleanup disabled")
		return
	}
	ticker := m.clk.Ticker(m.config.Interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := m.RunOnce(); err != nil {
					log.Errorf("Error cleaning up expired files: %s", err)
				}
			case <-m.stopc:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the cleanup loop.
func (m *CleanupManager) Stop() {
	m.stopOnce.Do(func() { close(m.stopc) })
}

// RunOnce performs a single cleanup pass. Blob deletion failures are logged
// and do not fail the pass; the index rows are already gone and the
// orphaned blobs simply linger on disk.
func (m *CleanupManager) RunOnce() error {
	n, err := m.index.CleanupExpired()
	if err != nil {
		return fmt.Errorf("cleanup expired: %s", err)
	}
	m.stats.Counter("expired_entries").Inc(n)
	if !m.config.DeleteBlobs || m.blobs == nil {
		return nil
	}
	purged, err := m.index.PurgeExpired()
	if err != nil {
		return fmt.Errorf("purge expired: %s", err)
	}
	for _, info := range purged {
		if err := m.blobs.DeleteBlob(info.ChatID, info.Hash, info.Filename); err != nil {
			log.With("hash", info.Hash, "chat_id", info.ChatID).
				Errorf("Error deleting expired blob: %s", err)
			continue
		}
		m.stats.Counter("deleted_blobs").Inc(1)
	}
	return nil
}
