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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
)

type fakeBlobDeleter struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (d *fakeBlobDeleter) DeleteBlob(chatID, hash, filename string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.deleted = append(d.deleted, hash)
	return nil
}

func TestCleanupManagerRunOnce(t *testing.T) {
	require := require.New(t)

	index, clk, cleanup := Fixture()
	defer cleanup()

	expired := clk.Now().Add(-time.Hour).UTC()
	info := InfoFixture(testHash("a"), "chat1", "old.txt")
	info.ExpiresAt = &expired
	require.NoError(index.Register(info))

	blobs := &fakeBlobDeleter{}
	m := NewCleanupManager(
		CleanupConfig{DeleteBlobs: true}, index, blobs, clk, tally.NoopScope)

	require.NoError(m.RunOnce())
	require.Equal([]string{testHash("a")}, blobs.deleted)

	_, err := index.GetInfo(info.Hash, info.ChatID, info.Filename)
	require.Equal(ErrNotFound, err)
}

func TestCleanupManagerTombstonesByDefault(t *testing.T) {
	require := require.New(t)

	index, clk, cleanup := Fixture()
	defer cleanup()

	expired := clk.Now().Add(-time.Hour).UTC()
	info := InfoFixture(testHash("a"), "chat1", "old.txt")
	info.ExpiresAt = &expired
	require.NoError(index.Register(info))

	blobs := &fakeBlobDeleter{}
	m := NewCleanupManager(CleanupConfig{}, index, blobs, clk, tally.NoopScope)

	require.NoError(m.RunOnce())
	require.Empty(blobs.deleted)

	// The row survives as a tombstone with no quota left.
	got, err := index.GetInfo(info.Hash, info.ChatID, info.Filename)
	require.NoError(err)
	require.NotNil(got.RemainingDownloads)
	require.Equal(int64(0), *got.RemainingDownloads)
}

func TestCleanupManagerToleratesBlobErrors(t *testing.T) {
	require := require.New(t)

	index, clk, cleanup := Fixture()
	defer cleanup()

	expired := clk.Now().Add(-time.Hour).UTC()
	info := InfoFixture(testHash("a"), "chat1", "old.txt")
	info.ExpiresAt = &expired
	require.NoError(index.Register(info))

	blobs := &fakeBlobDeleter{err: errors.New("disk on fire")}
	m := NewCleanupManager(
		CleanupConfig{DeleteBlobs: true}, index, blobs, clk, tally.NoopScope)

	require.NoError(m.RunOnce())
}

func TestCleanupManagerTicker(t *testing.T) {
	require := require.New(t)

	index, clk, cleanup := Fixture()
	defer cleanup()

	expired := clk.Now().Add(-time.Hour).UTC()
	info := InfoFixture(testHash("a"), "chat1", "old.txt")
	info.ExpiresAt = &expired
	require.NoError(index.Register(info))

	m := NewCleanupManager(
		CleanupConfig{Interval: time.Minute}, index, nil, clk, tally.NoopScope)
	m.Start()
	defer m.Stop()

	clk.Add(time.Minute)

	require.Eventually(func() bool {
		got, err := index.GetInfo(info.Hash, info.ChatID, info.Filename)
		if err != nil {
			return false
		}
		return got.RemainingDownloads != nil && *got.RemainingDownloads == 0
	}, 5*time.Second, 10*time.Millisecond)
}
