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
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testHash(c string) string {
	return strings.Repeat(c, 64)
}

func int64ptr(n int64) *int64 { return &n }

func TestRegisterAndGetInfo(t *testing.T) {
	require := require.New(t)

	index, _, cleanup := Fixture()
	defer cleanup()

	info := InfoFixture(testHash("a"), "chat1", "result.csv")
	info.RemainingDownloads = int64ptr(3)
	require.NoError(index.Register(info))

	got, err := index.GetInfo(info.Hash, info.ChatID, info.Filename)
	require.NoError(err)
	require.Equal(info.Hash, got.Hash)
	require.Equal(info.ChatID, got.ChatID)
	require.Equal(info.Filename, got.Filename)
	require.Equal(info.Size, got.Size)
	require.NotNil(got.RemainingDownloads)
	require.Equal(int64(3), *got.RemainingDownloads)
	require.Nil(got.ExpiresAt)
}

func TestGetInfoNotFound(t *testing.T) {
	index, _, cleanup := Fixture()
	defer cleanup()

	_, err := index.GetInfo(testHash("a"), "chat1", "nope.txt")
	require.Equal(t, ErrNotFound, err)
}

func TestRegisterOverwritesQuota(t *testing.T) {
	require := require.New(t)

	index, _, cleanup := Fixture()
	defer cleanup()

	info := InfoFixture(testHash("a"), "chat1", "f.txt")
	info.RemainingDownloads = int64ptr(1)
	require.NoError(index.Register(info))
	require.NoError(index.CheckAndDecrement(info.Hash, info.ChatID, info.Filename))
	require.Equal(ErrExpired, index.CheckAndDecrement(info.Hash, info.ChatID, info.Filename))

	// Re-registering revives the entry with a fresh quota.
	info.RemainingDownloads = int64ptr(2)
	require.NoError(index.Register(info))
	require.NoError(index.CheckAndDecrement(info.Hash, info.ChatID, info.Filename))
}

func TestCheckAndDecrement(t *testing.T) {
	require := require.New(t)

	index, _, cleanup := Fixture()
	defer cleanup()

	t.Run("not found", func(t *testing.T) {
		require.Equal(ErrNotFound, index.CheckAndDecrement(testHash("0"), "c", "f"))
	})

	t.Run("unlimited quota never exhausts", func(t *testing.T) {
		info := InfoFixture(testHash("a"), "chat1", "unlimited.txt")
		require.NoError(index.Register(info))
		for n := 0; n < 10; n++ {
			require.NoError(index.CheckAndDecrement(info.Hash, info.ChatID, info.Filename))
		}
	})

	t.Run("limited quota counts down", func(t *testing.T) {
		info := InfoFixture(testHash("b"), "chat1", "limited.txt")
		info.RemainingDownloads = int64ptr(2)
		require.NoError(index.Register(info))

		require.NoError(index.CheckAndDecrement(info.Hash, info.ChatID, info.Filename))
		require.NoError(index.CheckAndDecrement(info.Hash, info.ChatID, info.Filename))
		require.Equal(ErrExpired, index.CheckAndDecrement(info.Hash, info.ChatID, info.Filename))

		got, err := index.GetInfo(info.Hash, info.ChatID, info.Filename)
		require.NoError(err)
		require.Equal(int64(0), *got.RemainingDownloads)
	})
}

func TestCheckAndDecrementTimeExpiry(t *testing.T) {
	require := require.New(t)

	index, clk, cleanup := Fixture()
	defer cleanup()

	expiresAt := clk.Now().Add(time.Hour).UTC()
	info := InfoFixture(testHash("c"), "chat1", "timed.txt")
	info.ExpiresAt = &expiresAt
	require.NoError(index.Register(info))

	require.NoError(index.CheckAndDecrement(info.Hash, info.ChatID, info.Filename))

	clk.Add(2 * time.Hour)

	require.Equal(ErrExpired, index.CheckAndDecrement(info.Hash, info.ChatID, info.Filename))

	// Time expiry zeroes the quota permanently.
	got, err := index.GetInfo(info.Hash, info.ChatID, info.Filename)
	require.NoError(err)
	require.NotNil(got.RemainingDownloads)
	require.Equal(int64(0), *got.RemainingDownloads)
}

func TestCheckAndDecrementConcurrent(t *testing.T) {
	require := require.New(t)

	index, _, cleanup := Fixture()
	defer cleanup()

	const quota = 5
	const attempts = 20

	info := InfoFixture(testHash("d"), "chat1", "contended.txt")
	info.RemainingDownloads = int64ptr(quota)
	require.NoError(index.Register(info))

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for n := 0; n < attempts; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- index.CheckAndDecrement(info.Hash, info.ChatID, info.Filename)
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.Equal(ErrExpired, err)
		}
	}
	require.Equal(quota, succeeded)
}

func TestExpire(t *testing.T) {
	require := require.New(t)

	index, _, cleanup := Fixture()
	defer cleanup()

	info := InfoFixture(testHash("e"), "chat1", "doomed.txt")
	require.NoError(index.Register(info))

	require.NoError(index.Expire(info.Hash, info.ChatID, info.Filename))
	require.Equal(ErrExpired, index.CheckAndDecrement(info.Hash, info.ChatID, info.Filename))

	require.Equal(ErrNotFound, index.Expire(testHash("f"), "chat1", "missing.txt"))
}

func TestCleanupExpired(t *testing.T) {
	require := require.New(t)

	index, clk, cleanup := Fixture()
	defer cleanup()

	// Unlimited entry past its retention window -> tombstoned.
	expired := clk.Now().Add(-time.Hour).UTC()
	a := InfoFixture(testHash("a"), "chat1", "old.txt")
	a.ExpiresAt = &expired
	require.NoError(index.Register(a))

	// Live entry, untouched.
	b := InfoFixture(testHash("b"), "chat1", "alive.txt")
	b.RemainingDownloads = int64ptr(3)
	require.NoError(index.Register(b))

	n, err := index.CleanupExpired()
	require.NoError(err)
	require.Equal(int64(1), n)

	// Rows are kept; the expired entry just lost its quota.
	got, err := index.GetInfo(a.Hash, a.ChatID, a.Filename)
	require.NoError(err)
	require.NotNil(got.RemainingDownloads)
	require.Equal(int64(0), *got.RemainingDownloads)

	got, err = index.GetInfo(b.Hash, b.ChatID, b.Filename)
	require.NoError(err)
	require.Equal(int64(3), *got.RemainingDownloads)

	// A second pass finds nothing new.
	n, err = index.CleanupExpired()
	require.NoError(err)
	require.Zero(n)
}

func TestPurgeExpired(t *testing.T) {
	require := require.New(t)

	index, clk, cleanup := Fixture()
	defer cleanup()

	expired := clk.Now().Add(-time.Hour).UTC()
	a := InfoFixture(testHash("a"), "chat1", "old.txt")
	a.ExpiresAt = &expired
	require.NoError(index.Register(a))

	b := InfoFixture(testHash("b"), "chat1", "exhausted.txt")
	b.RemainingDownloads = int64ptr(0)
	require.NoError(index.Register(b))

	c := InfoFixture(testHash("c"), "chat1", "alive.txt")
	require.NoError(index.Register(c))

	purged, err := index.PurgeExpired()
	require.NoError(err)
	require.Len(purged, 2)

	_, err = index.GetInfo(a.Hash, a.ChatID, a.Filename)
	require.Equal(ErrNotFound, err)
	_, err = index.GetInfo(b.Hash, b.ChatID, b.Filename)
	require.Equal(ErrNotFound, err)
	_, err = index.GetInfo(c.Hash, c.ChatID, c.Filename)
	require.NoError(err)
}

func TestListExpired(t *testing.T) {
	require := require.New(t)

	index, clk, cleanup := Fixture()
	defer cleanup()

	expired := clk.Now().Add(-time.Minute).UTC()
	a := InfoFixture(testHash("a"), "chat1", "old.txt")
	a.ExpiresAt = &expired
	require.NoError(index.Register(a))

	b := InfoFixture(testHash("b"), "chat1", "alive.txt")
	require.NoError(index.Register(b))

	infos, err := index.ListExpired()
	require.NoError(err)
	require.Len(infos, 1)
	require.Equal(a.Filename, infos[0].Filename)
}
