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
	"time"

	"github.com/andres-erbsen/clock"

	"github.com/beeai-labs/interpreter/localdb"
)

// Fixture creates an Index on a temporary database with a mock clock for
// testing.
func Fixture() (*Index, *clock.Mock, func()) {
	db, cleanup := localdb.Fixture()
	clk := clock.NewMock()
	clk.Set(time.Now())
	return New(db, clk), clk, cleanup
}

// InfoFixture returns a FileInfo with sensible test defaults.
func InfoFixture(hash, chatID, filename string) FileInfo {
	return FileInfo{
		Hash:     hash,
		ChatID:   chatID,
		Filename: filename,
		Size:     int64(len(filename)),
	}
}
