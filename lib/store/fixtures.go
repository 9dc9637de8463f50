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
package store

import (
	"bytes"
	"io"
	"os"

	"github.com/beeai-labs/interpreter/utils/testutil"
)

// Fixture creates a Store rooted at a temporary directory for testing.
func Fixture() (*Store, func()) {
	var cleanup testutil.Cleanup
	defer cleanup.Recover()

	tmpdir, err := os.MkdirTemp(".", "test-store-")
	if err != nil {
		panic(err)
	}
	cleanup.Add(func() { os.RemoveAll(tmpdir) })

	s, err := New(Config{RootDir: tmpdir})
	if err != nil {
		panic(err)
	}
	return s, cleanup.Run
}

// PutFixture writes b into s under (chatID, filename) and returns the
// allocated blob handle.
func PutFixture(s *Store, chatID, filename string, b []byte) string {
	w, err := s.NewWriter(chatID, filename)
	if err != nil {
		panic(err)
	}
	if _, err := io.Copy(w, bytes.NewReader(b)); err != nil {
		w.Abort()
		panic(err)
	}
	if err := w.Commit(); err != nil {
		panic(err)
	}
	return w.Hash()
}
