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
package randutil

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mrand "math/rand"
	"time"
)

func init() {
	mrand.Seed(time.Now().UnixNano())
}

const lowerAlphaNum = "abcdefghijklmnopqrstuvwxyz0123456789"

// Suffix returns randomly generated lowercase alphanumeric text of length n,
// suitable for DNS-1123 name suffixes.
func Suffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = lowerAlphaNum[mrand.Intn(len(lowerAlphaNum))]
	}
	return string(b)
}

// Hex returns n cryptographically random bytes encoded as hex, i.e. a string
// of length 2n. Used for allocating opaque blob handles.
func Hex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails if the OS entropy source is broken, at
		// which point there is nothing sensible left to do.
		panic(fmt.Sprintf("crypto rand: %s", err))
	}
	return hex.EncodeToString(b)
}
