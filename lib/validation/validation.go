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

// Package validation holds the input validation rules shared by the HTTP
// surface and the file index.
package validation

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	hashRegexp     = regexp.MustCompile(`^[a-zA-Z0-9_\-]{1,255}$`)
	chatIDRegexp   = regexp.MustCompile(`^[a-zA-Z0-9_\-]{1,255}$`)
	filenameRegexp = regexp.MustCompile(`^[a-zA-Z0-9._\-]{1,255}$`)
	absPathRegexp  = regexp.MustCompile(`^/[^/].*$`)
	durationRegexp = regexp.MustCompile(`^\s*(\d+)\s*([smhdwSMHDW])\s*$`)
)

// IsHash returns true if s is a well-formed blob handle. Handles are
// opaque tokens, not digests, so only the alphabet is checked.
func IsHash(s string) bool {
	return hashRegexp.MatchString(s)
}

// IsChatID returns true if s is a well-formed session identifier.
func IsChatID(s string) bool {
	return chatIDRegexp.MatchString(s)
}

// IsFilename returns true if s is a well-formed flat filename. Path
// separators are rejected, so a filename can never escape its blob
// directory.
func IsFilename(s string) bool {
	return filenameRegexp.MatchString(s)
}

// IsAbsolutePath returns true if s is an absolute workspace path that is
// not the bare root.
func IsAbsolutePath(s string) bool {
	return absPathRegexp.MatchString(s)
}

// ErrInvalidDuration is returned by ParseDuration for malformed input.
var ErrInvalidDuration = errors.New("invalid duration, expected <number><s|m|h|d|w>")

var durationUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ParseDuration parses a retention duration of the form "<number><unit>",
// where unit is one of s, m, h, d, w (case-insensitive). Surrounding
// whitespace is tolerated. Empty input means "no duration given" and
// returns ok=false with no error.
func ParseDuration(s string) (d time.Duration, ok bool, err error) {
	if strings.TrimSpace(s) == "" {
		return 0, false, nil
	}
	m := durationRegexp.FindStringSubmatch(s)
	if m == nil {
		return 0, false, ErrInvalidDuration
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false, ErrInvalidDuration
	}
	unit := durationUnits[strings.ToLower(m[2])]
	return time.Duration(n) * unit, true, nil
}
