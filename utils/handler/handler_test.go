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
package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapSuccess(t *testing.T) {
	require := require.New(t)

	w := httptest.NewRecorder()
	Wrap(func(w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusAccepted)
		return nil
	})(w, httptest.NewRequest("GET", "/x", nil))

	require.Equal(http.StatusAccepted, w.Code)
}

func TestWrapHandlerError(t *testing.T) {
	require := require.New(t)

	w := httptest.NewRecorder()
	Wrap(func(w http.ResponseWriter, r *http.Request) error {
		return Errorf("no such thing").Status(http.StatusNotFound).Header("X-Reason", "gone")
	})(w, httptest.NewRequest("GET", "/x", nil))

	require.Equal(http.StatusNotFound, w.Code)
	require.Equal("no such thing", w.Body.String())
	require.Equal("gone", w.Header().Get("X-Reason"))
}

func TestWrapPlainErrorIs500(t *testing.T) {
	require := require.New(t)

	w := httptest.NewRecorder()
	Wrap(func(w http.ResponseWriter, r *http.Request) error {
		return errors.New("disk on fire")
	})(w, httptest.NewRequest("GET", "/x", nil))

	require.Equal(http.StatusInternalServerError, w.Code)
	require.Equal("disk on fire", w.Body.String())
}

func TestErrorAccessors(t *testing.T) {
	require := require.New(t)

	err := Errorf("slow down").Status(http.StatusTooManyRequests)
	require.Equal(http.StatusTooManyRequests, ErrorStatus(err))
	require.Equal("slow down", ErrorMsg(err))

	plain := errors.New("boom")
	require.Equal(http.StatusInternalServerError, ErrorStatus(plain))
	require.Equal("boom", ErrorMsg(plain))
}
