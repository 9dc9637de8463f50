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

// Package handler lets HTTP handlers return errors instead of writing
// status codes by hand. Handlers build an *Error carrying the status,
// message and any extra headers; Wrap maps it onto the response and logs
// the failure.
package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/beeai-labs/interpreter/utils/log"
)

// Error is a handler error with an HTTP mapping. The message doubles as
// the response body, so it must be safe to show the caller.
type Error struct {
	status int
	header http.Header
	msg    string
}

// Errorf builds an *Error from a format string. The status defaults to
// 500 until overridden with Status.
func Errorf(format string, args ...interface{}) *Error {
	return &Error{
		status: http.StatusInternalServerError,
		header: http.Header{},
		msg:    fmt.Sprintf(format, args...),
	}
}

// Status overrides the response status.
func (e *Error) Status(s int) *Error {
	e.status = s
	return e
}

// Header attaches a response header to the error.
func (e *Error) Header(k, v string) *Error {
	e.header.Add(k, v)
	return e
}

func (e *Error) Error() string {
	if e.msg == "" {
		return fmt.Sprintf("handler error (%d)", e.status)
	}
	return fmt.Sprintf("handler error (%d): %s", e.status, e.msg)
}

// ErrorStatus extracts the HTTP status of err. Errors that are not
// *Error map to 500.
func ErrorStatus(err error) int {
	var herr *Error
	if errors.As(err, &herr) {
		return herr.status
	}
	return http.StatusInternalServerError
}

// ErrorMsg extracts the response body of err.
func ErrorMsg(err error) string {
	var herr *Error
	if errors.As(err, &herr) {
		return herr.msg
	}
	return err.Error()
}

// ErrHandler is an HTTP handler that reports failure by returning an
// error.
type ErrHandler func(http.ResponseWriter, *http.Request) error

// Wrap converts an ErrHandler into an http.HandlerFunc. A returned error
// becomes the response: its status and headers are applied and its
// message written as the body. 5xx responses log at error level, other
// failures at info. 404s stay quiet: the download surface emits them
// routinely.
func Wrap(h ErrHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		status := ErrorStatus(err)
		msg := ErrorMsg(err)

		var herr *Error
		if errors.As(err, &herr) {
			for k, vs := range herr.header {
				for _, v := range vs {
					w.Header().Add(k, v)
				}
			}
		}
		w.WriteHeader(status)
		io.WriteString(w, msg)

		entry := log.With("method", r.Method, "path", r.URL.Path, "status", status)
		switch {
		case status >= http.StatusInternalServerError:
			entry.Errorf("Handler failed: %s", msg)
		case status != http.StatusNotFound:
			entry.Infof("Request rejected: %s", msg)
		}
	}
}
