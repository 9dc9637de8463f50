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

// Package httputil provides a small options-based wrapper for sending HTTP
// requests to internal endpoints.
package httputil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"
)

const defaultTimeout = 60 * time.Second

// StatusError occurs if an HTTP response has an unexpected status code.
type StatusError struct {
	Method       string
	URL          string
	Status       int
	ResponseDump string
}

// NewStatusError returns a new StatusError.
func NewStatusError(resp *http.Response) StatusError {
	defer resp.Body.Close()
	respBytes, err := ioutil.ReadAll(resp.Body)
	respDump := string(respBytes)
	if err != nil {
		respDump = fmt.Sprintf("failed to dump response: %s", err)
	}
	return StatusError{
		Method:       resp.Request.Method,
		URL:          resp.Request.URL.String(),
		Status:       resp.StatusCode,
		ResponseDump: respDump,
	}
}

func (e StatusError) Error() string {
	if e.ResponseDump == "" {
		return fmt.Sprintf("%s %s %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s %d: %s", e.Method, e.URL, e.Status, e.ResponseDump)
}

// IsStatus returns true if err is a StatusError of the given status.
func IsStatus(err error, status int) bool {
	statusErr, ok := err.(StatusError)
	return ok && statusErr.Status == status
}

// IsStatusError returns true if err is a StatusError of any status,
// meaning the remote end answered with an unaccepted code rather than the
// connection failing.
func IsStatusError(err error) bool {
	_, ok := err.(StatusError)
	return ok
}

type sendOptions struct {
	body          io.Reader
	timeout       time.Duration
	acceptedCodes map[int]bool
	headers       map[string]string
	client        *http.Client
	ctx           context.Context
}

// SendOption specifies options for an http request, overwriting defaults.
type SendOption struct {
	f func(*sendOptions)
}

// SendBody specifies a body for http request.
func SendBody(body io.Reader) SendOption {
	return SendOption{func(o *sendOptions) { o.body = body }}
}

// SendTimeout specifies timeout for http request.
func SendTimeout(t time.Duration) SendOption {
	return SendOption{func(o *sendOptions) { o.timeout = t }}
}

// SendHeaders specifies headers for http request.
func SendHeaders(headers map[string]string) SendOption {
	return SendOption{func(o *sendOptions) { o.headers = headers }}
}

// SendAcceptedCodes specifies accepted codes for http request.
func SendAcceptedCodes(codes ...int) SendOption {
	m := make(map[int]bool)
	for _, c := range codes {
		m[c] = true
	}
	return SendOption{func(o *sendOptions) { o.acceptedCodes = m }}
}

// SendClient specifies a custom http client, e.g. one with a tracing
// transport.
func SendClient(client *http.Client) SendOption {
	return SendOption{func(o *sendOptions) { o.client = client }}
}

// SendContext attaches ctx to the request.
func SendContext(ctx context.Context) SendOption {
	return SendOption{func(o *sendOptions) { o.ctx = ctx }}
}

// Send sends an http request. May return StatusError on unaccepted response
// codes.
func Send(method, url string, options ...SendOption) (*http.Response, error) {
	opts := sendOptions{
		body:          bytes.NewReader([]byte{}),
		timeout:       defaultTimeout,
		acceptedCodes: map[int]bool{http.StatusOK: true},
		headers:       map[string]string{},
		ctx:           context.Background(),
	}
	for _, o := range options {
		o.f(&opts)
	}

	req, err := http.NewRequestWithContext(opts.ctx, method, url, opts.body)
	if err != nil {
		return nil, fmt.Errorf("new request: %s", err)
	}
	for k, v := range opts.headers {
		req.Header.Set(k, v)
	}

	client := opts.client
	if client == nil {
		client = &http.Client{Timeout: opts.timeout}
	} else if client.Timeout == 0 {
		// Respect the configured timeout without mutating the caller's client.
		c := *client
		c.Timeout = opts.timeout
		client = &c
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if !opts.acceptedCodes[resp.StatusCode] {
		return nil, NewStatusError(resp)
	}
	return resp, nil
}

// Get sends a GET http request.
func Get(url string, options ...SendOption) (*http.Response, error) {
	return Send("GET", url, options...)
}

// Post sends a POST http request.
func Post(url string, options ...SendOption) (*http.Response, error) {
	return Send("POST", url, options...)
}

// Put sends a PUT http request.
func Put(url string, options ...SendOption) (*http.Response, error) {
	return Send("PUT", url, options...)
}
