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
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/beeai-labs/interpreter/lib/tracing"
	"github.com/beeai-labs/interpreter/utils/httputil"
)

// podClient speaks the in-pod runner HTTP protocol: files are staged into
// and harvested from the runner's workspace, and code runs via a single
// execute call.
type podClient struct {
	client *http.Client
}

func newPodClient() *podClient {
	return &podClient{client: tracing.NewHTTPClient()}
}

type runnerRequest struct {
	SourceCode     string            `json:"source_code"`
	Env            map[string]string `json:"env,omitempty"`
	TimeoutSeconds int               `json:"timeout,omitempty"`
}

type runnerResponse struct {
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
	ExitCode int      `json:"exit_code"`
	Files    []string `json:"files"`
}

// workspaceURL addresses a workspace-relative path on the runner. relpath
// may contain directory separators, so it is escaped per segment.
func workspaceURL(addr, relpath string) string {
	u := url.URL{Scheme: "http", Host: addr, Path: "/workspace/" + relpath}
	return u.String()
}

func (c *podClient) uploadFile(
	ctx context.Context, addr, relpath string, r io.Reader) error {

	_, err := httputil.Put(
		workspaceURL(addr, relpath),
		httputil.SendBody(r),
		httputil.SendClient(c.client),
		httputil.SendContext(ctx))
	if err != nil {
		return fmt.Errorf("stage %s: %s", relpath, err)
	}
	return nil
}

func (c *podClient) downloadFile(
	ctx context.Context, addr, relpath string) (io.ReadCloser, error) {

	resp, err := httputil.Get(
		workspaceURL(addr, relpath),
		httputil.SendClient(c.client),
		httputil.SendContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("harvest %s: %s", relpath, err)
	}
	return resp.Body, nil
}

func (c *podClient) execute(
	ctx context.Context, addr string, req runnerRequest,
	timeout time.Duration) (*runnerResponse, error) {

	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal runner request: %s", err)
	}
	// The HTTP timeout pads the execution timeout so in-pod enforcement
	// fires first and produces a structured response.
	resp, err := httputil.Post(
		fmt.Sprintf("http://%s/execute", addr),
		httputil.SendBody(bytes.NewReader(b)),
		httputil.SendHeaders(map[string]string{"Content-Type": "application/json"}),
		httputil.SendTimeout(timeout+10*time.Second),
		httputil.SendClient(c.client),
		httputil.SendContext(ctx))
	if err != nil {
		// Not wrapped: the caller tells StatusError apart from transport
		// failures.
		return nil, err
	}
	defer resp.Body.Close()

	var rr runnerResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("decode runner response: %s", err)
	}
	return &rr, nil
}
