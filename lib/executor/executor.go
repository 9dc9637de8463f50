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

// Package executor runs user code inside single-use sandbox pods. An
// execution stages the session's files into the pod, runs the code through
// the in-pod runner, optionally harvests any files the code produced back
// into the blob store, and destroys the pod.
package executor

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"golang.org/x/sync/errgroup"

	"github.com/beeai-labs/interpreter/lib/cluster"
	"github.com/beeai-labs/interpreter/lib/fileindex"
	"github.com/beeai-labs/interpreter/lib/store"
	"github.com/beeai-labs/interpreter/lib/tracing"
	"github.com/beeai-labs/interpreter/utils/backoff"
	"github.com/beeai-labs/interpreter/utils/httputil"
	"github.com/beeai-labs/interpreter/utils/log"
)

// workspacePrefix is the in-pod directory user code reads and writes.
const workspacePrefix = "/workspace/"

// Request is a single code execution.
type Request struct {
	SourceCode string
	ChatID     string
	Env        map[string]string

	// Files maps absolute workspace paths to blob handles staged into the
	// sandbox before the code runs.
	Files map[string]string

	// PersistentWorkspace harvests files the code produced back into the
	// blob store. When false, produced files die with the sandbox.
	PersistentWorkspace bool

	// Timeout bounds the execution. Zero means the configured default.
	Timeout time.Duration

	// MaxDownloads and ExpiresIn set the quota and retention of files the
	// execution produces. Nil means unlimited / no time expiry.
	MaxDownloads *int64
	ExpiresIn    *time.Duration
}

// FileResult describes a harvested file, already registered in the file
// index.
type FileResult struct {
	Hash     string
	Filename string
	Size     int64
}

// Result is the outcome of an execution. An execution whose code exits
// non-zero is still a successful Result.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int

	// ProducedPaths lists the workspace paths the code wrote.
	ProducedPaths []string

	// Files maps produced paths to their stored blobs. Populated only when
	// the request asked for a persistent workspace.
	Files map[string]FileResult
}

// Executor drives the full execution pipeline against a pool of sandbox
// pods.
type Executor struct {
	config  Config
	pool    *Pool
	cluster cluster.Client
	store   *store.Store
	index   *fileindex.Index
	clk     clock.Clock
	stats   tally.Scope
	pods    *podClient
	backoff *backoff.Backoff
}

// New creates a new Executor.
func New(
	config Config,
	pool *Pool,
	cluster cluster.Client,
	fstore *store.Store,
	index *fileindex.Index,
	clk clock.Clock,
	stats tally.Scope) *Executor {

	config = config.applyDefaults()
	return &Executor{
		config:  config,
		pool:    pool,
		cluster: cluster,
		store:   fstore,
		index:   index,
		clk:     clk,
		stats:   stats.SubScope("executor"),
		pods:    newPodClient(),
		backoff: backoff.New(config.Retry),
	}
}

// Execute runs req to completion. Failures of the sandbox itself (pod never
// became ready, runner unreachable) are retried on a fresh pod; failures of
// the user's code are not retried, they are results.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	ctx, endSpan := tracing.StartSpan(ctx, "executor.execute")
	defer endSpan()
	tracing.SetSpanAttributes(ctx, tracing.AttrChatID.String(req.ChatID))

	timeout := req.Timeout
	if timeout == 0 {
		timeout = e.config.ExecutionTimeout
	}

	timer := e.stats.Timer("execute").Start()
	defer timer.Stop()

	var result *Result
	var err error
	a := e.backoff.Attempts()
	for a.WaitForNext() {
		result, err = e.attempt(ctx, req, timeout)
		if err == nil {
			return result, nil
		}
		if !cluster.IsClusterError(err) {
			return nil, err
		}
		log.With("chat_id", req.ChatID).Errorf("Sandbox failed, retrying on a fresh pod: %s", err)
		e.stats.Counter("sandbox_retries").Inc(1)
	}
	return nil, fmt.Errorf("execute: %s (%s)", err, a.Err())
}

func (e *Executor) attempt(
	ctx context.Context, req Request, timeout time.Duration) (*Result, error) {

	sandbox, err := e.pool.Lease(ctx)
	if err != nil {
		return nil, err
	}
	// Sandboxes are single-use. Reap in the background, the result does not
	// depend on it.
	defer func() {
		go func() {
			if err := e.cluster.DeletePod(context.Background(), sandbox.Name); err != nil {
				log.With("pod", sandbox.Name).Errorf("Error deleting used sandbox: %s", err)
			}
		}()
	}()

	if err := e.stageFiles(ctx, sandbox, req.ChatID, req.Files); err != nil {
		return nil, err
	}

	rr, err := e.pods.execute(ctx, sandbox.Addr, runnerRequest{
		SourceCode:     req.SourceCode,
		Env:            req.Env,
		TimeoutSeconds: int(timeout.Seconds()),
	}, timeout)
	if err != nil {
		if httputil.IsStatusError(err) {
			// The runner answered with an error status: the sandbox is
			// healthy and a fresh pod would reject the request the same
			// way. Not retryable.
			return nil, fmt.Errorf("runner execute: %s", err)
		}
		// The runner is in-pod: failure to reach it means the sandbox is
		// gone, not that the user's code failed.
		return nil, &cluster.Error{Op: "runner execute", Err: err}
	}

	result := &Result{
		Stdout:        rr.Stdout,
		Stderr:        rr.Stderr,
		ExitCode:      rr.ExitCode,
		ProducedPaths: rr.Files,
	}

	if req.PersistentWorkspace && len(rr.Files) > 0 {
		files, err := e.harvestFiles(ctx, sandbox, req, rr.Files)
		if err != nil {
			return nil, err
		}
		result.Files = files
	}

	return result, nil
}

// relpath strips the workspace prefix off an absolute workspace path,
// leaving the path the runner addresses files by.
func relpath(p string) string {
	return strings.TrimPrefix(p, workspacePrefix)
}

// stageFiles copies the request's input blobs into the sandbox workspace.
// Staging reads are quota-free: only explicit downloads by the end user
// consume the download budget.
func (e *Executor) stageFiles(
	ctx context.Context, sandbox *Sandbox, chatID string,
	files map[string]string) error {

	g, ctx := errgroup.WithContext(ctx)
	for p, hash := range files {
		p, hash := p, hash
		g.Go(func() error {
			filename, err := e.store.ResolveFilename(chatID, hash)
			if err != nil {
				return fmt.Errorf("resolve blob %s: %s", hash, err)
			}
			r, _, err := e.store.NewReader(chatID, hash, filename)
			if err != nil {
				return fmt.Errorf("open blob %s: %s", hash, err)
			}
			defer r.Close()
			if err := e.pods.uploadFile(ctx, sandbox.Addr, relpath(p), r); err != nil {
				return &cluster.Error{Op: "stage file", Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

// harvestFiles pulls the files the execution produced out of the sandbox,
// commits them to the blob store and registers them in the file index.
func (e *Executor) harvestFiles(
	ctx context.Context, sandbox *Sandbox, req Request,
	paths []string) (map[string]FileResult, error) {

	var mu sync.Mutex
	results := make(map[string]FileResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			r, err := e.pods.downloadFile(ctx, sandbox.Addr, relpath(p))
			if err != nil {
				return &cluster.Error{Op: "harvest file", Err: err}
			}
			fr, err := e.storeFile(req, path.Base(p), r)
			r.Close()
			if err != nil {
				return err
			}
			mu.Lock()
			results[p] = *fr
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Executor) storeFile(
	req Request, filename string, r io.Reader) (*FileResult, error) {

	w, err := e.store.NewWriter(req.ChatID, filename)
	if err != nil {
		return nil, fmt.Errorf("new blob writer: %s", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Abort()
		return nil, &cluster.Error{Op: "read harvested file", Err: err}
	}
	if err := w.Commit(); err != nil {
		return nil, fmt.Errorf("commit blob: %s", err)
	}

	info := fileindex.FileInfo{
		Hash:               w.Hash(),
		ChatID:             req.ChatID,
		Filename:           filename,
		Size:               w.Size(),
		RemainingDownloads: req.MaxDownloads,
	}
	if req.ExpiresIn != nil {
		t := e.clk.Now().Add(*req.ExpiresIn).UTC()
		info.ExpiresAt = &t
	}
	if err := e.index.Register(info); err != nil {
		return nil, fmt.Errorf("register file: %s", err)
	}
	return &FileResult{Hash: w.Hash(), Filename: filename, Size: w.Size()}, nil
}
