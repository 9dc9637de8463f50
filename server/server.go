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

// Package server implements the interpreter HTTP API: code execution,
// file upload / download / expiry.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/go-chi/chi"
	"github.com/uber-go/tally"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/beeai-labs/interpreter/lib/executor"
	"github.com/beeai-labs/interpreter/lib/fileindex"
	"github.com/beeai-labs/interpreter/lib/middleware"
	"github.com/beeai-labs/interpreter/lib/store"
	"github.com/beeai-labs/interpreter/lib/tracing"
	"github.com/beeai-labs/interpreter/lib/validation"
	"github.com/beeai-labs/interpreter/utils/handler"
	"github.com/beeai-labs/interpreter/utils/log"
)

const defaultChatID = "default"

// CodeExecutor runs user code in a sandbox. Implemented by executor.Executor.
type CodeExecutor interface {
	Execute(ctx context.Context, req executor.Request) (*executor.Result, error)
}

// Server defines the interpreter HTTP server.
type Server struct {
	config        Config
	stats         tally.Scope
	executor      CodeExecutor
	store         *store.Store
	index         *fileindex.Index
	guard         *originGuard
	fileSizeLimit int64
}

// New creates a new Server.
func New(
	config Config,
	stats tally.Scope,
	exec CodeExecutor,
	fstore *store.Store,
	index *fileindex.Index) (*Server, error) {

	config = config.applyDefaults()

	stats = stats.Tagged(map[string]string{
		"module": "server",
	})

	guard, err := newOriginGuard(config.OriginGuard)
	if err != nil {
		return nil, fmt.Errorf("origin guard: %s", err)
	}

	limit, err := resource.ParseQuantity(config.FileSizeLimit)
	if err != nil {
		return nil, fmt.Errorf("parse file_size_limit: %s", err)
	}

	return &Server{
		config:        config,
		stats:         stats,
		executor:      exec,
		store:         fstore,
		index:         index,
		guard:         guard,
		fileSizeLimit: limit.Value(),
	}, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(middleware.HitCounter(s.stats))
	r.Use(middleware.LatencyTimer(s.stats))
	r.Use(tracing.HTTPMiddleware("interpreter"))

	r.Get("/health", s.healthHandler)

	// Pod-spawning endpoints sit behind the origin guard.
	r.Group(func(r chi.Router) {
		r.Use(s.guard.Middleware)
		r.Post("/v1/execute", handler.Wrap(s.executeHandler))
		r.Post("/v1/upload", handler.Wrap(s.uploadHandler))
		r.Post("/v1/execute-custom-tool", handler.Wrap(s.customToolHandler))
		r.Post("/v1/parse-custom-tool", handler.Wrap(s.customToolHandler))
	})

	r.Post("/v1/download", handler.Wrap(s.downloadHandler))
	r.Post("/v1/expire", handler.Wrap(s.expireHandler))

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, "OK")
}

// customToolHandler rejects the legacy custom tool endpoints, which are
// kept routable so old clients get a stable error instead of a 404.
func (s *Server) customToolHandler(w http.ResponseWriter, r *http.Request) error {
	return handler.Errorf("Method disabled").Status(http.StatusUnauthorized)
}

type executeRequest struct {
	SourceCode string            `json:"source_code"`
	ChatID     string            `json:"chat_id"`
	Env        map[string]string `json:"env"`

	// Files maps absolute workspace paths to blob handles.
	Files map[string]string `json:"files"`

	Timeout             *float64 `json:"timeout"` // Seconds.
	Limit               *int64   `json:"limit"`
	MaxDownloads        *int64   `json:"max_downloads"`
	ExpiresIn           string   `json:"expires_in"`
	PersistentWorkspace bool     `json:"persistent_workspace"`
}

type fileMetadata struct {
	Hash      string     `json:"file_hash"`
	Filename  string     `json:"filename"`
	ChatID    string     `json:"chat_id"`
	Size      int64      `json:"size"`
	Remaining *int64     `json:"remaining_downloads,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type executeResponse struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`

	// Files holds the produced workspace paths: a path -> handle map for
	// persistent workspaces, a plain path list otherwise.
	Files         interface{}             `json:"files"`
	FilesMetadata map[string]fileMetadata `json:"files_metadata,omitempty"`
	ChatID        string                  `json:"chat_id"`
}

func (s *Server) executeHandler(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return handler.Errorf("read body: %s", err).Status(http.StatusBadRequest)
	}
	payload, err := parsePayload(body)
	if err != nil {
		return handler.Errorf("%s", err).Status(http.StatusUnprocessableEntity)
	}
	if err := validateSchema(s.config.SchemaPath, payload); err != nil {
		if _, ok := err.(*schemaError); ok {
			return handler.Errorf("%s", err).Status(http.StatusUnprocessableEntity)
		}
		return handler.Errorf("validate payload: %s", err)
	}
	var req executeRequest
	if err := decodeInto(payload, &req); err != nil {
		return handler.Errorf("malformed request: %s", err).Status(http.StatusUnprocessableEntity)
	}
	if req.SourceCode == "" {
		return handler.Errorf("source_code required").Status(http.StatusBadRequest)
	}

	chatID, err := s.resolveChatID(req.ChatID)
	if err != nil {
		return err
	}

	for p, h := range req.Files {
		if !validation.IsAbsolutePath(p) {
			return handler.Errorf("invalid workspace path %q", p).Status(http.StatusBadRequest)
		}
		if !validation.IsHash(h) {
			return handler.Errorf("invalid file_hash %q", h).Status(http.StatusBadRequest)
		}
	}

	limit := req.Limit
	if limit == nil {
		limit = req.MaxDownloads
	}
	execReq := executor.Request{
		SourceCode:          req.SourceCode,
		ChatID:              chatID,
		Env:                 req.Env,
		Files:               req.Files,
		PersistentWorkspace: req.PersistentWorkspace,
		MaxDownloads:        s.resolveLimit(limit),
	}
	if req.Timeout != nil {
		if *req.Timeout <= 0 {
			return handler.Errorf("timeout must be positive").Status(http.StatusBadRequest)
		}
		execReq.Timeout = time.Duration(*req.Timeout * float64(time.Second))
	}
	if d, ok, err := validation.ParseDuration(req.ExpiresIn); err != nil {
		return handler.Errorf("invalid expires_in: %s", err).Status(http.StatusBadRequest)
	} else if ok {
		execReq.ExpiresIn = &d
	}

	result, err := s.executor.Execute(r.Context(), execReq)
	if err != nil {
		return handler.Errorf("execute: %s", err)
	}

	resp := executeResponse{
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
		ExitCode: result.ExitCode,
		ChatID:   chatID,
	}
	if result.Files != nil {
		handles := make(map[string]string, len(result.Files))
		metadata := make(map[string]fileMetadata, len(result.Files))
		for p, f := range result.Files {
			handles[p] = f.Hash
			info, err := s.index.GetInfo(f.Hash, chatID, f.Filename)
			if err != nil {
				return handler.Errorf("lookup result file: %s", err)
			}
			metadata[p] = fileMetadata{
				Hash:      f.Hash,
				Filename:  f.Filename,
				ChatID:    chatID,
				Size:      f.Size,
				Remaining: info.RemainingDownloads,
				ExpiresAt: info.ExpiresAt,
			}
		}
		resp.Files = handles
		resp.FilesMetadata = metadata
	} else {
		paths := result.ProducedPaths
		if paths == nil {
			paths = []string{}
		}
		resp.Files = paths
	}
	return writeJSON(w, resp)
}

// uploadResponse is the 201 body: file identity at the top level, quota
// and retention nested under metadata.
type uploadResponse struct {
	Hash     string         `json:"file_hash"`
	Filename string         `json:"filename"`
	ChatID   string         `json:"chat_id"`
	Size     int64          `json:"size"`
	Metadata uploadMetadata `json:"metadata"`
}

type uploadMetadata struct {
	Remaining *int64     `json:"remaining_downloads,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) error {
	mr, err := r.MultipartReader()
	if err != nil {
		return handler.Errorf("multipart body required: %s", err).Status(http.StatusBadRequest)
	}

	var (
		filename  string
		size      int64
		chatID    string
		limit     *int64
		expiresIn *time.Duration
		spool     *os.File
	)
	defer func() {
		if spool != nil {
			spool.Close()
			os.Remove(spool.Name())
		}
	}()
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			return handler.Errorf("read multipart: %s", err).Status(http.StatusBadRequest)
		}
		switch part.FormName() {
		case "upload":
			filename = part.FileName()
			if !validation.IsFilename(filename) {
				return handler.Errorf("invalid filename %q", filename).Status(http.StatusBadRequest)
			}
			spool, size, err = s.spoolUpload(part)
			if err != nil {
				return err
			}
		case "chat_id":
			b, err := io.ReadAll(part)
			if err != nil {
				return handler.Errorf("read chat_id: %s", err).Status(http.StatusBadRequest)
			}
			chatID = string(b)
		case "max_downloads":
			b, err := io.ReadAll(part)
			if err != nil {
				return handler.Errorf("read max_downloads: %s", err).Status(http.StatusBadRequest)
			}
			var n int64
			if _, err := fmt.Sscanf(string(b), "%d", &n); err != nil || n < 0 {
				return handler.Errorf("invalid max_downloads %q", b).Status(http.StatusBadRequest)
			}
			limit = &n
		case "expires_in":
			b, err := io.ReadAll(part)
			if err != nil {
				return handler.Errorf("read expires_in: %s", err).Status(http.StatusBadRequest)
			}
			d, ok, err := validation.ParseDuration(string(b))
			if err != nil {
				return handler.Errorf("invalid expires_in: %s", err).Status(http.StatusBadRequest)
			} else if ok {
				expiresIn = &d
			}
		}
	}
	if spool == nil {
		return handler.Errorf("upload part required").Status(http.StatusBadRequest)
	}

	chatID, err = s.resolveChatID(chatID)
	if err != nil {
		return err
	}

	bw, err := s.store.NewWriter(chatID, filename)
	if err != nil {
		return handler.Errorf("new blob writer: %s", err)
	}
	if _, err := io.Copy(bw, spool); err != nil {
		bw.Abort()
		return handler.Errorf("write blob: %s", err)
	}
	if err := bw.Commit(); err != nil {
		return handler.Errorf("commit blob: %s", err)
	}
	hash := bw.Hash()

	info := fileindex.FileInfo{
		Hash:               hash,
		ChatID:             chatID,
		Filename:           filename,
		Size:               size,
		RemainingDownloads: s.resolveLimit(limit),
	}
	if expiresIn != nil {
		t := time.Now().Add(*expiresIn).UTC()
		info.ExpiresAt = &t
	}
	if err := s.index.Register(info); err != nil {
		return handler.Errorf("register file: %s", err)
	}
	log.With(
		"chat_id", chatID,
		"filename", filename,
		"size", datasize.ByteSize(size).HR(),
	).Info("Uploaded file")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	return json.NewEncoder(w).Encode(uploadResponse{
		Hash:     hash,
		Filename: filename,
		ChatID:   chatID,
		Size:     size,
		Metadata: uploadMetadata{
			Remaining: info.RemainingDownloads,
			ExpiresAt: info.ExpiresAt,
		},
	})
}

// spoolUpload streams one multipart file part into a temp file, enforcing
// the size limit as bytes arrive rather than after the fact. The blob
// itself is written once the whole form, chat id included, has been read.
// On success the returned file is positioned at the start.
func (s *Server) spoolUpload(r io.Reader) (*os.File, int64, error) {
	spool, err := os.CreateTemp("", "interpreter-upload-")
	if err != nil {
		return nil, 0, handler.Errorf("create spool file: %s", err)
	}
	abort := func() {
		spool.Close()
		os.Remove(spool.Name())
	}
	n, err := io.Copy(spool, io.LimitReader(r, s.fileSizeLimit+1))
	if err != nil {
		abort()
		return nil, 0, handler.Errorf("write spool file: %s", err)
	}
	if n > s.fileSizeLimit {
		abort()
		return nil, 0, handler.Errorf(
			"file exceeds size limit of %d bytes", s.fileSizeLimit).Status(http.StatusRequestEntityTooLarge)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		abort()
		return nil, 0, handler.Errorf("rewind spool file: %s", err)
	}
	return spool, n, nil
}

type fileRequest struct {
	Hash     string `json:"file_hash"`
	ChatID   string `json:"chat_id"`
	Filename string `json:"filename"`
}

// parseFileRequest decodes the shared download/expire body, tolerating the
// same sloppy JSON the execute endpoint accepts.
func parseFileRequest(r *http.Request) (*fileRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, handler.Errorf("read body: %s", err).Status(http.StatusBadRequest)
	}
	payload, err := parsePayload(body)
	if err != nil {
		return nil, handler.Errorf("%s", err).Status(http.StatusUnprocessableEntity)
	}
	var req fileRequest
	if err := decodeInto(payload, &req); err != nil {
		return nil, handler.Errorf("malformed request: %s", err).Status(http.StatusUnprocessableEntity)
	}
	if req.ChatID == "" {
		req.ChatID = defaultChatID
	}
	return &req, nil
}

// downloadHandler serves a stored file, consuming one download from its
// quota. Every failure mode maps onto a plain 404 so callers cannot probe
// which hashes exist in other sessions.
func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) error {
	notFound := handler.Errorf("File not found").Status(http.StatusNotFound)

	req, err := parseFileRequest(r)
	if err != nil {
		return err
	}
	if !validation.IsHash(req.Hash) || !validation.IsFilename(req.Filename) || !validation.IsChatID(req.ChatID) {
		return handler.Errorf("invalid download request").Status(http.StatusBadRequest)
	}

	if err := s.index.CheckAndDecrement(req.Hash, req.ChatID, req.Filename); err != nil {
		if err == fileindex.ErrNotFound || err == fileindex.ErrExpired {
			return notFound
		}
		return handler.Errorf("check quota: %s", err)
	}

	blob, size, err := s.store.NewReader(req.ChatID, req.Hash, req.Filename)
	if err != nil {
		if err == store.ErrNotFoundOnDisk {
			log.With("hash", req.Hash, "chat_id", req.ChatID).Error("Index entry points at missing blob")
			return notFound
		}
		return handler.Errorf("open blob: %s", err)
	}
	defer blob.Close()

	ctype := mime.TypeByExtension(filepath.Ext(req.Filename))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", req.Filename))
	if _, err := io.Copy(w, blob); err != nil {
		return fmt.Errorf("copy blob: %s", err)
	}
	return nil
}

func (s *Server) expireHandler(w http.ResponseWriter, r *http.Request) error {
	req, err := parseFileRequest(r)
	if err != nil {
		return err
	}
	if !validation.IsHash(req.Hash) || !validation.IsFilename(req.Filename) || !validation.IsChatID(req.ChatID) {
		return handler.Errorf("invalid expire request").Status(http.StatusBadRequest)
	}

	if err := s.index.Expire(req.Hash, req.ChatID, req.Filename); err != nil {
		if err == fileindex.ErrNotFound {
			return handler.Errorf("File not found").Status(http.StatusNotFound)
		}
		return handler.Errorf("expire file: %s", err)
	}
	return writeJSON(w, map[string]bool{"success": true})
}

// resolveChatID applies the default session fallback, or rejects the
// request when sessions are mandatory.
func (s *Server) resolveChatID(chatID string) (string, error) {
	if chatID == "" {
		if s.config.RequireChatID {
			return "", handler.Errorf("chat_id required").Status(http.StatusForbidden)
		}
		return defaultChatID, nil
	}
	if !validation.IsChatID(chatID) {
		return "", handler.Errorf("invalid chat_id %q", chatID).Status(http.StatusBadRequest)
	}
	return chatID, nil
}

// resolveLimit falls back to the configured global download quota. Both
// nil and an explicit zero mean unlimited.
func (s *Server) resolveLimit(limit *int64) *int64 {
	if limit != nil {
		if *limit == 0 {
			return nil
		}
		return limit
	}
	if s.config.GlobalMaxDownloads > 0 {
		n := s.config.GlobalMaxDownloads
		return &n
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode response: %s", err)
	}
	return nil
}
