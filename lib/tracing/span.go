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
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/beeai-labs/interpreter"

// StartSpan creates a new span as a child of any existing span in the context.
// Returns the new context (with span) and a function to end the span.
//
// Usage:
//
//	ctx, endSpan := tracing.StartSpan(ctx, "operation-name")
//	defer endSpan()
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, func()) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name, opts...)
	return ctx, func() { span.End() }
}

// SetSpanAttributes adds attributes to the current span in context.
func SetSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// RecordSpanError records an error on the current span and sets status to Error.
func RecordSpanError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Common attribute keys for interpreter spans.
var (
	AttrChatID   = attribute.Key("interpreter.chat_id")
	AttrFileHash = attribute.Key("interpreter.file_hash")
	AttrFilename = attribute.Key("interpreter.filename")
	AttrPodName  = attribute.Key("interpreter.pod_name")
	AttrFileSize = attribute.Key("interpreter.file_size")
)
