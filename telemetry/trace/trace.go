//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package trace holds the tracer used around model calls and tool
// executions. It defaults to a noop tracer; embedding applications may
// install a real provider before the controller starts.
package trace

import (
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Scope is the instrumentation scope name reported on spans.
const Scope = "github.com/wangchen7722/eflycode-cli-sub001"

// TracerProvider is the global tracer provider for telemetry.
var TracerProvider trace.TracerProvider = noop.NewTracerProvider()

// Tracer is the global tracer instance for telemetry.
var Tracer trace.Tracer = TracerProvider.Tracer(Scope)

// SetTracerProvider installs a provider and refreshes the package tracer.
func SetTracerProvider(tp trace.TracerProvider) {
	TracerProvider = tp
	Tracer = tp.Tracer(Scope)
}

// SpanNameChat is the span name used for one model call.
const SpanNameChat = "call_llm"

// SpanNamePrefixExecuteTool prefixes tool execution span names.
const SpanNamePrefixExecuteTool = "execute_tool"
