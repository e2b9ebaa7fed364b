// Package tracing stamps log entries with the ambient trace/span id
// carried on a context.Context, so log lines can be correlated with a
// host application's own distributed tracing (SPEC_FULL §13.1).
//
// Grounded on pkg/tracing/tracing.go's use of
// go.opentelemetry.io/otel/trace, narrowed to reading whatever
// SpanContext is already active on the context — this package never
// configures a TracerProvider, exporter, or sampler. Orig §1 scopes out
// cross-process aggregation, and standing up an SDK/exporter here would
// be exactly that; the host application owns its own tracing setup and
// ProbySDK only reads the span it's handed.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/Oreo-Mcflurry/ProbySDK/pkg/model"
)

const (
	metadataTraceID = "trace_id"
	metadataSpanID  = "span_id"
)

// Stamp returns meta with trace_id/span_id keys added from ctx's active
// span context, if any. A nil or invalid span context leaves meta
// unchanged. meta may be nil; a new map is allocated only when there is
// something to add.
func Stamp(ctx context.Context, meta model.Metadata) model.Metadata {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return meta
	}

	out := meta
	if out == nil {
		out = make(model.Metadata, 2)
	} else {
		out = meta.Clone()
	}
	out[metadataTraceID] = model.StringValue(sc.TraceID().String())
	out[metadataSpanID] = model.StringValue(sc.SpanID().String())
	return out
}
