// Package tracing wraps opentracing-go span creation for the client and
// cache packages, falling back to a no-op span when no tracer is present
// in the context so instrumentation never becomes a hard dependency for
// callers who haven't configured one.
package tracing

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"
)

var noopTracer = &opentracing.NoopTracer{}

// StartSpan starts a child span from any span already in ctx, or a
// disconnected no-op span if ctx carries none.
func StartSpan(
	ctx context.Context,
	operationName string,
	opts ...opentracing.StartSpanOption,
) (opentracing.Span, context.Context) {
	if span := opentracing.SpanFromContext(ctx); span != nil {
		return opentracing.StartSpanFromContext(ctx, operationName, opts...)
	}
	// No parent span: hand back a working no-op span so callers can call
	// Finish/LogFields unconditionally, without contributing it to ctx so
	// downstream spans don't parent themselves off of it.
	return noopTracer.StartSpan(operationName), ctx
}

// LogError marks span as failed and attaches err to it.
func LogError(span opentracing.Span, err error) {
	ext.Error.Set(span, true)
	span.LogFields(log.Error(err))
}
