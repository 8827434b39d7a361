package otel

import (
	"context"
	"encoding/binary"
	"math/rand/v2"

	"go.opentelemetry.io/otel/trace"
)

type traceIDKey struct{}

// ContextWithTraceID makes root spans started from ctx use id instead of a
// random trace ID. It only has an effect on providers using IDGenerator.
func ContextWithTraceID(ctx context.Context, id trace.TraceID) context.Context {
	if !id.IsValid() {
		return ctx
	}
	return context.WithValue(ctx, traceIDKey{}, id)
}

// TraceIDFromContext returns the trace ID set by ContextWithTraceID.
func TraceIDFromContext(ctx context.Context) (trace.TraceID, bool) {
	id, ok := ctx.Value(traceIDKey{}).(trace.TraceID)
	return id, ok
}

// IDGenerator generates random IDs, except that root spans honor a trace ID
// carried by the context.
type IDGenerator struct{}

// NewIDGenerator returns an IDGenerator.
func NewIDGenerator() *IDGenerator { return &IDGenerator{} }

// NewIDs implements sdktrace.IDGenerator.
func (g *IDGenerator) NewIDs(ctx context.Context) (trace.TraceID, trace.SpanID) {
	if id, ok := TraceIDFromContext(ctx); ok {
		return id, g.NewSpanID(ctx, id)
	}

	var tid trace.TraceID
	for !tid.IsValid() {
		binary.BigEndian.PutUint64(tid[:8], rand.Uint64())
		binary.BigEndian.PutUint64(tid[8:], rand.Uint64())
	}
	return tid, g.NewSpanID(ctx, tid)
}

// NewSpanID implements sdktrace.IDGenerator.
func (g *IDGenerator) NewSpanID(context.Context, trace.TraceID) trace.SpanID {
	var sid trace.SpanID
	for !sid.IsValid() {
		binary.BigEndian.PutUint64(sid[:], rand.Uint64())
	}
	return sid
}
