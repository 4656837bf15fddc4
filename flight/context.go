package flight

import (
	"context"

	"google.golang.org/grpc/metadata"
)

type contextKey int

const requestMetaKey contextKey = iota

// Metadata header keys read from incoming calls.
const (
	// HeaderTraceID carries a distributed trace identifier.
	HeaderTraceID = "ifx-trace-id"
	// HeaderSessionID carries the client session identifier.
	HeaderSessionID = "ifx-client-session-id"
)

// RequestMeta is the call metadata kept in the request context.
type RequestMeta struct {
	TraceID   string
	SessionID string
}

// WithRequestMeta returns a context carrying meta.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey, &meta)
}

// RequestMetaFromContext returns the request metadata, or nil if the context
// was not enriched.
func RequestMetaFromContext(ctx context.Context) *RequestMeta {
	meta, _ := ctx.Value(requestMetaKey).(*RequestMeta)
	return meta
}

// TraceIDFromContext returns the trace ID from context, or empty string if not set.
func TraceIDFromContext(ctx context.Context) string {
	if meta := RequestMetaFromContext(ctx); meta != nil {
		return meta.TraceID
	}
	return ""
}

// SessionIDFromContext returns the session ID from context, or empty string if not set.
func SessionIDFromContext(ctx context.Context) string {
	if meta := RequestMetaFromContext(ctx); meta != nil {
		return meta.SessionID
	}
	return ""
}

// EnrichContextMetadata copies the trace and session headers of the incoming
// gRPC metadata into the context. An enriched context is returned unchanged.
func EnrichContextMetadata(ctx context.Context) context.Context {
	if RequestMetaFromContext(ctx) != nil {
		return ctx
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}

	var meta RequestMeta
	if values := md.Get(HeaderTraceID); len(values) > 0 {
		meta.TraceID = values[0]
	}
	if values := md.Get(HeaderSessionID); len(values) > 0 {
		meta.SessionID = values[0]
	}
	return WithRequestMeta(ctx, meta)
}
