package domain

import "context"

// FormatJSON is the media format of JSON payloads.
const FormatJSON = "json"

// RawResource is the serialized body of a revision.
// It is owned by the document that carries it.
type RawResource struct {
	// Data is the serialized resource.
	Data string

	// Format is the media format of Data (e.g., "json").
	Format string
}

// ResourceRequest records the request that produced a revision.
type ResourceRequest struct {
	Method string
	URI    string
}

// RequestContext describes the caller of the current operation.
type RequestContext struct {
	Method string
	URI    string
	Claims []Claim
}

type requestContextKey struct{}

// WithRequestContext returns a context carrying rc.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom returns the request context carried by ctx, if any.
func RequestContextFrom(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return rc, ok
}
