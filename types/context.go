package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyRequestID contextKey = "request_id"
	keyJobID     contextKey = "job_id"
)

// WithRequestID adds a request ID to context. Transport sends it as X-Request-ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// RequestID extracts the request ID from context.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)
	return v, ok && v != ""
}

// WithJobID tags the context with the job being polled.
func WithJobID(ctx context.Context, id JobID) context.Context {
	return context.WithValue(ctx, keyJobID, id)
}

// JobIDFrom extracts the job ID from context.
func JobIDFrom(ctx context.Context) (JobID, bool) {
	v, ok := ctx.Value(keyJobID).(JobID)
	return v, ok && v != ""
}
