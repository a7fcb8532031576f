// Package kit holds the transport-agnostic plumbing shared by the HTTP API
// and the MCP server: the Endpoint shape and the adapters that bind it to
// each transport.
package kit

import "context"

// Endpoint is one service operation, independent of transport. The HTTP
// layer and the MCP layer both decode into the typed request, call the
// endpoint, and encode the typed response.
type Endpoint func(ctx context.Context, request any) (any, error)

type contextKey string

const (
	// TransportKey records which transport carried the request
	// ("http" or "mcp").
	TransportKey contextKey = "kit_transport"
	// RequestIDKey carries the per-request identifier.
	RequestIDKey contextKey = "kit_request_id"
)

// WithTransport tags the context with the transport name.
func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}

// GetTransport returns the transport name, defaulting to "http".
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

// WithRequestID tags the context with a request identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID returns the request identifier, or "".
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}
