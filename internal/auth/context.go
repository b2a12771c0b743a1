package auth

import (
	"context"
)

// Context keys for storing authentication data.
type contextKey string

const (
	// principalContextKey is the key for storing the authenticated principal in context.
	principalContextKey contextKey = "principal"

	// requestIDContextKey is the key for storing the request ID in context.
	requestIDContextKey contextKey = "request_id"
)

// ContextWithPrincipal adds an authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext retrieves the authenticated principal from the context.
// Returns nil if no principal is found in the context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	if !ok {
		return nil
	}
	return p
}

// UserIDFromContext returns the user ID of the authenticated principal.
// Returns an empty string if no principal is found.
func UserIDFromContext(ctx context.Context) string {
	p := PrincipalFromContext(ctx)
	if p == nil {
		return ""
	}
	return p.UserID
}

// ContextWithRequestID adds a request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from the context.
// Returns an empty string if no request ID is found.
func RequestIDFromContext(ctx context.Context) string {
	requestID, ok := ctx.Value(requestIDContextKey).(string)
	if !ok {
		return ""
	}
	return requestID
}
