package shared

import "context"

type clientContextKey struct{}

// ContextWithClient stores the client id in context.
func ContextWithClient(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientContextKey{}, clientID)
}

// ClientFromContext extracts the client id from context.
func ClientFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientContextKey{}).(string)
	return id
}
