package api

import "context"

type contextKey string

const contextKeyToken contextKey = "api_token"

// WithToken attaches the caller's persisted session token to ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextKeyToken, token)
}

func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(contextKeyToken).(string)
	return token
}
