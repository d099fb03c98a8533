package common

import "context"

type ctxKey string

const (
	accessTokenKey ctxKey = "auth/access-token"
	sessionIDKey   ctxKey = "checkout/session-id"
)

// WithAccessToken stores the caller's upstream bearer token on the context.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// AccessToken returns the relayed bearer token, if any.
func AccessToken(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(accessTokenKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithSessionID stores the checkout session identifier on the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionID extracts the checkout session identifier from the context.
func SessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
