// Package userctx carries the authenticated user id through request contexts.
package userctx

import "context"

type contextKey struct{}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(contextKey{}).(string)
	return userID, ok
}

// UserIDOr returns the user id in ctx, or fallback when there is none.
func UserIDOr(ctx context.Context, fallback string) string {
	if id, ok := GetUserID(ctx); ok && id != "" {
		return id
	}
	return fallback
}
