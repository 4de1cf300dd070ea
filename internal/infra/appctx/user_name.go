package appctx

import "context"

type ctxKey string

const userNameKey ctxKey = "userName"

// WithUserName stores the provider-supplied display name in the context.
func WithUserName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, userNameKey, name)
}

// UserName extracts the display name from the context.
func UserName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(userNameKey).(string)
	return name, ok
}
