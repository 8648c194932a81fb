// Package userctx carries authenticated caller identity through request context.
package userctx

import (
	"context"

	"github.com/adriandotdev/pnc-topup/internal/models"
)

type ctxKey struct{ name string }

var (
	userKey   = ctxKey{"user"}
	clientKey = ctxKey{"client"}
)

// Create a new context with the user
func New(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// Extract the user from the context
func FromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userKey).(models.User)
	return u, ok
}

// WithClient stores api client authenticated with basic credentials
func WithClient(ctx context.Context, c models.Client) context.Context {
	return context.WithValue(ctx, clientKey, c)
}

func ClientFromContext(ctx context.Context) (models.Client, bool) {
	c, ok := ctx.Value(clientKey).(models.Client)
	return c, ok
}
