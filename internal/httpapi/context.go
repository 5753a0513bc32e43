package httpapi

import (
	"context"

	"github.com/Lento47/GigChain-wcsap/internal/token"
)

type ctxKey int

const claimsCtxKey ctxKey = iota

func contextWithClaims(ctx context.Context, c *token.Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, c)
}

func claimsFromContext(ctx context.Context) (*token.Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey).(*token.Claims)
	return c, ok
}
