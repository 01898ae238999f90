package httpserver

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

type ctxKey string

const principalKey ctxKey = "nv.principal"

// WithPrincipal stores the authenticated principal in context.
func WithPrincipal(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, principalKey, id)
}

// PrincipalFromCtx fetches the authenticated principal from context.
func PrincipalFromCtx(ctx context.Context) (uuid.UUID, bool) {
	v := ctx.Value(principalKey)
	if v == nil {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
