package middleware

import (
	"context"
	"net/http"
	"strings"

	c "sft-ticketing-backend/context"
	"sft-ticketing-backend/model"
)

// Sessions resolves a wallet session token into the connected identity.
type Sessions interface {
	CurrentIdentity(ctx context.Context, token string) (model.Identity, bool)
}

// Identity puts the caller's wallet identity into the request context. Requests
// without a valid session pass through anonymously.
func Identity(sessions Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := c.SetContextWithValue(r.Context(), c.ContextKeySessionToken, token)
			if id, ok := sessions.CurrentIdentity(ctx, token); ok {
				ctx = c.SetContextWithValue(ctx, c.ContextKeyIdentity, id.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
