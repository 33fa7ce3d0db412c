package middleware

import (
	"context"
	"net/http"
	"strings"

	"retentiond/internal/auth"
	"retentiond/internal/transport/http/api"
)

type ctxKey string

const ctxKeyOperator ctxKey = "operator"

// Operator is the authenticated caller attached to the request context.
type Operator struct {
	ID       string
	TenantID string
	Role     string
}

// Auth verifies a bearer token when present. Requests without a valid
// token pass through unauthenticated; RequireOperator rejects them.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyOperator, Operator{
				ID:       claims.OperatorID,
				TenantID: claims.TenantID,
				Role:     claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetOperator(ctx context.Context) (Operator, bool) {
	operator, ok := ctx.Value(ctxKeyOperator).(Operator)
	return operator, ok
}

// RequireOperator guards the retention surface. When secret is empty the
// service runs without token verification, so a placeholder operator is
// attached instead of rejecting the request.
func RequireOperator(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetOperator(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}
			if secret == "" {
				ctx := context.WithValue(r.Context(), ctxKeyOperator, Operator{ID: "local", Role: "operator"})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
		})
	}
}
