package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/segyhp/library-engine/internal/auth"
	customError "github.com/segyhp/library-engine/pkg/errors"
	"github.com/segyhp/library-engine/pkg/response"
)

type ctxKey string

const principalCtxKey ctxKey = "principal"

// TokenParser verifies a bearer token
type TokenParser interface {
	Parse(raw string) (auth.Principal, error)
}

// WithPrincipal stores the verified caller in ctx
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFrom returns the caller stored by Authenticate
func PrincipalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalCtxKey).(auth.Principal)
	return p, ok
}

// Authenticate requires a valid bearer token on every request
func Authenticate(tokens TokenParser, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				response.FromError(w, r, log, customError.WrapUnauthorized(customError.ErrMissingCredentials))
				return
			}

			principal, err := tokens.Parse(raw)
			if err != nil {
				log.Debug("rejected bearer token", zap.String("path", r.URL.Path), zap.Error(err))
				response.FromError(w, r, log, customError.WrapUnauthorized(customError.ErrInvalidCredentials))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole lets through only callers whose perfil equals role.
// It must run after Authenticate.
func RequireRole(role string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				response.FromError(w, r, log, customError.WrapUnauthorized(customError.ErrMissingCredentials))
				return
			}

			if principal.Role != role {
				response.FromError(w, r, log, customError.WrapForbidden())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
