package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"bank-cards/internal/domain"
	"bank-cards/internal/errors"
)

type contextKey string

const principalKey contextKey = "principal"

// TokenParser turns a bearer token into the principal it was issued for.
type TokenParser interface {
	Parse(token string) (domain.Principal, error)
}

func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the principal stored by Authenticator, or the zero
// Principal, which no policy check accepts.
func PrincipalFrom(ctx context.Context) domain.Principal {
	p, _ := ctx.Value(principalKey).(domain.Principal)
	return p
}

// Authenticator rejects requests without a valid "Authorization: Bearer"
// header and stores the resolved principal in the request context.
func Authenticator(tokens TokenParser, logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				writeError(w, errors.ErrUnauthorized.WithDetails("missing bearer token"))
				return
			}

			p, err := tokens.Parse(strings.TrimSpace(token))
			if err != nil {
				logger.Warn("Rejected bearer token", "path", r.URL.Path, "error", err)
				writeError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
