package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hongminglow/cryptodesk-be/internal/apperr"
	"github.com/hongminglow/cryptodesk-be/internal/http/respond"
	"github.com/hongminglow/cryptodesk-be/internal/models"
)

type userKey struct{}

// TokenResolver maps a bearer token to a user; an empty token is anonymous.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// WithUser stores user in ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the authenticated user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey{}).(*models.User)
	return user
}

// Authenticate resolves an "Authorization: Bearer" header. Requests without
// one continue anonymously; a bad token is rejected with 401.
func Authenticate(resolver TokenResolver, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err != nil {
				respond.Problem(w, log, err)
				return
			}
			user, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				respond.Problem(w, log, err)
				return
			}
			if user != nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects anonymous requests.
func RequireUser(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserFromContext(r.Context()) == nil {
				respond.Problem(w, log, apperr.Unauthorized("Authentication credentials were not provided."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) == 0 || !strings.EqualFold(parts[0], "Bearer") {
		return "", nil
	}
	switch len(parts) {
	case 1:
		return "", apperr.Unauthorized("Invalid Authorization header. No credentials provided.")
	case 2:
		return parts[1], nil
	default:
		return "", apperr.Unauthorized("Invalid Authorization header. Credentials string should not contain spaces.")
	}
}
