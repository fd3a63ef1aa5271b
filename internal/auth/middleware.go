package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ms-checkin/internal/access"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/utils"
)

type contextKey string

const userKey contextKey = "user"

// UserLookup resolves the account behind a verified token.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Middleware authenticates the bearer token and stores the resolved user in the request context.
func Middleware(verifier TokenVerifier, users UserLookup, cache UserCache, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteError(w, fmt.Errorf("%w: %v", models.ErrUnauthenticated, err))
				return
			}

			claims, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", err.Error())
				utils.WriteError(w, err)
				return
			}

			user, err := resolve(r.Context(), claims, users, cache)
			if err != nil {
				if errors.Is(err, models.ErrUserNotFound) {
					log.LogSecurity("UNKNOWN_USER", claims.Subject)
					err = fmt.Errorf("%w: unknown user", models.ErrUnauthenticated)
				}
				utils.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func resolve(ctx context.Context, claims *Claims, users UserLookup, cache UserCache) (*models.User, error) {
	key := claims.Subject
	if key == "" {
		key = strings.ToLower(claims.Email)
	}
	if cache != nil {
		if u, err := cache.Get(ctx, key); err == nil && u != nil {
			return access.Resolve(u), nil
		}
	}

	var user *models.User
	if claims.Subject != "" {
		u, err := users.GetByID(ctx, claims.Subject)
		if err != nil && !errors.Is(err, models.ErrUserNotFound) {
			return nil, err
		}
		user = u
	}
	if user == nil && claims.Email != "" {
		u, err := users.GetByEmail(ctx, claims.Email)
		if err != nil {
			return nil, err
		}
		user = u
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	if cache != nil {
		_ = cache.Set(ctx, key, user)
	}
	return access.Resolve(user), nil
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}
