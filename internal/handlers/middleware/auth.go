package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
	"github.com/adriandotdev/pnc-topup/internal/handlers/render"
	"github.com/adriandotdev/pnc-topup/internal/handlers/userctx"
	"github.com/adriandotdev/pnc-topup/internal/models"
)

type authService interface {
	Auth(ctx context.Context, r *http.Request) (models.User, error)
}

type basicAuthService interface {
	AuthBasic(ctx context.Context, r *http.Request) (models.Client, error)
}

// AuthMiddleware requires valid bearer access token and puts the user into request context
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.Auth(r.Context(), r)
			switch {
			case err == nil:
			case errors.Is(err, apperrors.ErrTokenExpired):
				render.ServiceError(w, "TOKEN_EXPIRED", http.StatusForbidden)
				return
			default:
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BasicAuthMiddleware requires registered api client credentials
func BasicAuthMiddleware(as basicAuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client, err := as.AuthBasic(r.Context(), r)
			switch {
			case err == nil:
			case errors.Is(err, apperrors.ErrInvalidBasicToken):
				render.ServiceError(w, "INVALID_BASIC_TOKEN", http.StatusForbidden)
				return
			default:
				render.ServiceError(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			ctx := userctx.WithClient(r.Context(), client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
