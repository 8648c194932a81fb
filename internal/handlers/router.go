package handlers

import (
	"context"
	"net/http"

	"github.com/adriandotdev/pnc-topup/internal/handlers/middleware"
	"github.com/adriandotdev/pnc-topup/internal/logger"
	"github.com/adriandotdev/pnc-topup/internal/models"
)

const APIPrefix = "/topup/api/v1"

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type authService interface {
	// Get request and return user if bearer token is valid
	// Expired token has to return apperrors.ErrTokenExpired
	Auth(ctx context.Context, r *http.Request) (models.User, error)

	// Check basic credentials of api client
	// Has to return apperrors.ErrInvalidBasicToken if credentials do not match
	AuthBasic(ctx context.Context, r *http.Request) (models.Client, error)
}

func NewRouter(
	authService authService,
	topups topupService,
	callbacks callbackService,
	logger logger.Logger,
) http.Handler {
	// Logged per route, so the route pattern is logged instead of path with payment tokens
	logged := middleware.LoggerMiddleware(logger)
	withAuth := middleware.AuthMiddleware(authService)
	withBasic := middleware.BasicAuthMiddleware(authService)

	api := http.NewServeMux()

	api.Handle("POST /payments/topup", chain(handleTopup(topups, logger), logged, withAuth))
	api.Handle("GET /payments/gcash/{token}/{topup_id}", chain(handleWalletRedirect(callbacks, logger), logged))
	api.Handle("GET /payments/maya/{token}/{transaction_id}", chain(handleCardRedirect(callbacks, logger), logged))
	api.Handle("GET /payments/verify/{transaction_id}", chain(handleVerify(topups, logger), logged, withBasic))

	root := http.NewServeMux()
	root.Handle(APIPrefix+"/", http.StripPrefix(APIPrefix, api))

	return root
}
