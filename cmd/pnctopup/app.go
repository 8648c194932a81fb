package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
	"github.com/adriandotdev/pnc-topup/internal/db"
	"github.com/adriandotdev/pnc-topup/internal/handlers"
	"github.com/adriandotdev/pnc-topup/internal/logger"
	"github.com/adriandotdev/pnc-topup/internal/repository/postgres"
	"github.com/adriandotdev/pnc-topup/internal/service/auth"
	"github.com/adriandotdev/pnc-topup/internal/service/auth/tokenmanager"
	"github.com/adriandotdev/pnc-topup/internal/service/authmodule"
	"github.com/adriandotdev/pnc-topup/internal/service/callback"
	"github.com/adriandotdev/pnc-topup/internal/service/expiry"
	"github.com/adriandotdev/pnc-topup/internal/service/gateway"
	"github.com/adriandotdev/pnc-topup/internal/service/paymenttoken"
	"github.com/adriandotdev/pnc-topup/internal/service/topup"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	pool   *pgxpool.Pool
	expiry *expiry.Processor
	logger logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	verifier, err := paymenttoken.NewFromFile(c.PaymentTokenPublicKey, c.PaymentTokenIssuer)
	if err != nil {
		return nil, err
	}

	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: c.AccessKey})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	storage := postgres.NewStorage(pool)

	authService, err := auth.NewService(auth.Config{}, tokenManager, storage.Client())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	if c.APIClientUsername != "" {
		_, err := authService.RegisterClient(ctx, c.APIClientUsername, c.APIClientPassword)
		switch {
		case err == nil:
			logger.Info("Api client registered", "username", c.APIClientUsername)
		case errors.Is(err, apperrors.ErrClientAlreadyExists):
		default:
			pool.Close()
			return nil, fmt.Errorf("error while registering api client. Err: %w", err)
		}
	}

	// Upstreams share one client; every call sets its own timeout
	httpClient := &http.Client{}

	authorizer := authmodule.NewClient(authmodule.Config{
		URL:           c.AuthModuleURL,
		GrantType:     c.AuthModuleGrantType,
		Authorization: c.AuthModuleAuthorization,
	}, httpClient, logger)
	walletGateway := gateway.NewWalletClient(gateway.WalletConfig{
		SourceURL:  c.GCashSourceURL,
		PaymentURL: c.GCashPaymentURL,
	}, httpClient, logger)
	cardGateway := gateway.NewCardClient(gateway.CardConfig{
		PaymentURL:    c.MayaPaymentURL,
		GetPaymentURL: c.MayaGetPaymentURL,
	}, httpClient, logger)

	topupService := topup.NewService(topup.Config{
		PollInterval: c.CardPollInterval,
		PollTimeout:  c.CardPollTimeout,
	}, storage, authorizer, walletGateway, cardGateway, logger)
	callbackService := callback.NewService(topupService, verifier, walletGateway, logger)

	expiryProcessor := expiry.New(expiry.Config{
		Interval:    c.TopupExpireEvery,
		ExpireAfter: c.TopupExpireAfter,
	}, topupService, logger)

	mux := handlers.NewRouter(authService, topupService, callbackService, logger)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		pool:       pool,
		expiry:     expiryProcessor,
		logger:     logger,
	}, nil
}

// Run starts http server and expiry processor. Both are stopped gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.pool.Close()

	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	expiryStopped := s.expiry.Process(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-expiryStopped

	return err
}
