// Package topup owns the lifecycle of wallet topups: validation, source creation at the
// payment gateway, confirmation polling and the single terminal write to the ledger.
package topup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
	"github.com/adriandotdev/pnc-topup/internal/logger"
	"github.com/adriandotdev/pnc-topup/internal/models"
	"github.com/adriandotdev/pnc-topup/internal/money"
	"github.com/adriandotdev/pnc-topup/internal/repository"
	"github.com/adriandotdev/pnc-topup/internal/service/gateway"
)

const (
	defaultPollInterval = time.Second
	defaultPollTimeout  = 30 * time.Second
)

var DefaultMinAmount = decimal.NewFromInt(100)

type authorizer interface {
	Authorize(ctx context.Context) (string, error)
}

type walletGateway interface {
	CreateSource(ctx context.Context, credential string, amount int64, userID int64, topupID uuid.UUID) (gateway.Source, error)
}

type cardGateway interface {
	CreateSource(ctx context.Context, credential string, amount int64, userID int64, description string) (gateway.Source, error)
	GetIntentStatus(ctx context.Context, credential string, transactionID string, clientKey string) (string, error)
}

type Config struct {
	// Smallest amount a user may top up. DefaultMinAmount if zero
	MinAmount decimal.Decimal

	// Card confirmation polling. Defaults are used if zero
	PollInterval time.Duration
	PollTimeout  time.Duration
}

type Service struct {
	minAmount    decimal.Decimal
	pollInterval time.Duration
	pollTimeout  time.Duration

	storage repository.Storage
	auth    authorizer
	wallet  walletGateway
	card    cardGateway
	logger  logger.Logger
}

func NewService(cfg Config, storage repository.Storage, auth authorizer, wallet walletGateway, card cardGateway, l logger.Logger) *Service {
	if cfg.MinAmount.IsZero() {
		cfg.MinAmount = DefaultMinAmount
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = defaultPollTimeout
	}

	return &Service{
		minAmount:    cfg.MinAmount,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
		storage:      storage,
		auth:         auth,
		wallet:       wallet,
		card:         card,
		logger:       l,
	}
}

// Checkout is where the user has to go to approve the payment
type Checkout struct {
	CheckoutURL   string
	TopupID       uuid.UUID
	TransactionID string
}

// Initiate creates PENDING topup and payment source for it.
// Topup type and amount are validated before any upstream call
func (s *Service) Initiate(ctx context.Context, user models.User, topupType string, amount decimal.Decimal) (Checkout, error) {
	provider, ok := models.ParseTopupType(topupType)
	if !ok {
		return Checkout{}, apperrors.ErrInvalidTopupType
	}

	if amount.LessThan(s.minAmount) {
		return Checkout{}, apperrors.ErrInvalidMinimumAmount
	}
	minor, err := money.CheckedMinorUnits(amount)
	if err != nil {
		return Checkout{}, apperrors.ErrInvalidMaximumAmount
	}

	credential, err := s.auth.Authorize(ctx)
	if err != nil {
		return Checkout{}, err
	}

	topup, err := s.storage.Topup().CreateTopup(ctx, repository.CreateTopupParams{
		UserID:   user.ID,
		UserType: models.UserTypeDriver,
		Kind:     models.KindTopup,
		Provider: provider,
		Amount:   money.FromMinorUnits(minor),
	})
	switch {
	case errors.Is(err, apperrors.ErrWalletNotFound):
		return Checkout{}, apperrors.NewLedgerRejected(apperrors.IndicatorRFIDCardMissing)
	case err != nil:
		return Checkout{}, err
	}

	log := s.logger.With("topup_id", topup.ID, "provider", provider)

	src, err := s.createSource(ctx, provider, credential, minor, topup)
	if err != nil {
		log.Warn("Payment source not created, failing topup", "error", err)
		// Request context may be already gone
		if _, settleErr := s.Settle(context.WithoutCancel(ctx), topup.ID, models.TopupFailed, nil); settleErr != nil {
			log.Error("Failed to mark topup failed", "error", settleErr)
		}
		return Checkout{}, err
	}

	var clientKey *string
	if src.ClientKey != "" {
		clientKey = &src.ClientKey
	}
	if _, err := s.storage.Topup().AttachTransaction(ctx, topup.ID, src.TransactionID, clientKey); err != nil {
		return Checkout{}, err
	}

	log.Info("Topup initiated", "transaction_id", src.TransactionID, "amount", topup.Amount)
	return Checkout{
		CheckoutURL:   src.RedirectURL,
		TopupID:       topup.ID,
		TransactionID: src.TransactionID,
	}, nil
}

func (s *Service) createSource(ctx context.Context, provider models.Provider, credential string, minor int64, topup models.Topup) (gateway.Source, error) {
	switch provider {
	case models.ProviderWallet:
		return s.wallet.CreateSource(ctx, credential, minor, topup.UserID, topup.ID)
	case models.ProviderCard:
		return s.card.CreateSource(ctx, credential, minor, topup.UserID, uuid.NewString())
	default:
		return gateway.Source{}, fmt.Errorf("unsupported provider %q", provider)
	}
}

// GuardPending allows confirmation only for PENDING topups
func GuardPending(topup models.Topup) error {
	switch topup.Status {
	case models.TopupPending:
		return nil
	case models.TopupPaid:
		return apperrors.ErrAlreadyPaid
	default:
		return apperrors.ErrAlreadyFailed
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.Topup, error) {
	return s.storage.Topup().GetByID(ctx, id)
}

// ConfirmCardPayment polls card gateway until the intent is final and settles the topup.
// Credential is the token gateway redirected the user with
func (s *Service) ConfirmCardPayment(ctx context.Context, transactionID string, credential string) (models.TopupResult, error) {
	topup, err := s.storage.Topup().GetByTransactionID(ctx, transactionID)
	if err != nil {
		return models.TopupResult{}, err
	}
	if topup.Provider != models.ProviderCard {
		return models.TopupResult{}, apperrors.ErrTransactionNotFound
	}

	if err := GuardPending(topup); err != nil {
		return topup.Result(), err
	}

	status, err := s.pollIntent(ctx, credential, transactionID, topup.ProviderClientKey())
	if err != nil {
		return models.TopupResult{}, err
	}

	// Every settlement gets its own description id, like wallet captures
	description := uuid.NewString()
	settled, err := s.Settle(ctx, topup.ID, status, &description)
	if err != nil && !errors.Is(err, apperrors.ErrTopupNotPending) {
		return models.TopupResult{}, err
	}

	return settled.Result(), nil
}

// pollIntent is bounded by poll timeout and by ctx.
// Own timeout is apperrors.ErrConfirmationTimeout, ctx cancellation is returned as is
func (s *Service) pollIntent(ctx context.Context, credential string, transactionID string, clientKey string) (models.TopupStatus, error) {
	pollCtx, cancel := context.WithTimeout(ctx, s.pollTimeout)
	defer cancel()

	stopped := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return apperrors.ErrConfirmationTimeout
	}

	for attempt := 1; ; attempt++ {
		status, err := s.card.GetIntentStatus(pollCtx, credential, transactionID, clientKey)
		if err != nil {
			if pollCtx.Err() != nil {
				return "", stopped()
			}
			return "", err
		}

		switch status {
		case gateway.StatusSucceeded:
			return models.TopupPaid, nil
		case gateway.StatusAwaitingPaymentMethod:
			return models.TopupFailed, nil
		}

		s.logger.Debug("Payment intent not final yet", "transaction_id", transactionID, "status", status, "attempt", attempt)

		select {
		case <-pollCtx.Done():
			return "", stopped()
		case <-time.After(s.pollInterval):
		}
	}
}

// Settle moves PENDING topup to the terminal status in one transaction.
// PAID credits the wallet and records balances around the credit.
// If the topup is not PENDING anymore nothing is written and the current topup is returned
// with apperrors.ErrTopupNotPending
func (s *Service) Settle(ctx context.Context, id uuid.UUID, status models.TopupStatus, description *string) (models.Topup, error) {
	var settled models.Topup

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		topup, err := st.Topup().UpdateStatus(ctx, id, status, description)
		if err != nil {
			settled = topup
			return err
		}

		if status == models.TopupPaid {
			initial, resulting, err := st.Wallet().Credit(ctx, topup.UserID, topup.Amount)
			if err != nil {
				return fmt.Errorf("failed to credit wallet: %w", err)
			}

			topup, err = st.Topup().SetBalanceSnapshot(ctx, id, initial, resulting)
			if err != nil {
				return err
			}
		}

		settled = topup
		return nil
	})

	switch {
	case err == nil:
		s.logger.Info("Topup settled", "topup_id", id, "status", settled.Status)
		return settled, nil
	case errors.Is(err, apperrors.ErrTopupNotPending):
		s.logger.Info("Topup already settled", "topup_id", id, "status", settled.Status, "wanted", status)
		return settled, err
	default:
		return models.Topup{}, err
	}
}

// Verify returns the stored status of the gateway transaction
func (s *Service) Verify(ctx context.Context, transactionID string) (models.TopupResult, error) {
	return s.storage.Topup().GetStatus(ctx, transactionID)
}

// ListStale returns PENDING topups older than age
func (s *Service) ListStale(ctx context.Context, age time.Duration, limit int) ([]models.Topup, error) {
	return s.storage.Topup().ListStale(ctx, time.Now().Add(-age), limit)
}

// Expire marks abandoned PENDING topup EXPIRED
func (s *Service) Expire(ctx context.Context, id uuid.UUID) (models.Topup, error) {
	return s.Settle(ctx, id, models.TopupExpired, nil)
}
