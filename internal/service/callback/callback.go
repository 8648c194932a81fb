package callback

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
	"github.com/adriandotdev/pnc-topup/internal/logger"
	"github.com/adriandotdev/pnc-topup/internal/models"
	"github.com/adriandotdev/pnc-topup/internal/money"
	"github.com/adriandotdev/pnc-topup/internal/service/gateway"
	"github.com/adriandotdev/pnc-topup/internal/service/topup"
)

// Wallet redirect token is '<jwt><separator><flag>', flag "0" means the user cancelled
const cancelledFlag = "0"

type tokenVerifier interface {
	Verify(token string) error
}

type walletCapturer interface {
	ConfirmSource(ctx context.Context, credential string, amount int64, description string, transactionID string) (string, error)
}

type topupService interface {
	Get(ctx context.Context, id uuid.UUID) (models.Topup, error)
	Settle(ctx context.Context, id uuid.UUID, status models.TopupStatus, description *string) (models.Topup, error)
	ConfirmCardPayment(ctx context.Context, transactionID string, credential string) (models.TopupResult, error)
}

// Service handles users redirected back by payment gateways
type Service struct {
	topups   topupService
	verifier tokenVerifier
	wallet   walletCapturer
	logger   logger.Logger
}

func NewService(topups topupService, verifier tokenVerifier, wallet walletCapturer, l logger.Logger) *Service {
	return &Service{
		topups:   topups,
		verifier: verifier,
		wallet:   wallet,
		logger:   l,
	}
}

// HandleWalletRedirect captures approved wallet source or fails cancelled one.
// Captured amount is always the one stored in the ledger
func (s *Service) HandleWalletRedirect(ctx context.Context, rawToken string, topupID string) (models.TopupResult, error) {
	id, err := uuid.Parse(topupID)
	if err != nil {
		return models.TopupResult{}, apperrors.ErrTopupNotFound
	}

	t, err := s.topups.Get(ctx, id)
	if err != nil {
		return models.TopupResult{}, err
	}
	if t.Provider != models.ProviderWallet {
		return models.TopupResult{}, apperrors.ErrTopupNotFound
	}

	if err := topup.GuardPending(t); err != nil {
		return t.Result(), err
	}

	if len(rawToken) < 3 {
		return models.TopupResult{}, apperrors.ErrInvalidPaymentToken
	}
	flag := rawToken[len(rawToken)-1:]
	token := rawToken[:len(rawToken)-2]

	log := s.logger.With("topup_id", t.ID, "transaction_id", t.ProviderTransactionID())
	description := uuid.NewString()

	if flag == cancelledFlag {
		log.Info("Wallet payment cancelled by user")
		return s.settle(ctx, t.ID, models.TopupFailed, description)
	}

	if err := s.verifier.Verify(token); err != nil {
		log.Warn("Wallet redirect token rejected", "error", err)
		return models.TopupResult{}, err
	}

	if t.ProviderTransactionID() == "" {
		return models.TopupResult{}, errors.New("topup has no wallet source attached")
	}

	status, err := s.wallet.ConfirmSource(ctx, token, money.ToMinorUnits(t.Amount), description, t.ProviderTransactionID())
	if err != nil {
		return models.TopupResult{}, err
	}

	newStatus := models.TopupFailed
	if status == gateway.StatusPaid {
		newStatus = models.TopupPaid
	}
	log.Info("Wallet source captured", "gateway_status", status)

	return s.settle(ctx, t.ID, newStatus, description)
}

func (s *Service) settle(ctx context.Context, id uuid.UUID, status models.TopupStatus, description string) (models.TopupResult, error) {
	settled, err := s.topups.Settle(ctx, id, status, &description)
	if err != nil && !errors.Is(err, apperrors.ErrTopupNotPending) {
		return models.TopupResult{}, err
	}

	return settled.Result(), nil
}

// HandleCardRedirect confirms card payment; redirect token is the credential for status polling
func (s *Service) HandleCardRedirect(ctx context.Context, token string, transactionID string) (models.TopupResult, error) {
	if err := s.verifier.Verify(token); err != nil {
		s.logger.Warn("Card redirect token rejected", "transaction_id", transactionID, "error", err)
		return models.TopupResult{}, err
	}

	return s.topups.ConfirmCardPayment(ctx, transactionID, token)
}
