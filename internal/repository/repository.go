package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adriandotdev/pnc-topup/internal/models"
)

// Storage gives access to repositories bound to the same connection (or transaction)
type Storage interface {
	Topup() TopupRepo
	Wallet() WalletRepo
	Client() ClientRepo

	// Run fn in transaction. Repositories passed to fn share the transaction.
	// Commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

type CreateTopupParams struct {
	UserID   int64
	UserType string
	Kind     string
	Provider models.Provider
	Amount   decimal.Decimal
}

// Ledger of topup attempts
type TopupRepo interface {
	// Create PENDING topup for the user wallet
	// If the user has no wallet with rfid card must return apperrors.ErrWalletNotFound
	CreateTopup(ctx context.Context, params CreateTopupParams) (models.Topup, error)

	// Attach gateway transaction id (and client key for card provider). Status is not changed
	// If the transaction id belongs to another topup must return apperrors.ErrTransactionIDTaken
	AttachTransaction(ctx context.Context, id uuid.UUID, transactionID string, clientKey *string) (models.Topup, error)

	// Move PENDING topup to the new status
	// Must be conditional at the storage level: a topup that is not PENDING is never overwritten.
	// In that case the current topup is returned together with apperrors.ErrTopupNotPending
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.TopupStatus, description *string) (models.Topup, error)

	// Write wallet balances observed during PAID transition
	SetBalanceSnapshot(ctx context.Context, id uuid.UUID, initial, resulting decimal.Decimal) (models.Topup, error)

	// Must return apperrors.ErrTopupNotFound if not found
	GetByID(ctx context.Context, id uuid.UUID) (models.Topup, error)

	// Must return apperrors.ErrTransactionNotFound if not found
	GetByTransactionID(ctx context.Context, transactionID string) (models.Topup, error)

	// Lightweight status lookup by gateway transaction id
	// Must return apperrors.ErrTransactionNotFound if not found
	GetStatus(ctx context.Context, transactionID string) (models.TopupResult, error)

	// PENDING topups created before the moment, oldest first
	ListStale(ctx context.Context, createdBefore time.Time, limit int) ([]models.Topup, error)
}

type WalletRepo interface {
	CreateWallet(ctx context.Context, w models.Wallet) (models.Wallet, error)

	// Must return apperrors.ErrWalletNotFound if not found
	GetWallet(ctx context.Context, userID int64) (models.Wallet, error)

	// Add amount to the wallet balance and return balance before and after
	Credit(ctx context.Context, userID int64, amount decimal.Decimal) (initial decimal.Decimal, resulting decimal.Decimal, err error)
}

// Clients allowed to call basic-auth endpoints
type ClientRepo interface {
	// Must return apperrors.ErrClientAlreadyExists if username is taken
	CreateClient(ctx context.Context, username string, passwordHash string) (models.Client, error)

	// Must return apperrors.ErrClientNotFound if not found
	GetClientByUsername(ctx context.Context, username string) (models.Client, error)
}
