package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
	"github.com/adriandotdev/pnc-topup/internal/models"
)

type WalletRepo struct {
	DB DBTX
}

const createWallet = `-- name: CreateWallet
INSERT INTO wallets (user_id, user_type, rfid_card_tag, balance, modified_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING user_id, user_type, rfid_card_tag, balance, modified_at
`

func (r *WalletRepo) CreateWallet(ctx context.Context, w models.Wallet) (models.Wallet, error) {
	if w.UserType == "" {
		w.UserType = models.UserTypeDriver
	}

	rows, _ := r.DB.Query(ctx, createWallet, w.UserID, w.UserType, w.RFIDCardTag, w.Balance, time.Now())
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return wallet, fmt.Errorf("wallet already exists: %w", err)
		}

		return wallet, fmt.Errorf("db error: %w", err)
	}

	return wallet, nil
}

const getWallet = `-- name: GetWallet
SELECT user_id, user_type, rfid_card_tag, balance, modified_at
FROM wallets
WHERE user_id = $1
`

func (r *WalletRepo) GetWallet(ctx context.Context, userID int64) (models.Wallet, error) {
	rows, _ := r.DB.Query(ctx, getWallet, userID)
	wallet, err := pgx.CollectOneRow(rows, rowToWallet)

	switch {
	case err == nil:
		return wallet, nil
	case errors.Is(err, pgx.ErrNoRows):
		return wallet, apperrors.ErrWalletNotFound
	default:
		return wallet, fmt.Errorf("db error: %w", err)
	}
}

const creditWallet = `-- name: CreditWallet
UPDATE wallets
SET balance = balance + $2, modified_at = $3
WHERE user_id = $1
RETURNING balance - $2, balance
`

func (r *WalletRepo) Credit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	var initial, resulting decimal.Decimal

	err := r.DB.QueryRow(ctx, creditWallet, userID, amount, time.Now()).Scan(&initial, &resulting)

	switch {
	case err == nil:
		return initial, resulting, nil
	case errors.Is(err, pgx.ErrNoRows):
		return initial, resulting, apperrors.ErrWalletNotFound
	default:
		return initial, resulting, fmt.Errorf("db error: %w", err)
	}
}

func rowToWallet(row pgx.CollectableRow) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.UserID, &w.UserType, &w.RFIDCardTag, &w.Balance, &w.ModifiedAt)
	return w, err
}
