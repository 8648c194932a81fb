package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
	"github.com/adriandotdev/pnc-topup/internal/models"
	"github.com/adriandotdev/pnc-topup/internal/repository"
)

type TopupRepo struct {
	DB DBTX
}

// Keep in sync with rowToTopup
const topupColumns = `id, user_id, user_type, rfid_card_tag, kind, provider, amount, status,
	provider_transaction_id, client_key, description, initial_balance, resulting_balance,
	created_at, modified_at`

// Insert topup for user wallet only; no rows returned if user has no wallet
const createTopup = `-- name: CreateTopup
INSERT INTO topups (id, user_id, user_type, rfid_card_tag, kind, provider, amount, status, created_at, modified_at)
SELECT $1::uuid, w.user_id, $3::text, w.rfid_card_tag, $4::text, $5::text, $6::numeric, 'PENDING', $7::timestamptz, $7::timestamptz
FROM wallets w
WHERE w.user_id = $2
RETURNING ` + topupColumns

func (r *TopupRepo) CreateTopup(ctx context.Context, p repository.CreateTopupParams) (models.Topup, error) {
	now := time.Now()

	rows, _ := r.DB.Query(ctx, createTopup, uuid.New(), p.UserID, p.UserType, p.Kind, p.Provider, p.Amount, now)
	topup, err := pgx.CollectOneRow(rows, rowToTopup)

	switch {
	case err == nil:
		return topup, nil
	case errors.Is(err, pgx.ErrNoRows):
		return topup, apperrors.ErrWalletNotFound
	default:
		return topup, fmt.Errorf("db error: %w", err)
	}
}

const attachTransaction = `-- name: AttachTransaction
UPDATE topups
SET provider_transaction_id = $2, client_key = COALESCE($3, client_key), modified_at = $4
WHERE id = $1
RETURNING ` + topupColumns

func (r *TopupRepo) AttachTransaction(ctx context.Context, id uuid.UUID, transactionID string, clientKey *string) (models.Topup, error) {
	rows, _ := r.DB.Query(ctx, attachTransaction, id, transactionID, clientKey, time.Now())
	topup, err := pgx.CollectOneRow(rows, rowToTopup)

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return topup, nil
	case errors.Is(err, pgx.ErrNoRows):
		return topup, apperrors.ErrTopupNotFound
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation:
		return topup, apperrors.ErrTransactionIDTaken
	default:
		return topup, fmt.Errorf("db error: %w", err)
	}
}

// The status check lives in WHERE, so concurrent writers serialize on the row lock
// and only the first one sees a PENDING row
const updateStatus = `-- name: UpdateStatus if topup is pending
UPDATE topups
SET status = $2, description = COALESCE($3, description), modified_at = $4
WHERE id = $1 AND status = 'PENDING'
RETURNING ` + topupColumns

func (r *TopupRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TopupStatus, description *string) (models.Topup, error) {
	rows, _ := r.DB.Query(ctx, updateStatus, id, status, description, time.Now())
	topup, err := pgx.CollectOneRow(rows, rowToTopup)

	switch {
	case err == nil:
		return topup, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Either topup does not exist or another writer has settled it
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return current, err
		}
		return current, apperrors.ErrTopupNotPending
	default:
		return topup, fmt.Errorf("db error: %w", err)
	}
}

const setBalanceSnapshot = `-- name: SetBalanceSnapshot
UPDATE topups
SET initial_balance = $2, resulting_balance = $3, modified_at = $4
WHERE id = $1
RETURNING ` + topupColumns

func (r *TopupRepo) SetBalanceSnapshot(ctx context.Context, id uuid.UUID, initial, resulting decimal.Decimal) (models.Topup, error) {
	rows, _ := r.DB.Query(ctx, setBalanceSnapshot, id, initial, resulting, time.Now())
	topup, err := pgx.CollectOneRow(rows, rowToTopup)

	switch {
	case err == nil:
		return topup, nil
	case errors.Is(err, pgx.ErrNoRows):
		return topup, apperrors.ErrTopupNotFound
	default:
		return topup, fmt.Errorf("db error: %w", err)
	}
}

const getTopupByID = `-- name: GetTopupByID
SELECT ` + topupColumns + `
FROM topups
WHERE id = $1
`

func (r *TopupRepo) GetByID(ctx context.Context, id uuid.UUID) (models.Topup, error) {
	rows, _ := r.DB.Query(ctx, getTopupByID, id)
	topup, err := pgx.CollectOneRow(rows, rowToTopup)

	switch {
	case err == nil:
		return topup, nil
	case errors.Is(err, pgx.ErrNoRows):
		return topup, apperrors.ErrTopupNotFound
	default:
		return topup, fmt.Errorf("db error: %w", err)
	}
}

const getTopupByTransactionID = `-- name: GetTopupByTransactionID
SELECT ` + topupColumns + `
FROM topups
WHERE provider_transaction_id = $1
`

func (r *TopupRepo) GetByTransactionID(ctx context.Context, transactionID string) (models.Topup, error) {
	rows, _ := r.DB.Query(ctx, getTopupByTransactionID, transactionID)
	topup, err := pgx.CollectOneRow(rows, rowToTopup)

	switch {
	case err == nil:
		return topup, nil
	case errors.Is(err, pgx.ErrNoRows):
		return topup, apperrors.ErrTransactionNotFound
	default:
		return topup, fmt.Errorf("db error: %w", err)
	}
}

const getTopupStatus = `-- name: GetTopupStatus
SELECT status, provider_transaction_id
FROM topups
WHERE provider_transaction_id = $1
`

func (r *TopupRepo) GetStatus(ctx context.Context, transactionID string) (models.TopupResult, error) {
	rows, _ := r.DB.Query(ctx, getTopupStatus, transactionID)
	result, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.TopupResult, error) {
		var res models.TopupResult
		err := row.Scan(&res.Status, &res.TransactionID)
		return res, err
	})

	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, pgx.ErrNoRows):
		return result, apperrors.ErrTransactionNotFound
	default:
		return result, fmt.Errorf("db error: %w", err)
	}
}

const listStaleTopups = `-- name: ListStaleTopups
SELECT ` + topupColumns + `
FROM topups
WHERE status = 'PENDING' AND created_at < $1
ORDER BY created_at
LIMIT $2
`

func (r *TopupRepo) ListStale(ctx context.Context, createdBefore time.Time, limit int) ([]models.Topup, error) {
	rows, _ := r.DB.Query(ctx, listStaleTopups, createdBefore, limit)
	topups, err := pgx.CollectRows(rows, rowToTopup)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return topups, nil
}

func rowToTopup(row pgx.CollectableRow) (models.Topup, error) {
	var t models.Topup
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.UserType,
		&t.RFIDCardTag,
		&t.Kind,
		&t.Provider,
		&t.Amount,
		&t.Status,
		&t.TransactionID,
		&t.ClientKey,
		&t.Description,
		&t.InitialBalance,
		&t.ResultingBalance,
		&t.CreatedAt,
		&t.ModifiedAt,
	)
	return t, err
}
