package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
	"github.com/adriandotdev/pnc-topup/internal/models"
)

type ClientRepo struct {
	DB DBTX
}

const createClient = `-- name: CreateClient
INSERT INTO api_clients (id, username, password_hash)
VALUES ($1, $2, $3)
RETURNING id, username, password_hash, created_at
`

func (r *ClientRepo) CreateClient(ctx context.Context, username string, passwordHash string) (models.Client, error) {
	rows, _ := r.DB.Query(ctx, createClient, uuid.New(), username, passwordHash)
	client, err := pgx.CollectOneRow(rows, rowToClient)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return client, apperrors.ErrClientAlreadyExists
		}

		return client, fmt.Errorf("db error: %w", err)
	}

	return client, nil
}

const getClientByUsername = `-- name: GetClientByUsername
SELECT id, username, password_hash, created_at
FROM api_clients
WHERE username = $1
`

func (r *ClientRepo) GetClientByUsername(ctx context.Context, username string) (models.Client, error) {
	rows, _ := r.DB.Query(ctx, getClientByUsername, username)
	client, err := pgx.CollectOneRow(rows, rowToClient)

	switch {
	case err == nil:
		return client, nil
	case errors.Is(err, pgx.ErrNoRows):
		return client, apperrors.ErrClientNotFound
	default:
		return client, fmt.Errorf("db error: %w", err)
	}
}

func rowToClient(row pgx.CollectableRow) (models.Client, error) {
	var c models.Client
	err := row.Scan(&c.ID, &c.Username, &c.PasswordHash, &c.CreatedAt)
	return c, err
}
