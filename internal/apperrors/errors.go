package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTopupType     = errors.New("invalid topup type")
	ErrInvalidMinimumAmount = errors.New("amount is below the minimum topup amount")
	ErrInvalidMaximumAmount = errors.New("amount is above the maximum topup amount")
	ErrInvalidAmount        = errors.New("amount is not a valid decimal")

	ErrTopupNotFound       = errors.New("topup not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTransactionIDTaken  = errors.New("provider transaction id already attached to another topup")
	ErrWalletNotFound      = errors.New("wallet with rfid card not found")
	ErrTopupNotPending     = errors.New("topup is not pending anymore")
	ErrLedgerRejected      = errors.New("ledger rejected topup")

	ErrAlreadyPaid   = errors.New("topup already paid")
	ErrAlreadyFailed = errors.New("topup already failed")

	ErrAuthBadRequest      = errors.New("authorizer rejected the request")
	ErrAuthUnavailable     = errors.New("authorizer unavailable")
	ErrUpstreamUnavailable = errors.New("payment gateway unavailable")
	ErrConfirmationTimeout = errors.New("payment confirmation timed out")

	ErrInvalidPaymentToken = errors.New("invalid payment token")
	ErrTokenExpired        = errors.New("token expired")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidBasicToken   = errors.New("invalid basic token")

	ErrClientNotFound      = errors.New("api client not found")
	ErrClientAlreadyExists = errors.New("api client already exists")
)

// Ledger status indicators
const (
	IndicatorSuccess         = "SUCCESS"
	IndicatorRFIDCardMissing = "RFID_CARD_NOT_FOUND"
)

// LedgerRejectedError is returned when the ledger refuses to create a topup.
// Indicator carries the ledger's reason and is exposed to the caller.
type LedgerRejectedError struct {
	Indicator string
}

func NewLedgerRejected(indicator string) *LedgerRejectedError {
	return &LedgerRejectedError{Indicator: indicator}
}

func (e *LedgerRejectedError) Error() string {
	return fmt.Sprintf("ledger rejected topup: %s", e.Indicator)
}

func (e *LedgerRejectedError) Unwrap() error {
	return ErrLedgerRejected
}
