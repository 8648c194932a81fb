package handlers

import (
	"errors"
	"net/http"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
	"github.com/adriandotdev/pnc-topup/internal/handlers/render"
	"github.com/adriandotdev/pnc-topup/internal/logger"
)

const messageInternal = "Internal Server Error"

// Known failures and how they are shown to the caller.
// Order matters: the first matching error wins
var errorTable = []struct {
	err     error
	code    int
	message string
}{
	{apperrors.ErrInvalidTopupType, http.StatusBadRequest, "INVALID_TOPUP_TYPE"},
	{apperrors.ErrInvalidMinimumAmount, http.StatusBadRequest, "INVALID_MINIMUM_AMOUNT"},
	{apperrors.ErrInvalidMaximumAmount, http.StatusBadRequest, "INVALID_MAXIMUM_AMOUNT"},
	{apperrors.ErrAuthBadRequest, http.StatusBadRequest, render.MessageBadRequest},
	{apperrors.ErrAlreadyPaid, http.StatusBadRequest, "ALREADY_PAID"},
	{apperrors.ErrAlreadyFailed, http.StatusBadRequest, "ALREADY_FAILED"},
	{apperrors.ErrInvalidPaymentToken, http.StatusUnauthorized, "INVALID_PAYMENT_TOKEN"},
	{apperrors.ErrTokenExpired, http.StatusForbidden, "TOKEN_EXPIRED"},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	{apperrors.ErrInvalidBasicToken, http.StatusForbidden, "INVALID_BASIC_TOKEN"},
	{apperrors.ErrTopupNotFound, http.StatusNotFound, "TOPUP_ID_NOT_FOUND"},
	{apperrors.ErrTransactionNotFound, http.StatusNotFound, "TRANSACTION_ID_NOT_FOUND"},
	{apperrors.ErrAuthUnavailable, http.StatusInternalServerError, "UPSTREAM_UNAVAILABLE"},
	{apperrors.ErrUpstreamUnavailable, http.StatusInternalServerError, "UPSTREAM_UNAVAILABLE"},
	{apperrors.ErrConfirmationTimeout, http.StatusInternalServerError, "CONFIRMATION_TIMEOUT"},
}

// renderError writes the envelope for err. Error text itself is never sent to the caller
func renderError(w http.ResponseWriter, l logger.Logger, err error) {
	var rejected *apperrors.LedgerRejectedError
	if errors.As(err, &rejected) {
		render.ServiceErrorWithData(w, rejected.Indicator, http.StatusBadRequest, map[string]string{
			"status_indicator": rejected.Indicator,
		})
		return
	}

	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			if e.code >= http.StatusInternalServerError {
				l.Warn("Request failed", "error", err)
			}
			render.ServiceError(w, e.message, e.code)
			return
		}
	}

	l.Error("Unexpected error", "error", err)
	render.ServiceError(w, messageInternal, http.StatusInternalServerError)
}
