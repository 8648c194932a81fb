package handlers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/adriandotdev/pnc-topup/internal/handlers/render"
	"github.com/adriandotdev/pnc-topup/internal/handlers/userctx"
	"github.com/adriandotdev/pnc-topup/internal/logger"
	"github.com/adriandotdev/pnc-topup/internal/models"
	"github.com/adriandotdev/pnc-topup/internal/service/topup"
)

type topupService interface {
	Initiate(ctx context.Context, user models.User, topupType string, amount decimal.Decimal) (topup.Checkout, error)
	Verify(ctx context.Context, transactionID string) (models.TopupResult, error)
}

type callbackService interface {
	HandleWalletRedirect(ctx context.Context, rawToken string, topupID string) (models.TopupResult, error)
	HandleCardRedirect(ctx context.Context, token string, transactionID string) (models.TopupResult, error)
}

type topupRequest struct {
	TopupType string `json:"topup_type" validate:"notblank"`

	// decimal accepts both json number and string
	Amount *decimal.Decimal `json:"amount" validate:"required"`
}

type checkoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

type resultResponse struct {
	TopupStatus   models.TopupStatus `json:"topup_status"`
	TransactionID string             `json:"transaction_id"`
}

func newResultResponse(res models.TopupResult) resultResponse {
	return resultResponse{TopupStatus: res.Status, TransactionID: res.TransactionID}
}

func handleTopup(topups topupService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, messageInternal, http.StatusInternalServerError)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, 4096)
		req, err := render.BindAndValidate[topupRequest](w, r)
		if err != nil {
			return
		}

		checkout, err := topups.Initiate(r.Context(), user, req.TopupType, *req.Amount)
		if err != nil {
			renderError(w, l, err)
			return
		}

		render.JSON(w, checkoutResponse{CheckoutURL: checkout.CheckoutURL})
	})
}

func handleWalletRedirect(callbacks callbackService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := callbacks.HandleWalletRedirect(r.Context(), r.PathValue("token"), r.PathValue("topup_id"))
		if err != nil {
			renderError(w, l, err)
			return
		}

		render.JSON(w, newResultResponse(res))
	})
}

func handleCardRedirect(callbacks callbackService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := callbacks.HandleCardRedirect(r.Context(), r.PathValue("token"), r.PathValue("transaction_id"))
		if err != nil {
			renderError(w, l, err)
			return
		}

		render.JSON(w, newResultResponse(res))
	})
}

func handleVerify(topups topupService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := topups.Verify(r.Context(), r.PathValue("transaction_id"))
		if err != nil {
			renderError(w, l, err)
			return
		}

		render.JSON(w, newResultResponse(res))
	})
}
