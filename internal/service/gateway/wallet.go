package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/adriandotdev/pnc-topup/internal/logger"
)

type WalletConfig struct {
	SourceURL  string
	PaymentURL string
}

// WalletClient talks to e-wallet (GCash-style) gateway: source first, capture after user approval
type WalletClient struct {
	config WalletConfig
	client *http.Client
	logger logger.Logger
}

func NewWalletClient(cfg WalletConfig, client *http.Client, l logger.Logger) *WalletClient {
	if client == nil {
		client = &http.Client{}
	}

	return &WalletClient{
		config: cfg,
		client: client,
		logger: l,
	}
}

type walletSourceRequest struct {
	UserID   int64     `json:"user_id"`
	Amount   int64     `json:"amount"`
	TopupID  uuid.UUID `json:"topup_id"`
	UserType string    `json:"user_type"`
	PNCType  string    `json:"pnc_type"`
}

type walletSourceResponse struct {
	Result struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				Status   string `json:"status"`
				Redirect struct {
					CheckoutURL string `json:"checkout_url"`
				} `json:"redirect"`
			} `json:"attributes"`
		} `json:"data"`
	} `json:"result"`
}

// CreateSource mints a source for amount in minor units
func (c *WalletClient) CreateSource(ctx context.Context, credential string, amount int64, userID int64, topupID uuid.UUID) (Source, error) {
	var resp walletSourceResponse

	err := postJSON(ctx, c.client, c.config.SourceURL, credential, walletSourceRequest{
		UserID:   userID,
		Amount:   amount,
		TopupID:  topupID,
		UserType: userType,
		PNCType:  pncType,
	}, &resp)
	if err != nil {
		c.logger.Warn("Failed to create wallet source", "topup_id", topupID, "error", err)
		return Source{}, err
	}

	data := resp.Result.Data
	if data.ID == "" || data.Attributes.Redirect.CheckoutURL == "" {
		return Source{}, NewError(CodeUnknown, http.StatusOK, errors.New("source without id or checkout url"))
	}

	c.logger.Debug("Wallet source created", "topup_id", topupID, "transaction_id", data.ID, "status", data.Attributes.Status)
	return Source{
		TransactionID: data.ID,
		Status:        data.Attributes.Status,
		RedirectURL:   data.Attributes.Redirect.CheckoutURL,
	}, nil
}

type walletPaymentRequest struct {
	Amount              int64  `json:"amount"`
	Description         string `json:"description"`
	Currency            string `json:"currency"`
	StatementDescriptor string `json:"statement_descriptor"`
	ID                  string `json:"id"`
	Type                string `json:"type"`
}

type walletPaymentResponse struct {
	Data struct {
		Attributes struct {
			Status string `json:"status"`
		} `json:"attributes"`
	} `json:"data"`
}

// ConfirmSource captures approved source. Credential is the token the gateway redirected with
func (c *WalletClient) ConfirmSource(ctx context.Context, credential string, amount int64, description string, transactionID string) (string, error) {
	var resp walletPaymentResponse

	err := postJSON(ctx, c.client, c.config.PaymentURL, credential, walletPaymentRequest{
		Amount:              amount,
		Description:         description,
		Currency:            currency,
		StatementDescriptor: statementDescriptor,
		ID:                  transactionID,
		Type:                "source",
	}, &resp)
	if err != nil {
		c.logger.Warn("Failed to capture wallet source", "transaction_id", transactionID, "error", err)
		return "", err
	}

	return resp.Data.Attributes.Status, nil
}
