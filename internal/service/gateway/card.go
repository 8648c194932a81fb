package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/adriandotdev/pnc-topup/internal/logger"
)

type CardConfig struct {
	PaymentURL    string
	GetPaymentURL string
}

// CardClient talks to card (Maya-style) gateway: payment intent first, then status polling
type CardClient struct {
	config CardConfig
	client *http.Client
	logger logger.Logger
}

func NewCardClient(cfg CardConfig, client *http.Client, l logger.Logger) *CardClient {
	if client == nil {
		client = &http.Client{}
	}

	return &CardClient{
		config: cfg,
		client: client,
		logger: l,
	}
}

type cardSourceRequest struct {
	UserID               int64  `json:"user_id"`
	Type                 string `json:"type"`
	Description          string `json:"description"`
	Amount               int64  `json:"amount"`
	PaymentMethodAllowed string `json:"payment_method_allowed"`
	StatementDescriptor  string `json:"statement_descriptor"`
	UserType             string `json:"user_type"`
	PNCType              string `json:"pnc_type"`
}

type cardSourceResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Status     string `json:"status"`
			ClientKey  string `json:"client_key"`
			NextAction struct {
				Redirect struct {
					URL string `json:"url"`
				} `json:"redirect"`
			} `json:"next_action"`
		} `json:"attributes"`
	} `json:"data"`
}

// CreateSource mints payment intent for amount in minor units.
// Intent is usable only while it awaits next action (user redirect)
func (c *CardClient) CreateSource(ctx context.Context, credential string, amount int64, userID int64, description string) (Source, error) {
	var resp cardSourceResponse

	err := postJSON(ctx, c.client, c.config.PaymentURL, credential, cardSourceRequest{
		UserID:               userID,
		Type:                 "paymaya",
		Description:          description,
		Amount:               amount,
		PaymentMethodAllowed: "paymaya",
		StatementDescriptor:  statementDescriptor,
		UserType:             userType,
		PNCType:              pncType,
	}, &resp)
	if err != nil {
		c.logger.Warn("Failed to create card payment intent", "user_id", userID, "error", err)
		return Source{}, err
	}

	data := resp.Data
	if data.Attributes.Status != StatusAwaitingNextAction {
		return Source{}, NewError(CodeUnknown, http.StatusOK, fmt.Errorf("payment intent in unexpected status %q", data.Attributes.Status))
	}
	if data.ID == "" || data.Attributes.ClientKey == "" || data.Attributes.NextAction.Redirect.URL == "" {
		return Source{}, NewError(CodeUnknown, http.StatusOK, errors.New("payment intent without id, client key or redirect url"))
	}

	c.logger.Debug("Card payment intent created", "user_id", userID, "transaction_id", data.ID)
	return Source{
		TransactionID: data.ID,
		ClientKey:     data.Attributes.ClientKey,
		Status:        data.Attributes.Status,
		RedirectURL:   data.Attributes.NextAction.Redirect.URL,
	}, nil
}

type intentStatusRequest struct {
	PaymentIntent string `json:"payment_intent"`
	ClientKey     string `json:"client_key"`
}

type intentStatusResponse struct {
	Data struct {
		Data struct {
			Attributes struct {
				Status string `json:"status"`
			} `json:"attributes"`
		} `json:"data"`
	} `json:"data"`
}

func (c *CardClient) GetIntentStatus(ctx context.Context, credential string, transactionID string, clientKey string) (string, error) {
	var resp intentStatusResponse

	err := postJSON(ctx, c.client, c.config.GetPaymentURL, credential, intentStatusRequest{
		PaymentIntent: transactionID,
		ClientKey:     clientKey,
	}, &resp)
	if err != nil {
		c.logger.Warn("Failed to get payment intent status", "transaction_id", transactionID, "error", err)
		return "", err
	}

	return resp.Data.Data.Attributes.Status, nil
}
