package authmodule

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
	"github.com/adriandotdev/pnc-topup/internal/logger"
)

const requestTimeout = 10 * time.Second

// Error is returned when authorizer answers with non 2xx status or can't be reached.
// StatusCode is zero for transport failures.
type Error struct {
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("authmodule: status_code: %d, error: %v", e.StatusCode, e.Err)
}

// Unwrap maps 4xx to apperrors.ErrAuthBadRequest and the rest to apperrors.ErrAuthUnavailable
func (e *Error) Unwrap() []error {
	kind := apperrors.ErrAuthUnavailable
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		kind = apperrors.ErrAuthBadRequest
	}

	return []error{kind, e.Err}
}

type Config struct {
	URL           string
	GrantType     string
	Authorization string // basic credential, sent as is after 'Basic '
}

// Client obtains short living credentials for payment gateway calls
type Client struct {
	config Config
	client *http.Client
	logger logger.Logger
}

func NewClient(cfg Config, client *http.Client, l logger.Logger) *Client {
	if client == nil {
		client = &http.Client{}
	}

	return &Client{
		config: cfg,
		client: client,
		logger: l,
	}
}

type authorizeRequest struct {
	GrantType string `json:"grant_type"`
}

type authorizeResponse struct {
	Data struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

// Authorize returns bearer credential accepted by payment gateways
func (c *Client) Authorize(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	body, err := json.Marshal(authorizeRequest{GrantType: c.config.GrantType})
	if err != nil {
		return "", fmt.Errorf("failed to encode authorize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+c.config.Authorization)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("Authorizer is not reachable", "error", err)
		return "", &Error{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Warn("Authorizer rejected request", "status_code", resp.StatusCode)
		return "", &Error{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status code %d", resp.StatusCode)}
	}

	var ar authorizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return "", fmt.Errorf("failed to decode authorize response: %w", err)
	}

	if ar.Data.AccessToken == "" {
		return "", errors.New("authorizer returned empty access token")
	}

	return ar.Data.AccessToken, nil
}
