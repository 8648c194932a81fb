package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
)

const (
	CodeBadRequest  = "bad_request"
	CodeUnavailable = "unavailable"
	CodeUnknown     = "unknown"
)

const (
	requestTimeout = 10 * time.Second

	currency            = "PHP"
	statementDescriptor = "ParkNcharge"
	userType            = "tenant"
	pncType             = "pnc"
)

// Gateway reported statuses
const (
	StatusPaid                  = "paid"
	StatusAwaitingNextAction    = "awaiting_next_action"
	StatusSucceeded             = "succeeded"
	StatusAwaitingPaymentMethod = "awaiting_payment_method"
	StatusProcessing            = "processing"
)

type Error struct {
	Code       string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: code: %s, status_code: %d, error: %v", e.Code, e.StatusCode, e.Err)
}

// Unwrap lets callers match unavailable gateway with apperrors.ErrUpstreamUnavailable
func (e *Error) Unwrap() []error {
	if e.Code == CodeUnavailable {
		return []error{apperrors.ErrUpstreamUnavailable, e.Err}
	}
	return []error{e.Err}
}

func NewError(code string, statusCode int, err error) *Error {
	return &Error{
		Code:       code,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Source is a payment intent minted by gateway
type Source struct {
	TransactionID string
	ClientKey     string // card only
	Status        string
	RedirectURL   string
}

// postJSON sends in as JSON body and decodes response body into out
func postJSON(parent context.Context, client *http.Client, url string, bearer string, in any, out any) error {
	ctx, cancel := context.WithTimeout(parent, requestTimeout)
	defer cancel()

	body, err := json.Marshal(in)
	if err != nil {
		return NewError(CodeUnknown, 0, fmt.Errorf("failed to encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return NewError(CodeUnknown, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := client.Do(req)
	if err != nil {
		// Caller gave up, not the gateway
		if parent.Err() != nil {
			return fmt.Errorf("gateway request aborted: %w", parent.Err())
		}
		return NewError(CodeUnavailable, 0, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close() // nolint:errcheck

	switch {
	case resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return NewError(CodeUnavailable, resp.StatusCode, fmt.Errorf("unexpected status code %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		_, _ = io.Copy(io.Discard, resp.Body)
		return NewError(CodeBadRequest, resp.StatusCode, fmt.Errorf("request rejected with status code %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return NewError(CodeUnknown, resp.StatusCode, fmt.Errorf("unexpected status code %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewError(CodeUnknown, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}

	return nil
}
