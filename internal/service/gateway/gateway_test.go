package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
	"github.com/adriandotdev/pnc-topup/internal/logger"
)

// Fake gateway endpoint that records requests and answers with fixed status and body
type fakeEndpoint struct {
	mu       sync.Mutex
	requests []recorded

	status int
	body   string
}

type recorded struct {
	Authorization string
	Body          map[string]any
}

func (f *fakeEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.requests = append(f.requests, recorded{Authorization: r.Header.Get("Authorization"), Body: body})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = w.Write([]byte(f.body))
}

func (f *fakeEndpoint) calls() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.requests...)
}

func startFake(t *testing.T, status int, body string) (*fakeEndpoint, string) {
	fake := &fakeEndpoint{status: status, body: body}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv.URL
}

func TestWalletClient_CreateSource(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		fake, url := startFake(t, http.StatusOK, `{"result":{"data":{"id":"src_1","attributes":{"status":"pending","redirect":{"checkout_url":"https://pay.example/checkout/src_1"}}}}}`)
		c := NewWalletClient(WalletConfig{SourceURL: url}, nil, logger.NewNoOpLogger())
		topupID := uuid.New()

		src, err := c.CreateSource(t.Context(), "upstream-token", 10050, 42, topupID)

		require.NoError(t, err)
		require.Equal(t, Source{TransactionID: "src_1", Status: "pending", RedirectURL: "https://pay.example/checkout/src_1"}, src)

		calls := fake.calls()
		require.Len(t, calls, 1)
		require.Equal(t, "Bearer upstream-token", calls[0].Authorization)
		require.Equal(t, map[string]any{
			"user_id":   float64(42),
			"amount":    float64(10050),
			"topup_id":  topupID.String(),
			"user_type": "tenant",
			"pnc_type":  "pnc",
		}, calls[0].Body)
	})

	t.Run("no checkout url", func(t *testing.T) {
		_, url := startFake(t, http.StatusOK, `{"result":{"data":{"id":"src_1","attributes":{"status":"pending"}}}}`)
		c := NewWalletClient(WalletConfig{SourceURL: url}, nil, logger.NewNoOpLogger())

		_, err := c.CreateSource(t.Context(), "upstream-token", 10000, 42, uuid.New())

		var gwErr *Error
		require.ErrorAs(t, err, &gwErr)
		require.Equal(t, CodeUnknown, gwErr.Code)
	})

	t.Run("5xx unavailable", func(t *testing.T) {
		_, url := startFake(t, http.StatusServiceUnavailable, `{}`)
		c := NewWalletClient(WalletConfig{SourceURL: url}, nil, logger.NewNoOpLogger())

		_, err := c.CreateSource(t.Context(), "upstream-token", 10000, 42, uuid.New())

		require.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
		var gwErr *Error
		require.ErrorAs(t, err, &gwErr)
		require.Equal(t, CodeUnavailable, gwErr.Code)
		require.Equal(t, http.StatusServiceUnavailable, gwErr.StatusCode)
	})

	t.Run("4xx bad request", func(t *testing.T) {
		_, url := startFake(t, http.StatusUnprocessableEntity, `{"errors":[]}`)
		c := NewWalletClient(WalletConfig{SourceURL: url}, nil, logger.NewNoOpLogger())

		_, err := c.CreateSource(t.Context(), "upstream-token", 10000, 42, uuid.New())

		require.NotErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
		var gwErr *Error
		require.ErrorAs(t, err, &gwErr)
		require.Equal(t, CodeBadRequest, gwErr.Code)
	})

	t.Run("garbage body", func(t *testing.T) {
		_, url := startFake(t, http.StatusOK, `<html>`)
		c := NewWalletClient(WalletConfig{SourceURL: url}, nil, logger.NewNoOpLogger())

		_, err := c.CreateSource(t.Context(), "upstream-token", 10000, 42, uuid.New())

		var gwErr *Error
		require.ErrorAs(t, err, &gwErr)
		require.Equal(t, CodeUnknown, gwErr.Code)
	})

	t.Run("canceled context is not unavailable", func(t *testing.T) {
		_, url := startFake(t, http.StatusOK, `{}`)
		c := NewWalletClient(WalletConfig{SourceURL: url}, nil, logger.NewNoOpLogger())
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := c.CreateSource(ctx, "upstream-token", 10000, 42, uuid.New())

		require.ErrorIs(t, err, context.Canceled)
		require.NotErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	})
}

func TestWalletClient_ConfirmSource(t *testing.T) {
	fake, url := startFake(t, http.StatusOK, `{"data":{"id":"pay_1","attributes":{"status":"paid"}}}`)
	c := NewWalletClient(WalletConfig{PaymentURL: url}, nil, logger.NewNoOpLogger())

	status, err := c.ConfirmSource(t.Context(), "payment-token", 25050, "desc-1", "src_1")

	require.NoError(t, err)
	require.Equal(t, StatusPaid, status)

	calls := fake.calls()
	require.Len(t, calls, 1)
	require.Equal(t, "Bearer payment-token", calls[0].Authorization)
	require.Equal(t, map[string]any{
		"amount":               float64(25050),
		"description":          "desc-1",
		"currency":             "PHP",
		"statement_descriptor": "ParkNcharge",
		"id":                   "src_1",
		"type":                 "source",
	}, calls[0].Body)
}

func TestCardClient_CreateSource(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		fake, url := startFake(t, http.StatusOK, `{"data":{"id":"pi_1","attributes":{"status":"awaiting_next_action","client_key":"pi_1_key","next_action":{"redirect":{"url":"https://card.example/pi_1"}}}}}`)
		c := NewCardClient(CardConfig{PaymentURL: url}, nil, logger.NewNoOpLogger())

		src, err := c.CreateSource(t.Context(), "upstream-token", 10000, 42, "desc-1")

		require.NoError(t, err)
		require.Equal(t, Source{TransactionID: "pi_1", ClientKey: "pi_1_key", Status: StatusAwaitingNextAction, RedirectURL: "https://card.example/pi_1"}, src)

		calls := fake.calls()
		require.Len(t, calls, 1)
		require.Equal(t, "Bearer upstream-token", calls[0].Authorization)
		require.Equal(t, map[string]any{
			"user_id":                float64(42),
			"type":                   "paymaya",
			"description":            "desc-1",
			"amount":                 float64(10000),
			"payment_method_allowed": "paymaya",
			"statement_descriptor":   "ParkNcharge",
			"user_type":              "tenant",
			"pnc_type":               "pnc",
		}, calls[0].Body)
	})

	t.Run("unexpected status", func(t *testing.T) {
		_, url := startFake(t, http.StatusOK, `{"data":{"id":"pi_1","attributes":{"status":"succeeded","client_key":"pi_1_key","next_action":{"redirect":{"url":"https://card.example/pi_1"}}}}}`)
		c := NewCardClient(CardConfig{PaymentURL: url}, nil, logger.NewNoOpLogger())

		_, err := c.CreateSource(t.Context(), "upstream-token", 10000, 42, "desc-1")

		var gwErr *Error
		require.ErrorAs(t, err, &gwErr)
		require.Equal(t, CodeUnknown, gwErr.Code)
	})
}

func TestCardClient_GetIntentStatus(t *testing.T) {
	fake, url := startFake(t, http.StatusOK, `{"data":{"data":{"id":"pi_1","attributes":{"status":"processing"}}}}`)
	c := NewCardClient(CardConfig{GetPaymentURL: url}, nil, logger.NewNoOpLogger())

	status, err := c.GetIntentStatus(t.Context(), "payment-token", "pi_1", "pi_1_key")

	require.NoError(t, err)
	require.Equal(t, StatusProcessing, status)

	calls := fake.calls()
	require.Len(t, calls, 1)
	require.Equal(t, "Bearer payment-token", calls[0].Authorization)
	require.Equal(t, map[string]any{"payment_intent": "pi_1", "client_key": "pi_1_key"}, calls[0].Body)
}
