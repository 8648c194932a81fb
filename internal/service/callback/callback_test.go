package callback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/adriandotdev/pnc-topup/internal/apperrors"
	"github.com/adriandotdev/pnc-topup/internal/logger"
	"github.com/adriandotdev/pnc-topup/internal/models"
	"github.com/adriandotdev/pnc-topup/internal/repository"
	"github.com/adriandotdev/pnc-topup/internal/repository/postgres"
	"github.com/adriandotdev/pnc-topup/internal/service/gateway"
	"github.com/adriandotdev/pnc-topup/internal/service/paymenttoken"
	"github.com/adriandotdev/pnc-topup/internal/service/topup"
	"github.com/adriandotdev/pnc-topup/internal/testutil"
)

// Wallet gateway payment endpoint that records captures
type fakeWalletGateway struct {
	mu       sync.Mutex
	captures []capture

	status     int
	paymentRes string
}

type capture struct {
	Authorization string
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	ID            string `json:"id"`
}

func (f *fakeWalletGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var c capture
	_ = json.NewDecoder(r.Body).Decode(&c)
	c.Authorization = r.Header.Get("Authorization")

	f.mu.Lock()
	f.captures = append(f.captures, c)
	f.mu.Unlock()

	w.WriteHeader(f.status)
	_, _ = w.Write([]byte(`{"data":{"attributes":{"status":"` + f.paymentRes + `"}}}`))
}

func (f *fakeWalletGateway) Captures() []capture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capture(nil), f.captures...)
}

type fakeCard struct {
	mu          sync.Mutex
	credentials []string
}

func (f *fakeCard) CreateSource(context.Context, string, int64, int64, string) (gateway.Source, error) {
	return gateway.Source{}, nil
}

func (f *fakeCard) GetIntentStatus(_ context.Context, credential string, _ string, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credentials = append(f.credentials, credential)
	return gateway.StatusSucceeded, nil
}

func Test_Callback(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	key := testutil.RSAKey(t)
	verifier, err := paymenttoken.New(paymenttoken.Config{PublicKey: testutil.PublicKeyPEM(t, key), Issuer: paymenttoken.DefaultIssuer})
	require.NoError(t, err)
	validToken := testutil.SignPaymentToken(t, key, testutil.PaymentClaims(time.Hour))

	type env struct {
		s       *Service
		storage repository.Storage
		gateway *fakeWalletGateway
		card    *fakeCard
	}

	// Run test in transaction with wallet holding 50.00 for user 42
	withTx := func(t *testing.T, fn func(e env)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			_, err := storage.Wallet().CreateWallet(t.Context(), models.Wallet{UserID: 42, RFIDCardTag: "RFID-0042", Balance: decimal.NewFromInt(50)})
			require.NoError(t, err)

			gw := &fakeWalletGateway{status: http.StatusOK, paymentRes: gateway.StatusPaid}
			srv := httptest.NewServer(gw)
			defer srv.Close()

			card := &fakeCard{}
			topups := topup.NewService(topup.Config{PollInterval: time.Millisecond, PollTimeout: time.Second}, storage, nil, nil, card, logger.NewNoOpLogger())
			wallet := gateway.NewWalletClient(gateway.WalletConfig{PaymentURL: srv.URL}, srv.Client(), logger.NewNoOpLogger())

			fn(env{
				s:       NewService(topups, verifier, wallet, logger.NewNoOpLogger()),
				storage: storage,
				gateway: gw,
				card:    card,
			})
		})
	}

	// Pending topup as if the source has been created already
	pendingTopup := func(t *testing.T, e env, provider models.Provider, amount string, transactionID string) models.Topup {
		created, err := e.storage.Topup().CreateTopup(t.Context(), repository.CreateTopupParams{
			UserID:   42,
			UserType: models.UserTypeDriver,
			Kind:     models.KindTopup,
			Provider: provider,
			Amount:   decimal.RequireFromString(amount),
		})
		require.NoError(t, err)

		var clientKey *string
		if provider == models.ProviderCard {
			key := transactionID + "_key"
			clientKey = &key
		}
		attached, err := e.storage.Topup().AttachTransaction(t.Context(), created.ID, transactionID, clientKey)
		require.NoError(t, err)
		return attached
	}

	balance := func(t *testing.T, e env) string {
		w, err := e.storage.Wallet().GetWallet(t.Context(), 42)
		require.NoError(t, err)
		return w.Balance.StringFixed(2)
	}

	t.Run("HandleWalletRedirect", func(t *testing.T) {
		t.Run("paid", func(t *testing.T) {
			withTx(t, func(e env) {
				pending := pendingTopup(t, e, models.ProviderWallet, "100.50", "src_1")

				result, err := e.s.HandleWalletRedirect(t.Context(), validToken+"_1", pending.ID.String())

				require.NoError(t, err)
				require.Equal(t, models.TopupResult{Status: models.TopupPaid, TransactionID: "src_1"}, result)
				require.Equal(t, "150.50", balance(t, e))

				captures := e.gateway.Captures()
				require.Len(t, captures, 1)
				require.Equal(t, "Bearer "+validToken, captures[0].Authorization, "stripped token is the capture credential")
				require.Equal(t, int64(10050), captures[0].Amount, "amount comes from ledger")
				require.Equal(t, "src_1", captures[0].ID)
				_, err = uuid.Parse(captures[0].Description)
				require.NoError(t, err, "description has to be uuid")

				settled, err := e.storage.Topup().GetByID(t.Context(), pending.ID)
				require.NoError(t, err)
				require.Equal(t, captures[0].Description, *settled.Description, "sent description is stored")
			})
		})

		t.Run("gateway did not capture", func(t *testing.T) {
			withTx(t, func(e env) {
				e.gateway.paymentRes = "failed"
				pending := pendingTopup(t, e, models.ProviderWallet, "100", "src_1")

				result, err := e.s.HandleWalletRedirect(t.Context(), validToken+"_1", pending.ID.String())

				require.NoError(t, err)
				require.Equal(t, models.TopupFailed, result.Status)
				require.Equal(t, "50.00", balance(t, e))
			})
		})

		t.Run("cancel flag fails without gateway call", func(t *testing.T) {
			withTx(t, func(e env) {
				pending := pendingTopup(t, e, models.ProviderWallet, "100", "src_1")

				result, err := e.s.HandleWalletRedirect(t.Context(), "whatever_0", pending.ID.String())

				require.NoError(t, err)
				require.Equal(t, models.TopupResult{Status: models.TopupFailed, TransactionID: "src_1"}, result)
				require.Empty(t, e.gateway.Captures())
			})
		})

		t.Run("invalid token", func(t *testing.T) {
			withTx(t, func(e env) {
				pending := pendingTopup(t, e, models.ProviderWallet, "100", "src_1")

				_, err := e.s.HandleWalletRedirect(t.Context(), "not-a-jwt_1", pending.ID.String())

				require.ErrorIs(t, err, apperrors.ErrInvalidPaymentToken)
				require.Empty(t, e.gateway.Captures())

				current, err := e.storage.Topup().GetByID(t.Context(), pending.ID)
				require.NoError(t, err)
				require.Equal(t, models.TopupPending, current.Status)
			})
		})

		t.Run("expired token", func(t *testing.T) {
			withTx(t, func(e env) {
				pending := pendingTopup(t, e, models.ProviderWallet, "100", "src_1")
				expired := testutil.SignPaymentToken(t, key, testutil.PaymentClaims(-time.Minute))

				_, err := e.s.HandleWalletRedirect(t.Context(), expired+"_1", pending.ID.String())

				require.ErrorIs(t, err, apperrors.ErrTokenExpired)
				require.Empty(t, e.gateway.Captures())
			})
		})

		t.Run("too short token", func(t *testing.T) {
			withTx(t, func(e env) {
				pending := pendingTopup(t, e, models.ProviderWallet, "100", "src_1")

				_, err := e.s.HandleWalletRedirect(t.Context(), "_0", pending.ID.String())

				require.ErrorIs(t, err, apperrors.ErrInvalidPaymentToken)

				current, err := e.storage.Topup().GetByID(t.Context(), pending.ID)
				require.NoError(t, err)
				require.Equal(t, models.TopupPending, current.Status, "malformed token must not settle topup")
			})
		})

		t.Run("too short token reports topup state first", func(t *testing.T) {
			withTx(t, func(e env) {
				_, err := e.s.HandleWalletRedirect(t.Context(), "_0", uuid.NewString())
				require.ErrorIs(t, err, apperrors.ErrTopupNotFound)

				pending := pendingTopup(t, e, models.ProviderWallet, "100", "src_1")
				_, err = e.s.HandleWalletRedirect(t.Context(), validToken+"_1", pending.ID.String())
				require.NoError(t, err)

				_, err = e.s.HandleWalletRedirect(t.Context(), "x", pending.ID.String())
				require.ErrorIs(t, err, apperrors.ErrAlreadyPaid)
			})
		})

		t.Run("unknown topup", func(t *testing.T) {
			withTx(t, func(e env) {
				_, err := e.s.HandleWalletRedirect(t.Context(), validToken+"_1", uuid.NewString())
				require.ErrorIs(t, err, apperrors.ErrTopupNotFound)

				_, err = e.s.HandleWalletRedirect(t.Context(), validToken+"_1", "not-uuid")
				require.ErrorIs(t, err, apperrors.ErrTopupNotFound)
			})
		})

		t.Run("second redirect is already paid", func(t *testing.T) {
			withTx(t, func(e env) {
				pending := pendingTopup(t, e, models.ProviderWallet, "100", "src_1")
				_, err := e.s.HandleWalletRedirect(t.Context(), validToken+"_1", pending.ID.String())
				require.NoError(t, err)

				_, err = e.s.HandleWalletRedirect(t.Context(), validToken+"_1", pending.ID.String())

				require.ErrorIs(t, err, apperrors.ErrAlreadyPaid)
				require.Len(t, e.gateway.Captures(), 1, "source must be captured once")
				require.Equal(t, "150.00", balance(t, e))
			})
		})

		t.Run("cancelled topup is already failed", func(t *testing.T) {
			withTx(t, func(e env) {
				pending := pendingTopup(t, e, models.ProviderWallet, "100", "src_1")
				_, err := e.s.HandleWalletRedirect(t.Context(), "whatever_0", pending.ID.String())
				require.NoError(t, err)

				_, err = e.s.HandleWalletRedirect(t.Context(), validToken+"_1", pending.ID.String())

				require.ErrorIs(t, err, apperrors.ErrAlreadyFailed)
				require.Empty(t, e.gateway.Captures())
			})
		})

		t.Run("gateway unavailable", func(t *testing.T) {
			withTx(t, func(e env) {
				e.gateway.status = http.StatusBadGateway
				pending := pendingTopup(t, e, models.ProviderWallet, "100", "src_1")

				_, err := e.s.HandleWalletRedirect(t.Context(), validToken+"_1", pending.ID.String())

				require.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)

				current, err := e.storage.Topup().GetByID(t.Context(), pending.ID)
				require.NoError(t, err)
				require.Equal(t, models.TopupPending, current.Status, "topup may be retried later")
			})
		})

		t.Run("card topup is not found", func(t *testing.T) {
			withTx(t, func(e env) {
				pending := pendingTopup(t, e, models.ProviderCard, "100", "pi_1")

				_, err := e.s.HandleWalletRedirect(t.Context(), validToken+"_1", pending.ID.String())

				require.ErrorIs(t, err, apperrors.ErrTopupNotFound)
			})
		})
	})

	t.Run("HandleCardRedirect", func(t *testing.T) {
		t.Run("paid", func(t *testing.T) {
			withTx(t, func(e env) {
				pendingTopup(t, e, models.ProviderCard, "100", "pi_1")

				result, err := e.s.HandleCardRedirect(t.Context(), validToken, "pi_1")

				require.NoError(t, err)
				require.Equal(t, models.TopupResult{Status: models.TopupPaid, TransactionID: "pi_1"}, result)
				require.Equal(t, []string{validToken}, e.card.credentials, "redirect token is the polling credential")
				require.Equal(t, "150.00", balance(t, e))
			})
		})

		t.Run("invalid token", func(t *testing.T) {
			withTx(t, func(e env) {
				pendingTopup(t, e, models.ProviderCard, "100", "pi_1")

				_, err := e.s.HandleCardRedirect(t.Context(), "not-a-jwt", "pi_1")

				require.ErrorIs(t, err, apperrors.ErrInvalidPaymentToken)
				require.Empty(t, e.card.credentials)
			})
		})

		t.Run("unknown transaction", func(t *testing.T) {
			withTx(t, func(e env) {
				_, err := e.s.HandleCardRedirect(t.Context(), validToken, "pi_unknown")

				require.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
			})
		})
	})
}
