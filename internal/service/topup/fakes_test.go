package topup

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/adriandotdev/pnc-topup/internal/service/gateway"
)

type fakeAuthorizer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeAuthorizer) Authorize(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "upstream-credential", nil
}

func (f *fakeAuthorizer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type walletSourceCall struct {
	Credential string
	Amount     int64
	UserID     int64
	TopupID    uuid.UUID
}

type fakeWallet struct {
	mu    sync.Mutex
	calls []walletSourceCall
	err   error
}

func (f *fakeWallet) CreateSource(_ context.Context, credential string, amount int64, userID int64, topupID uuid.UUID) (gateway.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, walletSourceCall{Credential: credential, Amount: amount, UserID: userID, TopupID: topupID})
	if f.err != nil {
		return gateway.Source{}, f.err
	}

	id := "src_" + uuid.NewString()
	return gateway.Source{TransactionID: id, Status: "pending", RedirectURL: "https://wallet.example/checkout/" + id}, nil
}

func (f *fakeWallet) Calls() []walletSourceCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]walletSourceCall(nil), f.calls...)
}

// fakeCard answers intent status from statuses, the last one repeats forever
type fakeCard struct {
	mu          sync.Mutex
	createCalls int
	statusCalls int
	amounts     []int64
	statuses    []string
	onStatus    func()
	err         error
}

func (f *fakeCard) CreateSource(_ context.Context, _ string, amount int64, _ int64, _ string) (gateway.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.amounts = append(f.amounts, amount)
	if f.err != nil {
		return gateway.Source{}, f.err
	}

	id := "pi_" + uuid.NewString()
	return gateway.Source{
		TransactionID: id,
		ClientKey:     id + "_key",
		Status:        gateway.StatusAwaitingNextAction,
		RedirectURL:   "https://card.example/" + id,
	}, nil
}

func (f *fakeCard) GetIntentStatus(ctx context.Context, _ string, _ string, _ string) (string, error) {
	f.mu.Lock()
	f.statusCalls++
	idx := min(f.statusCalls, len(f.statuses)) - 1
	status := f.statuses[idx]
	onStatus := f.onStatus
	f.mu.Unlock()

	if onStatus != nil {
		onStatus()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return status, nil
}

func (f *fakeCard) StatusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

func (f *fakeCard) CreateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}
