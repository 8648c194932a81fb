package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TopupStatus string

const (
	TopupPending TopupStatus = "PENDING"
	TopupPaid    TopupStatus = "PAID"
	TopupFailed  TopupStatus = "FAILED"
	TopupExpired TopupStatus = "EXPIRED"
)

// Terminal statuses never change again
func (s TopupStatus) IsTerminal() bool {
	return s == TopupPaid || s == TopupFailed || s == TopupExpired
}

// Payment provider family that serves a topup
type Provider string

const (
	ProviderWallet Provider = "WALLET"
	ProviderCard   Provider = "CARD"
)

// TopupType is what the caller asks for; several types may share one provider
type TopupType string

const (
	TopupTypeWallet  TopupType = "gcash"
	TopupTypeCard    TopupType = "maya"
	TopupTypeCardAlt TopupType = "card"
)

// ParseTopupType returns the provider serving the type, ok is false for unknown types
func ParseTopupType(value string) (Provider, bool) {
	switch TopupType(strings.ToLower(strings.TrimSpace(value))) {
	case TopupTypeWallet:
		return ProviderWallet, true
	case TopupTypeCard, TopupTypeCardAlt:
		return ProviderCard, true
	default:
		return "", false
	}
}

const (
	UserTypeDriver = "USER_DRIVER"
	KindTopup      = "TOPUP"
)

type Topup struct {
	ID          uuid.UUID
	UserID      int64
	UserType    string
	RFIDCardTag string
	Kind        string
	Provider    Provider
	Amount      decimal.Decimal
	Status      TopupStatus

	TransactionID *string // nil until the gateway source is created
	ClientKey     *string // card provider only
	Description   *string

	// Wallet balance around the PAID transition, nil otherwise
	InitialBalance   *decimal.Decimal
	ResultingBalance *decimal.Decimal

	CreatedAt  time.Time
	ModifiedAt time.Time
}

func (t Topup) ProviderTransactionID() string {
	if t.TransactionID == nil {
		return ""
	}
	return *t.TransactionID
}

func (t Topup) ProviderClientKey() string {
	if t.ClientKey == nil {
		return ""
	}
	return *t.ClientKey
}

// Outcome of a confirmation or a status lookup
type TopupResult struct {
	Status        TopupStatus
	TransactionID string
}

func (t Topup) Result() TopupResult {
	return TopupResult{Status: t.Status, TransactionID: t.ProviderTransactionID()}
}
