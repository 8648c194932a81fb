package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RFID card wallet credited by paid topups
type Wallet struct {
	UserID      int64
	UserType    string
	RFIDCardTag string
	Balance     decimal.Decimal
	ModifiedAt  time.Time
}
