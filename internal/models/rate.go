package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is a buy/sell quote in toman per dirham. Rows are
// append-only; only the most recent row is consulted.
type ExchangeRate struct {
	ID        uint64
	BuyRate   decimal.Decimal
	SellRate  decimal.Decimal
	CreatedAt time.Time
	CreatedBy uint64
}
