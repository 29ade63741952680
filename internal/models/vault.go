package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vault is an internal cash position. The vault flagged as main is the
// settlement vault; it is the only one allowed to carry a CASH balance.
type Vault struct {
	ID        uint64
	Name      string
	IsMain    bool
	AED       decimal.Decimal
	IRR       decimal.Decimal
	Cash      decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Balance returns the vault position in the given currency.
func (v *Vault) Balance(c Currency) decimal.Decimal {
	switch c {
	case CurrencyAED:
		return v.AED
	case CurrencyIRR:
		return v.IRR
	case CurrencyCash:
		return v.Cash
	}
	return decimal.Zero
}
