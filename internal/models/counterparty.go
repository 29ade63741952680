package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role of a counterparty towards the ledger.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSupplier Role = "supplier"
)

// Counterparty is an external party exchanging funds with the ledger.
// Customers carry per-currency balances; suppliers are transaction-only
// and never hold a balance, their side of a bank transfer is accounted
// for on the vaults.
type Counterparty struct {
	ID        uint64
	Name      string
	Role      Role
	Mobile    string
	AED       decimal.Decimal
	IRR       decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Balance returns the counterparty position in the given currency.
func (c *Counterparty) Balance(cur Currency) decimal.Decimal {
	switch cur {
	case CurrencyAED:
		return c.AED
	case CurrencyIRR:
		return c.IRR
	}
	return decimal.Zero
}
