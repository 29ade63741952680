package models

// Currency enumerates the positions a vault or counterparty can hold.
// AED is the settlement currency of the business, IRR holds toman amounts
// paid and received locally, and CASH tracks physical money on the main
// vault only.
type Currency string

const (
	CurrencyAED  Currency = "AED"
	CurrencyIRR  Currency = "IRR"
	CurrencyCash Currency = "CASH"
)

// Valid reports whether c is one of the known currencies.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyAED, CurrencyIRR, CurrencyCash:
		return true
	}
	return false
}

// Tradable reports whether c participates in exchange conversions.
func (c Currency) Tradable() bool {
	return c == CurrencyAED || c == CurrencyIRR
}
