package errs

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidReferenceFormat indicates a reference number that is not exactly 5 ASCII digits.
	ErrInvalidReferenceFormat = errors.New("reference number must be exactly 5 digits")
	// ErrDuplicateReference indicates a reference number already attached to a record.
	ErrDuplicateReference = errors.New("reference number already used")
	// ErrMissingOperationNumber indicates a batch allocation line without a reference number.
	ErrMissingOperationNumber = errors.New("every allocation line requires a reference number")
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrMissingRequiredParty indicates a submission without its required destination vault.
	ErrMissingRequiredParty = errors.New("destination vault is required")
	// ErrInsufficientTotalAllocation indicates supplier requests exceeding the earmarked source total.
	ErrInsufficientTotalAllocation = errors.New("supplier requests exceed earmarked source total")
	// ErrInvalidTransition indicates a status change outside the transition table.
	ErrInvalidTransition = errors.New("status transition not allowed")
	// ErrCashOnNonMainVault indicates a cash movement on a vault not flagged as main.
	ErrCashOnNonMainVault = errors.New("cash balance is tracked on the main vault only")
	// ErrSupplierHoldsNoBalance indicates a balance mutation attempted on a supplier.
	ErrSupplierHoldsNoBalance = errors.New("suppliers do not hold a balance")

	ErrVaultNotFound        = errors.New("vault not found")
	ErrCounterpartyNotFound = errors.New("counterparty not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrRateNotFound         = errors.New("no exchange rate recorded")
)

// InsufficientBalanceError reports a debit that would push an entity
// below zero, with the shortfall the caller needs to render a message.
type InsufficientBalanceError struct {
	Entity    string // "vault" or "counterparty"
	EntityID  uint64
	Currency  string
	Shortfall decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance on %s %d: short %s",
		e.Currency, e.Entity, e.EntityID, e.Shortfall.String())
}

// UnderAllocatedSupplierError reports a supplier whose requested amount
// could not be covered by the earmarked sources.
type UnderAllocatedSupplierError struct {
	SupplierID uint64
	Shortfall  decimal.Decimal
}

func (e *UnderAllocatedSupplierError) Error() string {
	return fmt.Sprintf("supplier %d under-allocated by %s", e.SupplierID, e.Shortfall.String())
}
