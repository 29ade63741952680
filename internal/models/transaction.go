package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies the direction of a monetary movement.
type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeTransfer   TransactionType = "transfer"
)

// TransactionKind selects the settlement workflow a record follows.
type TransactionKind string

const (
	KindNormal  TransactionKind = "normal"  // toman in, dirham credited
	KindReverse TransactionKind = "reverse" // dirham in, toman credited
	KindBank    TransactionKind = "bank"    // bank-mediated supplier batch
	KindCash    TransactionKind = "cash"    // physical cash on the main vault
)

// Status of a transaction record. Records are never deleted; cancellation
// is a terminal status, not a removal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusApproved  Status = "approved"
	StatusCancelled Status = "cancelled"
)

// PartyType tells what a transaction source or destination reference
// points at.
type PartyType string

const (
	PartyVault        PartyType = "vault"
	PartyCounterparty PartyType = "counterparty"
	// PartyCash is the walk-in cash sentinel: no stored entity, only a
	// free-text name on the record.
	PartyCash PartyType = "cash"
)

// Transaction is one append-only monetary movement plus its lifecycle
// state. ReferenceNumber is the human-assigned 5-digit number attesting
// the real-world transfer; once used it is never reused, not even after
// cancellation.
type Transaction struct {
	ID              string
	ReferenceNumber string
	Type            TransactionType
	Kind            TransactionKind
	Amount          decimal.Decimal
	SourceCurrency  Currency
	DestCurrency    Currency
	Rate            *decimal.Decimal
	ProfitLoss      *decimal.Decimal
	SourceType      PartyType
	SourceID        uint64
	SourceName      string
	DestType        PartyType
	DestID          uint64
	Status          Status
	Note            string
	CreatedAt       time.Time
	CreatedBy       uint64
	ConfirmedAt     *time.Time
	ConfirmedBy     *uint64
	ApprovedAt      *time.Time
	ApprovedBy      *uint64
	CancelledAt     *time.Time
	CancelledBy     *uint64
}

// CanTransitionTo is the closed transition table. Status only advances;
// the sole regression is pending to cancelled. Bank records skip
// confirmed and travel pending -> in_transit -> delivered, every other
// kind settles through confirmed and, for customer-held funds, approved.
func (t *Transaction) CanTransitionTo(next Status) bool {
	switch t.Status {
	case StatusPending:
		switch next {
		case StatusCancelled:
			return true
		case StatusConfirmed:
			return t.Kind != KindBank
		case StatusInTransit:
			return t.Kind == KindBank
		}
	case StatusConfirmed:
		return next == StatusApproved &&
			t.Kind == KindNormal &&
			t.SourceType == PartyCounterparty
	case StatusInTransit:
		return next == StatusDelivered
	}
	return false
}
