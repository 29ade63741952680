package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransaction_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		tx      Transaction
		next    Status
		allowed bool
	}{
		{
			name:    "PendingNormalToConfirmed",
			tx:      Transaction{Kind: KindNormal, Status: StatusPending},
			next:    StatusConfirmed,
			allowed: true,
		},
		{
			name:    "PendingBankToConfirmedBlocked",
			tx:      Transaction{Kind: KindBank, Status: StatusPending},
			next:    StatusConfirmed,
			allowed: false,
		},
		{
			name:    "PendingBankToInTransit",
			tx:      Transaction{Kind: KindBank, Status: StatusPending},
			next:    StatusInTransit,
			allowed: true,
		},
		{
			name:    "PendingNormalToInTransitBlocked",
			tx:      Transaction{Kind: KindNormal, Status: StatusPending},
			next:    StatusInTransit,
			allowed: false,
		},
		{
			name:    "PendingToCancelled",
			tx:      Transaction{Kind: KindReverse, Status: StatusPending},
			next:    StatusCancelled,
			allowed: true,
		},
		{
			name:    "PendingToDeliveredBlocked",
			tx:      Transaction{Kind: KindBank, Status: StatusPending},
			next:    StatusDelivered,
			allowed: false,
		},
		{
			name:    "InTransitToDelivered",
			tx:      Transaction{Kind: KindBank, Status: StatusInTransit},
			next:    StatusDelivered,
			allowed: true,
		},
		{
			name:    "InTransitToCancelledBlocked",
			tx:      Transaction{Kind: KindBank, Status: StatusInTransit},
			next:    StatusCancelled,
			allowed: false,
		},
		{
			name:    "ConfirmedNormalCounterpartyToApproved",
			tx:      Transaction{Kind: KindNormal, SourceType: PartyCounterparty, Status: StatusConfirmed},
			next:    StatusApproved,
			allowed: true,
		},
		{
			name:    "ConfirmedNormalCashToApprovedBlocked",
			tx:      Transaction{Kind: KindNormal, SourceType: PartyCash, Status: StatusConfirmed},
			next:    StatusApproved,
			allowed: false,
		},
		{
			name:    "ConfirmedReverseToApprovedBlocked",
			tx:      Transaction{Kind: KindReverse, SourceType: PartyCounterparty, Status: StatusConfirmed},
			next:    StatusApproved,
			allowed: false,
		},
		{
			name:    "ConfirmedToCancelledBlocked",
			tx:      Transaction{Kind: KindNormal, SourceType: PartyCounterparty, Status: StatusConfirmed},
			next:    StatusCancelled,
			allowed: false,
		},
		{
			name:    "DeliveredIsTerminal",
			tx:      Transaction{Kind: KindBank, Status: StatusDelivered},
			next:    StatusCancelled,
			allowed: false,
		},
		{
			name:    "ApprovedIsTerminal",
			tx:      Transaction{Kind: KindNormal, SourceType: PartyCounterparty, Status: StatusApproved},
			next:    StatusCancelled,
			allowed: false,
		},
		{
			name:    "CancelledIsTerminal",
			tx:      Transaction{Kind: KindNormal, Status: StatusCancelled},
			next:    StatusConfirmed,
			allowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.tx.CanTransitionTo(tt.next))
		})
	}
}
