package service

import (
	"context"

	"github.com/shopspring/decimal"

	"amlakpro/settlement-service/pkg/logger"
)

// ConfirmationPayload carries what a supplier needs to know about its
// settled allocation.
type ConfirmationPayload struct {
	Mobile       string
	SupplierName string
	Amount       decimal.Decimal
	Rate         decimal.Decimal
}

// ConfirmationChannel abstracts delivery of supplier settlement
// confirmations. Implementations own their retry policy; the ledger
// never blocks on them.
type ConfirmationChannel interface {
	SendConfirmation(ctx context.Context, payload ConfirmationPayload) (string, error)
}

type noopChannel struct {
	log *logger.Logger
}

// NewNoopChannel returns a channel that records the confirmation in the
// log only. Used when no SMS provider is configured.
func NewNoopChannel(log *logger.Logger) ConfirmationChannel {
	return &noopChannel{log: log}
}

func (c *noopChannel) SendConfirmation(_ context.Context, payload ConfirmationPayload) (string, error) {
	c.log.WithField("supplier", payload.SupplierName).
		WithField("amount", payload.Amount.String()).
		Info("confirmation suppressed: no SMS channel configured")
	return "", nil
}
