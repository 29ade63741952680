package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"amlakpro/settlement-service/internal/errs"
	"amlakpro/settlement-service/internal/models"
	"amlakpro/settlement-service/internal/repository"
	"amlakpro/settlement-service/pkg/logger"
	"amlakpro/settlement-service/pkg/metrics"
)

// LedgerService exposes the balance primitives. Debits never push a
// committed balance below zero; the check and the mutation are atomic
// per entity.
type LedgerService interface {
	CreditVault(ctx context.Context, vaultID uint64, currency models.Currency, amount decimal.Decimal) error
	DebitVault(ctx context.Context, vaultID uint64, currency models.Currency, amount decimal.Decimal) error
	CreditCustomer(ctx context.Context, counterpartyID uint64, currency models.Currency, amount decimal.Decimal) error
	DebitCustomer(ctx context.Context, counterpartyID uint64, currency models.Currency, amount decimal.Decimal) error
}

type ledgerService struct {
	vaultRepo        repository.VaultRepository
	counterpartyRepo repository.CounterpartyRepository
	log              *logger.Logger
	metrics          *metrics.Metrics
}

func NewLedgerService(
	vaultRepo repository.VaultRepository,
	counterpartyRepo repository.CounterpartyRepository,
	log *logger.Logger,
	m *metrics.Metrics,
) LedgerService {
	return &ledgerService{
		vaultRepo:        vaultRepo,
		counterpartyRepo: counterpartyRepo,
		log:              log,
		metrics:          m,
	}
}

func (s *ledgerService) CreditVault(ctx context.Context, vaultID uint64, currency models.Currency, amount decimal.Decimal) error {
	if err := s.checkVault(ctx, vaultID, currency, amount); err != nil {
		return err
	}
	return s.vaultRepo.CreditBalance(ctx, vaultID, currency, amount)
}

func (s *ledgerService) DebitVault(ctx context.Context, vaultID uint64, currency models.Currency, amount decimal.Decimal) error {
	if err := s.checkVault(ctx, vaultID, currency, amount); err != nil {
		return err
	}

	err := s.vaultRepo.DebitBalance(ctx, vaultID, currency, amount)
	if err != nil {
		var short *errs.InsufficientBalanceError
		if errors.As(err, &short) {
			s.metrics.BalanceRejections.WithLabelValues("vault").Inc()
			s.log.WithField("vault_id", vaultID).
				WithField("shortfall", short.Shortfall.String()).
				Warn("vault debit rejected")
		}
		return err
	}
	return nil
}

func (s *ledgerService) CreditCustomer(ctx context.Context, counterpartyID uint64, currency models.Currency, amount decimal.Decimal) error {
	if err := s.checkCustomer(ctx, counterpartyID, currency, amount); err != nil {
		return err
	}
	return s.counterpartyRepo.CreditBalance(ctx, counterpartyID, currency, amount)
}

func (s *ledgerService) DebitCustomer(ctx context.Context, counterpartyID uint64, currency models.Currency, amount decimal.Decimal) error {
	if err := s.checkCustomer(ctx, counterpartyID, currency, amount); err != nil {
		return err
	}

	err := s.counterpartyRepo.DebitBalance(ctx, counterpartyID, currency, amount)
	if err != nil {
		var short *errs.InsufficientBalanceError
		if errors.As(err, &short) {
			s.metrics.BalanceRejections.WithLabelValues("counterparty").Inc()
			s.log.WithField("counterparty_id", counterpartyID).
				WithField("shortfall", short.Shortfall.String()).
				Warn("customer debit rejected")
		}
		return err
	}
	return nil
}

func (s *ledgerService) checkVault(ctx context.Context, vaultID uint64, currency models.Currency, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errs.ErrInvalidAmount
	}
	if !currency.Valid() {
		return fmt.Errorf("unknown currency %q", currency)
	}

	// CASH is tracked on the main vault only.
	if currency == models.CurrencyCash {
		vault, err := s.vaultRepo.FindByID(ctx, vaultID)
		if err != nil {
			return err
		}
		if !vault.IsMain {
			return errs.ErrCashOnNonMainVault
		}
	}
	return nil
}

func (s *ledgerService) checkCustomer(ctx context.Context, counterpartyID uint64, currency models.Currency, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errs.ErrInvalidAmount
	}
	if !currency.Tradable() {
		return fmt.Errorf("counterparties hold no %q balance", currency)
	}

	cp, err := s.counterpartyRepo.FindByID(ctx, counterpartyID)
	if err != nil {
		return err
	}
	if cp.Role != models.RoleCustomer {
		return errs.ErrSupplierHoldsNoBalance
	}
	return nil
}
