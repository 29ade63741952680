package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"amlakpro/settlement-service/internal/errs"
	"amlakpro/settlement-service/internal/models"
	"amlakpro/settlement-service/internal/repository"
	"amlakpro/settlement-service/pkg/helpers"
	"amlakpro/settlement-service/pkg/logger"
	"amlakpro/settlement-service/pkg/metrics"
)

var (
	ErrUnsupportedKind   = errors.New("kind must be normal or reverse")
	ErrMissingSourceName = errors.New("walk-in cash source requires a name")
	ErrInvalidDirection  = errors.New("direction must be deposit or withdrawal")
)

// ExchangeRequest is a direct transfer between one counterparty (or a
// walk-in cash party) and the ledger. CounterpartyID zero selects the
// walk-in cash sentinel, which requires CashName.
type ExchangeRequest struct {
	ReferenceNumber string
	Kind            models.TransactionKind
	Amount          decimal.Decimal
	CounterpartyID  uint64
	CashName        string
	DestVaultID     uint64
	Note            string
	ActorID         uint64
}

// CashMovementRequest moves physical cash in or out of the main vault.
type CashMovementRequest struct {
	ReferenceNumber string
	Direction       models.TransactionType
	Amount          decimal.Decimal
	VaultID         uint64
	Note            string
	ActorID         uint64
}

type TransferService interface {
	SubmitExchange(ctx context.Context, req ExchangeRequest) (*models.Transaction, error)
	SubmitCashMovement(ctx context.Context, req CashMovementRequest) (*models.Transaction, error)
}

type transferService struct {
	transactionRepo  repository.TransactionRepository
	vaultRepo        repository.VaultRepository
	counterpartyRepo repository.CounterpartyRepository
	rates            RateService
	log              *logger.Logger
	metrics          *metrics.Metrics
}

func NewTransferService(
	transactionRepo repository.TransactionRepository,
	vaultRepo repository.VaultRepository,
	counterpartyRepo repository.CounterpartyRepository,
	rates RateService,
	log *logger.Logger,
	m *metrics.Metrics,
) TransferService {
	return &transferService{
		transactionRepo:  transactionRepo,
		vaultRepo:        vaultRepo,
		counterpartyRepo: counterpartyRepo,
		rates:            rates,
		log:              log,
		metrics:          m,
	}
}

func (s *transferService) SubmitExchange(ctx context.Context, req ExchangeRequest) (*models.Transaction, error) {
	started := time.Now()

	record, err := s.submitExchange(ctx, req)
	if err != nil {
		s.metrics.ObserveOperation("submit_exchange", "error", started)
		return nil, err
	}

	s.metrics.ObserveOperation("submit_exchange", "ok", started)
	s.log.WithReference(record.ReferenceNumber).
		WithField("kind", record.Kind).
		WithField("status", record.Status).
		Info("exchange submitted")
	return record, nil
}

func (s *transferService) submitExchange(ctx context.Context, req ExchangeRequest) (*models.Transaction, error) {
	if !helpers.ValidReferenceNumber(req.ReferenceNumber) {
		return nil, errs.ErrInvalidReferenceFormat
	}
	if !req.Amount.IsPositive() {
		return nil, errs.ErrInvalidAmount
	}
	if req.Kind != models.KindNormal && req.Kind != models.KindReverse {
		return nil, ErrUnsupportedKind
	}

	cashSource := req.CounterpartyID == 0
	if cashSource && req.CashName == "" {
		return nil, ErrMissingSourceName
	}

	// A destination vault is required whenever there is no counterparty
	// balance for the converted funds to land on.
	needVault := cashSource || req.Kind == models.KindReverse
	if needVault && req.DestVaultID == 0 {
		return nil, errs.ErrMissingRequiredParty
	}

	if !cashSource {
		cp, err := s.counterpartyRepo.FindByID(ctx, req.CounterpartyID)
		if err != nil {
			return nil, err
		}
		if cp.Role != models.RoleCustomer {
			return nil, errs.ErrSupplierHoldsNoBalance
		}
	}
	if needVault {
		if _, err := s.vaultRepo.FindByID(ctx, req.DestVaultID); err != nil {
			return nil, err
		}
	}

	exists, err := s.transactionRepo.ReferenceExists(ctx, req.ReferenceNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errs.ErrDuplicateReference
	}

	table, err := s.rates.CurrentRate(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record := &models.Transaction{
		ID:              uuid.New().String(),
		ReferenceNumber: req.ReferenceNumber,
		Kind:            req.Kind,
		Amount:          req.Amount,
		Status:          models.StatusPending,
		Note:            req.Note,
		CreatedAt:       now,
		CreatedBy:       req.ActorID,
	}

	switch req.Kind {
	case models.KindNormal:
		// Toman received, dirham credited at the buy side.
		rate := table.BuyRate
		record.Type = models.TypeDeposit
		record.SourceCurrency = models.CurrencyIRR
		record.DestCurrency = models.CurrencyAED
		record.Rate = &rate

		if cashSource {
			// Walk-in cash settles on the spot: the destination vault is
			// credited now and the record commits already confirmed.
			record.SourceType = models.PartyCash
			record.SourceName = req.CashName
			record.DestType = models.PartyVault
			record.DestID = req.DestVaultID
			record.Status = models.StatusConfirmed
			record.ConfirmedAt = &now
			record.ConfirmedBy = &req.ActorID

			credited := s.rates.Convert(req.Amount, models.CurrencyIRR, models.CurrencyAED, rate)
			effect := repository.BalanceEffect{
				Vault:    true,
				EntityID: req.DestVaultID,
				Currency: models.CurrencyAED,
				Amount:   credited,
			}
			if err := s.transactionRepo.Create(ctx, record, effect); err != nil {
				return nil, err
			}
			return record, nil
		}

		// Existing customer: profit/loss fixes at submission, the balance
		// credit waits for the explicit confirm step.
		record.SourceType = models.PartyCounterparty
		record.SourceID = req.CounterpartyID
		pl := s.rates.ProfitLoss(req.Amount, models.CurrencyIRR, models.CurrencyAED, rate, table)
		record.ProfitLoss = &pl

	case models.KindReverse:
		// Dirham in, toman credited at the sell side. Always pending.
		rate := table.SellRate
		record.Type = models.TypeWithdrawal
		record.SourceCurrency = models.CurrencyAED
		record.DestCurrency = models.CurrencyIRR
		record.Rate = &rate
		record.DestType = models.PartyVault
		record.DestID = req.DestVaultID

		if cashSource {
			record.SourceType = models.PartyCash
			record.SourceName = req.CashName
		} else {
			record.SourceType = models.PartyCounterparty
			record.SourceID = req.CounterpartyID
		}

		pl := s.rates.ProfitLoss(req.Amount, models.CurrencyAED, models.CurrencyIRR, rate, table)
		record.ProfitLoss = &pl
	}

	if err := s.transactionRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *transferService) SubmitCashMovement(ctx context.Context, req CashMovementRequest) (*models.Transaction, error) {
	started := time.Now()

	record, err := s.submitCashMovement(ctx, req)
	if err != nil {
		s.metrics.ObserveOperation("submit_cash_movement", "error", started)
		return nil, err
	}

	s.metrics.ObserveOperation("submit_cash_movement", "ok", started)
	s.log.WithReference(record.ReferenceNumber).
		WithField("direction", record.Type).
		Info("cash movement submitted")
	return record, nil
}

func (s *transferService) submitCashMovement(ctx context.Context, req CashMovementRequest) (*models.Transaction, error) {
	if !helpers.ValidReferenceNumber(req.ReferenceNumber) {
		return nil, errs.ErrInvalidReferenceFormat
	}
	if !req.Amount.IsPositive() {
		return nil, errs.ErrInvalidAmount
	}
	if req.Direction != models.TypeDeposit && req.Direction != models.TypeWithdrawal {
		return nil, ErrInvalidDirection
	}

	vault, err := s.vaultRepo.FindByID(ctx, req.VaultID)
	if err != nil {
		return nil, err
	}
	if !vault.IsMain {
		return nil, errs.ErrCashOnNonMainVault
	}

	exists, err := s.transactionRepo.ReferenceExists(ctx, req.ReferenceNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errs.ErrDuplicateReference
	}

	now := time.Now()
	record := &models.Transaction{
		ID:              uuid.New().String(),
		ReferenceNumber: req.ReferenceNumber,
		Type:            req.Direction,
		Kind:            models.KindCash,
		Amount:          req.Amount,
		SourceCurrency:  models.CurrencyCash,
		DestCurrency:    models.CurrencyCash,
		Status:          models.StatusConfirmed,
		Note:            req.Note,
		CreatedAt:       now,
		CreatedBy:       req.ActorID,
		ConfirmedAt:     &now,
		ConfirmedBy:     &req.ActorID,
	}

	effect := repository.BalanceEffect{
		Vault:    true,
		EntityID: req.VaultID,
		Currency: models.CurrencyCash,
		Amount:   req.Amount,
	}
	if req.Direction == models.TypeDeposit {
		record.SourceType = models.PartyCash
		record.DestType = models.PartyVault
		record.DestID = req.VaultID
	} else {
		record.SourceType = models.PartyVault
		record.SourceID = req.VaultID
		record.DestType = models.PartyCash
		effect.Debit = true
	}

	if err := s.transactionRepo.Create(ctx, record, effect); err != nil {
		return nil, err
	}
	return record, nil
}
