package service

import (
	"context"
	"errors"
	"time"

	"amlakpro/settlement-service/internal/errs"
	"amlakpro/settlement-service/internal/models"
	"amlakpro/settlement-service/internal/repository"
	"amlakpro/settlement-service/pkg/logger"
	"amlakpro/settlement-service/pkg/metrics"
)

var (
	ErrMissingRate = errors.New("record carries no exchange rate")
)

// LifecycleService drives records through the settlement state machine.
// Every transition stamps the acting user and time, applies its balance
// effects in the same commit, and fails synchronously with zero partial
// state change.
type LifecycleService interface {
	Confirm(ctx context.Context, txID string, actorID uint64) (*models.Transaction, error)
	Cancel(ctx context.Context, txID string, actorID uint64) (*models.Transaction, error)
	Deliver(ctx context.Context, txID string, actorID uint64) (*models.Transaction, error)
	Approve(ctx context.Context, txID string, actorID uint64) (*models.Transaction, error)
}

type lifecycleService struct {
	transactionRepo repository.TransactionRepository
	vaultRepo       repository.VaultRepository
	rates           RateService
	log             *logger.Logger
	metrics         *metrics.Metrics
}

func NewLifecycleService(
	transactionRepo repository.TransactionRepository,
	vaultRepo repository.VaultRepository,
	rates RateService,
	log *logger.Logger,
	m *metrics.Metrics,
) LifecycleService {
	return &lifecycleService{
		transactionRepo: transactionRepo,
		vaultRepo:       vaultRepo,
		rates:           rates,
		log:             log,
		metrics:         m,
	}
}

func (s *lifecycleService) Confirm(ctx context.Context, txID string, actorID uint64) (*models.Transaction, error) {
	started := time.Now()

	record, err := s.transactionRepo.FindByID(ctx, txID)
	if err != nil {
		return nil, err
	}

	// Bank records travel to in_transit on confirm: their vault debits
	// were already taken when the batch committed.
	target := models.StatusConfirmed
	if record.Kind == models.KindBank {
		target = models.StatusInTransit
	}
	if !record.CanTransitionTo(target) {
		return nil, errs.ErrInvalidTransition
	}

	var effects []repository.BalanceEffect
	switch record.Kind {
	case models.KindNormal:
		// Deferred effect: the customer receives the converted dirham.
		if record.Rate == nil {
			return nil, ErrMissingRate
		}
		credited := s.rates.Convert(record.Amount, record.SourceCurrency, record.DestCurrency, *record.Rate)
		effects = append(effects, repository.BalanceEffect{
			EntityID: record.SourceID,
			Currency: record.DestCurrency,
			Amount:   credited,
		})
	case models.KindReverse:
		// Deferred effect: take the dirham off the customer (sufficiency
		// re-checked inside the commit) and credit the vault in toman.
		if record.Rate == nil {
			return nil, ErrMissingRate
		}
		if record.SourceType == models.PartyCounterparty {
			effects = append(effects, repository.BalanceEffect{
				EntityID: record.SourceID,
				Currency: record.SourceCurrency,
				Amount:   record.Amount,
				Debit:    true,
			})
		}
		credited := s.rates.Convert(record.Amount, record.SourceCurrency, record.DestCurrency, *record.Rate)
		effects = append(effects, repository.BalanceEffect{
			Vault:    true,
			EntityID: record.DestID,
			Currency: record.DestCurrency,
			Amount:   credited,
		})
	}

	if err := s.transactionRepo.Transition(ctx, txID, record.Status, target, actorID, time.Now(), effects); err != nil {
		s.metrics.ObserveOperation("confirm", "error", started)
		return nil, err
	}

	s.metrics.ObserveOperation("confirm", "ok", started)
	s.log.WithTransaction(txID).WithField("actor_id", actorID).
		WithField("status", target).
		Info("transaction confirmed")
	return s.transactionRepo.FindByID(ctx, txID)
}

// Cancel is the sole regression and only leaves pending. Funds already
// debited for a pending bank line are deliberately not restored; the
// money left with the bank and comes back, if it does, as a manual
// correction.
func (s *lifecycleService) Cancel(ctx context.Context, txID string, actorID uint64) (*models.Transaction, error) {
	started := time.Now()

	record, err := s.transactionRepo.FindByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if !record.CanTransitionTo(models.StatusCancelled) {
		return nil, errs.ErrInvalidTransition
	}

	if err := s.transactionRepo.Transition(ctx, txID, record.Status, models.StatusCancelled, actorID, time.Now(), nil); err != nil {
		s.metrics.ObserveOperation("cancel", "error", started)
		return nil, err
	}

	s.metrics.ObserveOperation("cancel", "ok", started)
	s.log.WithTransaction(txID).WithField("actor_id", actorID).Info("transaction cancelled")
	return s.transactionRepo.FindByID(ctx, txID)
}

// Deliver settles an in-transit bank line: the bank confirmed payout, so
// the main vault receives the dirham countervalue.
func (s *lifecycleService) Deliver(ctx context.Context, txID string, actorID uint64) (*models.Transaction, error) {
	started := time.Now()

	record, err := s.transactionRepo.FindByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if !record.CanTransitionTo(models.StatusDelivered) {
		return nil, errs.ErrInvalidTransition
	}
	if record.Rate == nil {
		return nil, ErrMissingRate
	}

	main, err := s.vaultRepo.FindMain(ctx)
	if err != nil {
		return nil, err
	}

	credited := s.rates.Convert(record.Amount, models.CurrencyIRR, models.CurrencyAED, *record.Rate)
	effects := []repository.BalanceEffect{{
		Vault:    true,
		EntityID: main.ID,
		Currency: models.CurrencyAED,
		Amount:   credited,
	}}

	if err := s.transactionRepo.Transition(ctx, txID, record.Status, models.StatusDelivered, actorID, time.Now(), effects); err != nil {
		s.metrics.ObserveOperation("deliver", "error", started)
		return nil, err
	}

	s.metrics.ObserveOperation("deliver", "ok", started)
	s.log.WithTransaction(txID).WithField("actor_id", actorID).
		WithField("credited", credited.String()).
		Info("bank transfer delivered")
	return s.transactionRepo.FindByID(ctx, txID)
}

// Approve moves confirmed customer-held funds onto the main vault. Only
// normal exchanges whose converted dirham landed on a customer balance
// can be approved.
func (s *lifecycleService) Approve(ctx context.Context, txID string, actorID uint64) (*models.Transaction, error) {
	started := time.Now()

	record, err := s.transactionRepo.FindByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if !record.CanTransitionTo(models.StatusApproved) {
		return nil, errs.ErrInvalidTransition
	}
	if record.Rate == nil {
		return nil, ErrMissingRate
	}

	main, err := s.vaultRepo.FindMain(ctx)
	if err != nil {
		return nil, err
	}

	converted := s.rates.Convert(record.Amount, record.SourceCurrency, record.DestCurrency, *record.Rate)
	effects := []repository.BalanceEffect{
		{
			EntityID: record.SourceID,
			Currency: record.DestCurrency,
			Amount:   converted,
			Debit:    true,
		},
		{
			Vault:    true,
			EntityID: main.ID,
			Currency: record.DestCurrency,
			Amount:   converted,
		},
	}

	if err := s.transactionRepo.Transition(ctx, txID, record.Status, models.StatusApproved, actorID, time.Now(), effects); err != nil {
		s.metrics.ObserveOperation("approve", "error", started)
		return nil, err
	}

	s.metrics.ObserveOperation("approve", "ok", started)
	s.log.WithTransaction(txID).WithField("actor_id", actorID).Info("transaction approved")
	return s.transactionRepo.FindByID(ctx, txID)
}
