package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"amlakpro/settlement-service/internal/models"
	"amlakpro/settlement-service/internal/repository"
)

var (
	ErrInvalidRate = errors.New("buy and sell rates must be positive")
)

// RateService owns the buy/sell quote and every currency conversion.
// Rates are quoted in toman per dirham: converting from IRR divides,
// converting to IRR multiplies.
type RateService interface {
	CurrentRate(ctx context.Context) (*models.ExchangeRate, error)
	UpdateRate(ctx context.Context, buyRate, sellRate decimal.Decimal, actorID uint64) (*models.ExchangeRate, error)
	Convert(amount decimal.Decimal, from, to models.Currency, rate decimal.Decimal) decimal.Decimal
	ProfitLoss(amount decimal.Decimal, from, to models.Currency, usedRate decimal.Decimal, table *models.ExchangeRate) decimal.Decimal
}

type rateService struct {
	rateRepo repository.RateRepository
}

func NewRateService(rateRepo repository.RateRepository) RateService {
	return &rateService{rateRepo: rateRepo}
}

func (s *rateService) CurrentRate(ctx context.Context) (*models.ExchangeRate, error) {
	rate, err := s.rateRepo.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current rate: %w", err)
	}
	return rate, nil
}

func (s *rateService) UpdateRate(ctx context.Context, buyRate, sellRate decimal.Decimal, actorID uint64) (*models.ExchangeRate, error) {
	if !buyRate.IsPositive() || !sellRate.IsPositive() {
		return nil, ErrInvalidRate
	}

	rate := &models.ExchangeRate{
		BuyRate:   buyRate,
		SellRate:  sellRate,
		CreatedAt: time.Now(),
		CreatedBy: actorID,
	}
	if err := s.rateRepo.Insert(ctx, rate); err != nil {
		return nil, fmt.Errorf("failed to update rate: %w", err)
	}

	return rate, nil
}

func (s *rateService) Convert(amount decimal.Decimal, from, to models.Currency, rate decimal.Decimal) decimal.Decimal {
	if from == to {
		return amount
	}
	if from == models.CurrencyIRR {
		return amount.Div(rate).Round(2)
	}
	if to == models.CurrencyIRR {
		return amount.Mul(rate).Round(2)
	}
	return amount
}

// ProfitLoss is the spread captured by executing at usedRate instead of
// the quote's opposite side, expressed in the destination currency.
// Same-currency movements carry no spread.
func (s *rateService) ProfitLoss(amount decimal.Decimal, from, to models.Currency, usedRate decimal.Decimal, table *models.ExchangeRate) decimal.Decimal {
	if from == to {
		return decimal.Zero
	}

	// Toman-in exchanges execute at the buy side, so the nominal value is
	// the sell side, and the other way around for toman-out.
	nominal := table.SellRate
	if to == models.CurrencyIRR {
		nominal = table.BuyRate
	}

	return s.Convert(amount, from, to, nominal).Sub(s.Convert(amount, from, to, usedRate))
}
