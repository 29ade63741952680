package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"amlakpro/settlement-service/internal/errs"
	"amlakpro/settlement-service/internal/models"
)

type RateRepository interface {
	Latest(ctx context.Context) (*models.ExchangeRate, error)
	Insert(ctx context.Context, rate *models.ExchangeRate) error
}

type rateRepository struct {
	db *sql.DB
}

func NewRateRepository(db *sql.DB) RateRepository {
	return &rateRepository{db: db}
}

func (r *rateRepository) Latest(ctx context.Context) (*models.ExchangeRate, error) {
	query := `
		SELECT id, buy_rate, sell_rate, created_at, created_by
		FROM exchange_rates
		ORDER BY id DESC
		LIMIT 1
	`
	rate := &models.ExchangeRate{}
	var buy, sell string

	err := r.db.QueryRowContext(ctx, query).Scan(&rate.ID, &buy, &sell, &rate.CreatedAt, &rate.CreatedBy)
	if err == sql.ErrNoRows {
		return nil, errs.ErrRateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest rate: %w", err)
	}

	rate.BuyRate = parseDecimal(buy)
	rate.SellRate = parseDecimal(sell)

	return rate, nil
}

func (r *rateRepository) Insert(ctx context.Context, rate *models.ExchangeRate) error {
	query := `
		INSERT INTO exchange_rates (buy_rate, sell_rate, created_at, created_by)
		VALUES (?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		rate.BuyRate.String(), rate.SellRate.String(), time.Now(), rate.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to insert rate: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rate id: %w", err)
	}
	rate.ID = uint64(id)

	return nil
}
