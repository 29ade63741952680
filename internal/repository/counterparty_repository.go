package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"amlakpro/settlement-service/internal/errs"
	"amlakpro/settlement-service/internal/models"
)

type CounterpartyRepository interface {
	FindByID(ctx context.Context, id uint64) (*models.Counterparty, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.Counterparty, error)
	CreditBalance(ctx context.Context, counterpartyID uint64, currency models.Currency, amount decimal.Decimal) error
	DebitBalance(ctx context.Context, counterpartyID uint64, currency models.Currency, amount decimal.Decimal) error
}

type counterpartyRepository struct {
	db *sql.DB
}

func NewCounterpartyRepository(db *sql.DB) CounterpartyRepository {
	return &counterpartyRepository{db: db}
}

func (r *counterpartyRepository) FindByID(ctx context.Context, id uint64) (*models.Counterparty, error) {
	query := `
		SELECT id, name, role, mobile, aed, irr, created_at, updated_at
		FROM counterparties
		WHERE id = ?
	`
	cp := &models.Counterparty{}
	var aed, irr string
	var mobile sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&cp.ID, &cp.Name, &cp.Role, &mobile, &aed, &irr, &cp.CreatedAt, &cp.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errs.ErrCounterpartyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find counterparty: %w", err)
	}

	cp.Mobile = mobile.String
	cp.AED = parseDecimal(aed)
	cp.IRR = parseDecimal(irr)

	return cp, nil
}

func (r *counterpartyRepository) ListByRole(ctx context.Context, role models.Role) ([]models.Counterparty, error) {
	query := `
		SELECT id, name, role, mobile, aed, irr, created_at, updated_at
		FROM counterparties
		WHERE role = ?
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to list counterparties: %w", err)
	}
	defer rows.Close()

	var parties []models.Counterparty
	for rows.Next() {
		var cp models.Counterparty
		var aed, irr string
		var mobile sql.NullString
		if err := rows.Scan(&cp.ID, &cp.Name, &cp.Role, &mobile, &aed, &irr, &cp.CreatedAt, &cp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan counterparty: %w", err)
		}
		cp.Mobile = mobile.String
		cp.AED = parseDecimal(aed)
		cp.IRR = parseDecimal(irr)
		parties = append(parties, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counterparties: %w", err)
	}

	return parties, nil
}

func (r *counterpartyRepository) CreditBalance(ctx context.Context, counterpartyID uint64, currency models.Currency, amount decimal.Decimal) error {
	return creditCounterparty(ctx, r.db, counterpartyID, currency, amount)
}

func (r *counterpartyRepository) DebitBalance(ctx context.Context, counterpartyID uint64, currency models.Currency, amount decimal.Decimal) error {
	return debitCounterparty(ctx, r.db, counterpartyID, currency, amount)
}
