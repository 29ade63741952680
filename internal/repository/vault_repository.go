package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"amlakpro/settlement-service/internal/errs"
	"amlakpro/settlement-service/internal/models"
)

type VaultRepository interface {
	FindByID(ctx context.Context, id uint64) (*models.Vault, error)
	FindMain(ctx context.Context) (*models.Vault, error)
	List(ctx context.Context) ([]models.Vault, error)
	CreditBalance(ctx context.Context, vaultID uint64, currency models.Currency, amount decimal.Decimal) error
	DebitBalance(ctx context.Context, vaultID uint64, currency models.Currency, amount decimal.Decimal) error
}

type vaultRepository struct {
	db *sql.DB
}

func NewVaultRepository(db *sql.DB) VaultRepository {
	return &vaultRepository{db: db}
}

func (r *vaultRepository) FindByID(ctx context.Context, id uint64) (*models.Vault, error) {
	query := `
		SELECT id, name, is_main, aed, irr, cash, created_at, updated_at
		FROM vaults
		WHERE id = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *vaultRepository) FindMain(ctx context.Context) (*models.Vault, error) {
	query := `
		SELECT id, name, is_main, aed, irr, cash, created_at, updated_at
		FROM vaults
		WHERE is_main = 1
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query))
}

func (r *vaultRepository) List(ctx context.Context) ([]models.Vault, error) {
	query := `
		SELECT id, name, is_main, aed, irr, cash, created_at, updated_at
		FROM vaults
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list vaults: %w", err)
	}
	defer rows.Close()

	var vaults []models.Vault
	for rows.Next() {
		var v models.Vault
		var aed, irr, cash string
		if err := rows.Scan(&v.ID, &v.Name, &v.IsMain, &aed, &irr, &cash, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vault: %w", err)
		}
		v.AED = parseDecimal(aed)
		v.IRR = parseDecimal(irr)
		v.Cash = parseDecimal(cash)
		vaults = append(vaults, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vaults: %w", err)
	}

	return vaults, nil
}

func (r *vaultRepository) CreditBalance(ctx context.Context, vaultID uint64, currency models.Currency, amount decimal.Decimal) error {
	return creditVault(ctx, r.db, vaultID, currency, amount)
}

func (r *vaultRepository) DebitBalance(ctx context.Context, vaultID uint64, currency models.Currency, amount decimal.Decimal) error {
	return debitVault(ctx, r.db, vaultID, currency, amount)
}

func (r *vaultRepository) scanOne(row *sql.Row) (*models.Vault, error) {
	vault := &models.Vault{}
	var aed, irr, cash string

	err := row.Scan(&vault.ID, &vault.Name, &vault.IsMain, &aed, &irr, &cash, &vault.CreatedAt, &vault.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.ErrVaultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vault: %w", err)
	}

	vault.AED = parseDecimal(aed)
	vault.IRR = parseDecimal(irr)
	vault.Cash = parseDecimal(cash)

	return vault, nil
}
