package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"amlakpro/settlement-service/internal/errs"
	"amlakpro/settlement-service/internal/models"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so balance mutations can
// run standalone or inside a multi-entity commit.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func vaultColumn(c models.Currency) (string, error) {
	switch c {
	case models.CurrencyAED:
		return "aed", nil
	case models.CurrencyIRR:
		return "irr", nil
	case models.CurrencyCash:
		return "cash", nil
	}
	return "", fmt.Errorf("unknown vault currency %q", c)
}

func counterpartyColumn(c models.Currency) (string, error) {
	switch c {
	case models.CurrencyAED:
		return "aed", nil
	case models.CurrencyIRR:
		return "irr", nil
	}
	return "", fmt.Errorf("counterparties hold no %q balance", c)
}

// parseDecimal handles empty strings as zero
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func creditVault(ctx context.Context, db DBTX, vaultID uint64, currency models.Currency, amount decimal.Decimal) error {
	col, err := vaultColumn(currency)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE vaults SET %s = %s + ?, updated_at = ? WHERE id = ?`, col, col)
	result, err := db.ExecContext(ctx, query, amount.String(), time.Now(), vaultID)
	if err != nil {
		return fmt.Errorf("failed to credit vault: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errs.ErrVaultNotFound
	}

	return nil
}

// debitVault is the check-then-mutate primitive: a conditional update so
// two concurrent debits cannot both pass the sufficiency check.
func debitVault(ctx context.Context, db DBTX, vaultID uint64, currency models.Currency, amount decimal.Decimal) error {
	col, err := vaultColumn(currency)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE vaults SET %s = %s - ?, updated_at = ? WHERE id = ? AND %s >= ?`, col, col, col)
	result, err := db.ExecContext(ctx, query, amount.String(), time.Now(), vaultID, amount.String())
	if err != nil {
		return fmt.Errorf("failed to debit vault: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// No row matched: either the vault is missing or the balance was short.
	var balance string
	err = db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM vaults WHERE id = ?`, col), vaultID).Scan(&balance)
	if err == sql.ErrNoRows {
		return errs.ErrVaultNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read vault balance: %w", err)
	}

	return &errs.InsufficientBalanceError{
		Entity:    "vault",
		EntityID:  vaultID,
		Currency:  string(currency),
		Shortfall: amount.Sub(parseDecimal(balance)),
	}
}

func creditCounterparty(ctx context.Context, db DBTX, counterpartyID uint64, currency models.Currency, amount decimal.Decimal) error {
	col, err := counterpartyColumn(currency)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE counterparties SET %s = %s + ?, updated_at = ? WHERE id = ?`, col, col)
	result, err := db.ExecContext(ctx, query, amount.String(), time.Now(), counterpartyID)
	if err != nil {
		return fmt.Errorf("failed to credit counterparty: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errs.ErrCounterpartyNotFound
	}

	return nil
}

func debitCounterparty(ctx context.Context, db DBTX, counterpartyID uint64, currency models.Currency, amount decimal.Decimal) error {
	col, err := counterpartyColumn(currency)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE counterparties SET %s = %s - ?, updated_at = ? WHERE id = ? AND %s >= ?`, col, col, col)
	result, err := db.ExecContext(ctx, query, amount.String(), time.Now(), counterpartyID, amount.String())
	if err != nil {
		return fmt.Errorf("failed to debit counterparty: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var balance string
	err = db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM counterparties WHERE id = ?`, col), counterpartyID).Scan(&balance)
	if err == sql.ErrNoRows {
		return errs.ErrCounterpartyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read counterparty balance: %w", err)
	}

	return &errs.InsufficientBalanceError{
		Entity:    "counterparty",
		EntityID:  counterpartyID,
		Currency:  string(currency),
		Shortfall: amount.Sub(parseDecimal(balance)),
	}
}
