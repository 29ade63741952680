package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"amlakpro/settlement-service/internal/errs"
	"amlakpro/settlement-service/internal/models"
)

// BalanceEffect is one balance delta applied together with a record
// insert or status change, inside the same database transaction.
type BalanceEffect struct {
	Vault    bool // false targets a counterparty
	EntityID uint64
	Currency models.Currency
	Amount   decimal.Decimal
	Debit    bool
}

// BatchLine pairs one allocation record with the source-vault debit that
// funds it.
type BatchLine struct {
	Record *models.Transaction
	Debit  BalanceEffect
}

type TransactionRepository interface {
	// Create inserts the record and applies any accompanying balance
	// effects atomically. Used for direct submissions, including the
	// auto-settled cash paths.
	Create(ctx context.Context, t *models.Transaction, effects ...BalanceEffect) error
	// CreateBatch commits a bank batch: every line's vault debit and
	// record insert succeed together or the whole batch rolls back.
	CreateBatch(ctx context.Context, lines []BatchLine) error
	FindByID(ctx context.Context, id string) (*models.Transaction, error)
	FindByReference(ctx context.Context, reference string) (*models.Transaction, error)
	// ReferenceExists reports whether any record ever used the reference,
	// regardless of status. Cancelled records still block reuse.
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	List(ctx context.Context, limit int) ([]models.Transaction, error)
	// Transition moves a record from one status to another, applying the
	// given balance effects in the same database transaction. The update
	// is guarded on the expected current status so concurrent transitions
	// on the same record serialize.
	Transition(ctx context.Context, txID string, from, to models.Status, actorID uint64, at time.Time, effects []BalanceEffect) error
}

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, t *models.Transaction, effects ...BalanceEffect) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range effects {
		if err := applyEffect(ctx, tx, e); err != nil {
			return err
		}
	}

	if err := insertRecord(ctx, tx, t); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) CreateBatch(ctx context.Context, lines []BatchLine) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, line := range lines {
		if err := applyEffect(ctx, tx, line.Debit); err != nil {
			return err
		}
		if err := insertRecord(ctx, tx, line.Record); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (r *transactionRepository) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	query := selectColumns + ` WHERE id = ?`
	return scanTransaction(r.db.QueryRowContext(ctx, query, id))
}

func (r *transactionRepository) FindByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	query := selectColumns + ` WHERE reference_number = ?`
	return scanTransaction(r.db.QueryRowContext(ctx, query, reference))
}

func (r *transactionRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE reference_number = ?`, reference).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check reference: %w", err)
	}
	return count > 0, nil
}

func (r *transactionRepository) List(ctx context.Context, limit int) ([]models.Transaction, error) {
	query := selectColumns + ` ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var records []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return records, nil
}

func (r *transactionRepository) Transition(ctx context.Context, txID string, from, to models.Status, actorID uint64, at time.Time, effects []BalanceEffect) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range effects {
		if err := applyEffect(ctx, tx, e); err != nil {
			return err
		}
	}

	var stampColumns string
	switch to {
	case models.StatusConfirmed, models.StatusInTransit:
		stampColumns = "confirmed_at = ?, confirmed_by = ?"
	case models.StatusApproved, models.StatusDelivered:
		stampColumns = "approved_at = ?, approved_by = ?"
	case models.StatusCancelled:
		stampColumns = "cancelled_at = ?, cancelled_by = ?"
	default:
		return errs.ErrInvalidTransition
	}

	query := fmt.Sprintf(`UPDATE transactions SET status = ?, %s WHERE id = ? AND status = ?`, stampColumns)
	result, err := tx.ExecContext(ctx, query, string(to), at, actorID, txID, string(from))
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// The record moved out of the expected status concurrently.
		return errs.ErrInvalidTransition
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transition: %w", err)
	}
	return nil
}

func applyEffect(ctx context.Context, db DBTX, e BalanceEffect) error {
	switch {
	case e.Vault && e.Debit:
		return debitVault(ctx, db, e.EntityID, e.Currency, e.Amount)
	case e.Vault:
		return creditVault(ctx, db, e.EntityID, e.Currency, e.Amount)
	case e.Debit:
		return debitCounterparty(ctx, db, e.EntityID, e.Currency, e.Amount)
	default:
		return creditCounterparty(ctx, db, e.EntityID, e.Currency, e.Amount)
	}
}

const selectColumns = `
	SELECT id, reference_number, type, kind, amount, source_currency, destination_currency,
		exchange_rate, profit_loss, source_type, source_id, source_name,
		destination_type, destination_id, status, note,
		created_at, created_by, confirmed_at, confirmed_by,
		approved_at, approved_by, cancelled_at, cancelled_by
	FROM transactions`

func insertRecord(ctx context.Context, db DBTX, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, reference_number, type, kind, amount,
			source_currency, destination_currency, exchange_rate, profit_loss,
			source_type, source_id, source_name, destination_type, destination_id,
			status, note, created_at, created_by, confirmed_at, confirmed_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		t.ID, t.ReferenceNumber, string(t.Type), string(t.Kind), t.Amount.String(),
		string(t.SourceCurrency), string(t.DestCurrency), nullDecimal(t.Rate), nullDecimal(t.ProfitLoss),
		string(t.SourceType), t.SourceID, t.SourceName, string(t.DestType), t.DestID,
		string(t.Status), t.Note, t.CreatedAt, t.CreatedBy, nullTime(t.ConfirmedAt), nullUint(t.ConfirmedBy),
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return errs.ErrDuplicateReference
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	t := &models.Transaction{}
	var amount string
	var rate, profitLoss, sourceName, destType, note sql.NullString
	var destID sql.NullInt64
	var confirmedAt, approvedAt, cancelledAt sql.NullTime
	var confirmedBy, approvedBy, cancelledBy sql.NullInt64

	err := row.Scan(
		&t.ID, &t.ReferenceNumber, &t.Type, &t.Kind, &amount,
		&t.SourceCurrency, &t.DestCurrency, &rate, &profitLoss,
		&t.SourceType, &t.SourceID, &sourceName, &destType, &destID,
		&t.Status, &note,
		&t.CreatedAt, &t.CreatedBy, &confirmedAt, &confirmedBy,
		&approvedAt, &approvedBy, &cancelledAt, &cancelledBy,
	)
	if err == sql.ErrNoRows {
		return nil, errs.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	t.Amount = parseDecimal(amount)
	t.SourceName = sourceName.String
	t.DestType = models.PartyType(destType.String)
	t.DestID = uint64(destID.Int64)
	t.Note = note.String
	if rate.Valid {
		d := parseDecimal(rate.String)
		t.Rate = &d
	}
	if profitLoss.Valid {
		d := parseDecimal(profitLoss.String)
		t.ProfitLoss = &d
	}
	if confirmedAt.Valid {
		at := confirmedAt.Time
		t.ConfirmedAt = &at
	}
	if confirmedBy.Valid {
		by := uint64(confirmedBy.Int64)
		t.ConfirmedBy = &by
	}
	if approvedAt.Valid {
		at := approvedAt.Time
		t.ApprovedAt = &at
	}
	if approvedBy.Valid {
		by := uint64(approvedBy.Int64)
		t.ApprovedBy = &by
	}
	if cancelledAt.Valid {
		at := cancelledAt.Time
		t.CancelledAt = &at
	}
	if cancelledBy.Valid {
		by := uint64(cancelledBy.Int64)
		t.CancelledBy = &by
	}

	return t, nil
}

func nullDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullUint(u *uint64) interface{} {
	if u == nil {
		return nil
	}
	return *u
}
