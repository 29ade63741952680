package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amlakpro/settlement-service/internal/errs"
	"amlakpro/settlement-service/internal/models"
	"amlakpro/settlement-service/internal/repository"
)

func newTransferService(db *sql.DB) TransferService {
	return NewTransferService(
		repository.NewTransactionRepository(db),
		repository.NewVaultRepository(db),
		repository.NewCounterpartyRepository(db),
		NewRateService(repository.NewRateRepository(db)),
		testLogger,
		testMetrics,
	)
}

func vaultRows(id uint64, name string, isMain bool, aed, irr, cash string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "is_main", "aed", "irr", "cash", "created_at", "updated_at"}).
		AddRow(id, name, isMain, aed, irr, cash, time.Now(), time.Now())
}

func counterpartyRows(id uint64, name, role, mobile, aed, irr string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "role", "mobile", "aed", "irr", "created_at", "updated_at"}).
		AddRow(id, name, role, mobile, aed, irr, time.Now(), time.Now())
}

func rateRows(id uint64, buy, sell string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "buy_rate", "sell_rate", "created_at", "created_by"}).
		AddRow(id, buy, sell, time.Now(), 1)
}

func expectNoReference(mock sqlmock.Sqlmock, reference string) {
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM transactions`).
		WithArgs(reference).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
}

func TestTransferService_SubmitExchange_CashSource(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newTransferService(db)
	ctx := context.Background()

	t.Run("SettlesOnTheSpot", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, is_main, aed, irr, cash").
			WithArgs(uint64(2)).
			WillReturnRows(vaultRows(2, "branch", false, "1000", "0", "0"))
		expectNoReference(mock, "12345")
		mock.ExpectQuery("SELECT id, buy_rate, sell_rate").
			WillReturnRows(rateRows(1, "25000", "25500"))

		mock.ExpectBegin()
		// 50,000,000 toman at the 25000 buy side credits 2000 dirham.
		mock.ExpectExec(`UPDATE vaults SET aed = aed \+`).
			WithArgs("2000", sqlmock.AnyArg(), uint64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO transactions").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		record, err := service.SubmitExchange(ctx, ExchangeRequest{
			ReferenceNumber: "12345",
			Kind:            models.KindNormal,
			Amount:          decimal.NewFromInt(50000000),
			CashName:        "walk-in customer",
			DestVaultID:     2,
			ActorID:         1,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusConfirmed, record.Status)
		assert.Equal(t, models.PartyCash, record.SourceType)
		assert.Equal(t, "walk-in customer", record.SourceName)
		assert.NotNil(t, record.ConfirmedAt)
		require.NotNil(t, record.Rate)
		assert.True(t, record.Rate.Equal(decimal.NewFromInt(25000)))
	})

	t.Run("MissingCashName", func(t *testing.T) {
		_, err := service.SubmitExchange(ctx, ExchangeRequest{
			ReferenceNumber: "23456",
			Kind:            models.KindNormal,
			Amount:          decimal.NewFromInt(1000),
			DestVaultID:     2,
			ActorID:         1,
		})
		assert.ErrorIs(t, err, ErrMissingSourceName)
	})

	t.Run("MissingDestinationVault", func(t *testing.T) {
		_, err := service.SubmitExchange(ctx, ExchangeRequest{
			ReferenceNumber: "23456",
			Kind:            models.KindNormal,
			Amount:          decimal.NewFromInt(1000),
			CashName:        "walk-in",
			ActorID:         1,
		})
		assert.ErrorIs(t, err, errs.ErrMissingRequiredParty)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferService_SubmitExchange_ExistingCustomer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newTransferService(db)
	ctx := context.Background()

	t.Run("CreatedPendingWithProfitLoss", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, role, mobile, aed, irr").
			WithArgs(uint64(5)).
			WillReturnRows(counterpartyRows(5, "Akbari", "customer", "09121234567", "0", "0"))
		expectNoReference(mock, "34567")
		mock.ExpectQuery("SELECT id, buy_rate, sell_rate").
			WillReturnRows(rateRows(1, "25000", "25500"))

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO transactions").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		record, err := service.SubmitExchange(ctx, ExchangeRequest{
			ReferenceNumber: "34567",
			Kind:            models.KindNormal,
			Amount:          decimal.NewFromInt(51000000),
			CounterpartyID:  5,
			ActorID:         1,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, record.Status)
		assert.Equal(t, models.PartyCounterparty, record.SourceType)
		assert.Equal(t, uint64(5), record.SourceID)
		require.NotNil(t, record.ProfitLoss)
		// 51,000,000 is worth 2000 at the sell side and cost 2040 at the
		// buy side, a 40 dirham spread against the ledger.
		assert.True(t, record.ProfitLoss.Equal(decimal.NewFromInt(-40)), "got %s", record.ProfitLoss)
	})

	t.Run("SupplierRejected", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, role, mobile, aed, irr").
			WithArgs(uint64(9)).
			WillReturnRows(counterpartyRows(9, "Dubai LLC", "supplier", "", "0", "0"))

		_, err := service.SubmitExchange(ctx, ExchangeRequest{
			ReferenceNumber: "34568",
			Kind:            models.KindNormal,
			Amount:          decimal.NewFromInt(1000),
			CounterpartyID:  9,
			ActorID:         1,
		})
		assert.ErrorIs(t, err, errs.ErrSupplierHoldsNoBalance)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferService_SubmitExchange_Reverse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newTransferService(db)
	ctx := context.Background()

	t.Run("PendingAtSellRate", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, role, mobile, aed, irr").
			WithArgs(uint64(5)).
			WillReturnRows(counterpartyRows(5, "Akbari", "customer", "09121234567", "3000", "0"))
		mock.ExpectQuery("SELECT id, name, is_main, aed, irr, cash").
			WithArgs(uint64(1)).
			WillReturnRows(vaultRows(1, "main", true, "0", "0", "0"))
		expectNoReference(mock, "45678")
		mock.ExpectQuery("SELECT id, buy_rate, sell_rate").
			WillReturnRows(rateRows(1, "25000", "25500"))

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO transactions").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		record, err := service.SubmitExchange(ctx, ExchangeRequest{
			ReferenceNumber: "45678",
			Kind:            models.KindReverse,
			Amount:          decimal.NewFromInt(2000),
			CounterpartyID:  5,
			DestVaultID:     1,
			ActorID:         1,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, record.Status)
		assert.Equal(t, models.CurrencyAED, record.SourceCurrency)
		assert.Equal(t, models.CurrencyIRR, record.DestCurrency)
		assert.Equal(t, models.PartyVault, record.DestType)
		require.NotNil(t, record.Rate)
		assert.True(t, record.Rate.Equal(decimal.NewFromInt(25500)))
	})

	t.Run("MissingDestinationVault", func(t *testing.T) {
		_, err := service.SubmitExchange(ctx, ExchangeRequest{
			ReferenceNumber: "45679",
			Kind:            models.KindReverse,
			Amount:          decimal.NewFromInt(2000),
			CounterpartyID:  5,
			ActorID:         1,
		})
		assert.ErrorIs(t, err, errs.ErrMissingRequiredParty)
	})

	t.Run("DuplicateReference", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, role, mobile, aed, irr").
			WithArgs(uint64(5)).
			WillReturnRows(counterpartyRows(5, "Akbari", "customer", "09121234567", "3000", "0"))
		mock.ExpectQuery("SELECT id, name, is_main, aed, irr, cash").
			WithArgs(uint64(1)).
			WillReturnRows(vaultRows(1, "main", true, "0", "0", "0"))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM transactions`).
			WithArgs("45678").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		_, err := service.SubmitExchange(ctx, ExchangeRequest{
			ReferenceNumber: "45678",
			Kind:            models.KindReverse,
			Amount:          decimal.NewFromInt(2000),
			CounterpartyID:  5,
			DestVaultID:     1,
			ActorID:         1,
		})
		assert.ErrorIs(t, err, errs.ErrDuplicateReference)
	})

	t.Run("BadReferenceFormat", func(t *testing.T) {
		_, err := service.SubmitExchange(ctx, ExchangeRequest{
			ReferenceNumber: "123",
			Kind:            models.KindReverse,
			Amount:          decimal.NewFromInt(2000),
			CounterpartyID:  5,
			DestVaultID:     1,
			ActorID:         1,
		})
		assert.ErrorIs(t, err, errs.ErrInvalidReferenceFormat)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferService_SubmitCashMovement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newTransferService(db)
	ctx := context.Background()

	t.Run("DepositCreditsMainVaultCash", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, is_main, aed, irr, cash").
			WithArgs(uint64(1)).
			WillReturnRows(vaultRows(1, "main", true, "0", "0", "500"))
		expectNoReference(mock, "56789")

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE vaults SET cash = cash \+`).
			WithArgs("300", sqlmock.AnyArg(), uint64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO transactions").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		record, err := service.SubmitCashMovement(ctx, CashMovementRequest{
			ReferenceNumber: "56789",
			Direction:       models.TypeDeposit,
			Amount:          decimal.NewFromInt(300),
			VaultID:         1,
			ActorID:         1,
		})
		require.NoError(t, err)
		assert.Equal(t, models.KindCash, record.Kind)
		assert.Equal(t, models.StatusConfirmed, record.Status)
	})

	t.Run("WithdrawalDebitsConditionally", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, is_main, aed, irr, cash").
			WithArgs(uint64(1)).
			WillReturnRows(vaultRows(1, "main", true, "0", "0", "500"))
		expectNoReference(mock, "67890")

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE vaults SET cash = cash - `).
			WithArgs("200", sqlmock.AnyArg(), uint64(1), "200").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO transactions").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		record, err := service.SubmitCashMovement(ctx, CashMovementRequest{
			ReferenceNumber: "67890",
			Direction:       models.TypeWithdrawal,
			Amount:          decimal.NewFromInt(200),
			VaultID:         1,
			ActorID:         1,
		})
		require.NoError(t, err)
		assert.Equal(t, models.TypeWithdrawal, record.Type)
		assert.Equal(t, models.PartyVault, record.SourceType)
	})

	t.Run("NonMainVaultRejected", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, is_main, aed, irr, cash").
			WithArgs(uint64(2)).
			WillReturnRows(vaultRows(2, "branch", false, "0", "0", "0"))

		_, err := service.SubmitCashMovement(ctx, CashMovementRequest{
			ReferenceNumber: "67891",
			Direction:       models.TypeDeposit,
			Amount:          decimal.NewFromInt(100),
			VaultID:         2,
			ActorID:         1,
		})
		assert.ErrorIs(t, err, errs.ErrCashOnNonMainVault)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
