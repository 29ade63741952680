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

func newLifecycleService(db *sql.DB) LifecycleService {
	return NewLifecycleService(
		repository.NewTransactionRepository(db),
		repository.NewVaultRepository(db),
		NewRateService(repository.NewRateRepository(db)),
		testLogger,
		testMetrics,
	)
}

var transactionColumns = []string{
	"id", "reference_number", "type", "kind", "amount",
	"source_currency", "destination_currency", "exchange_rate", "profit_loss",
	"source_type", "source_id", "source_name", "destination_type", "destination_id",
	"status", "note", "created_at", "created_by",
	"confirmed_at", "confirmed_by", "approved_at", "approved_by", "cancelled_at", "cancelled_by",
}

type txFixture struct {
	id       string
	txType   models.TransactionType
	kind     models.TransactionKind
	amount   string
	fromCur  models.Currency
	toCur    models.Currency
	rate     string
	srcType  models.PartyType
	srcID    uint64
	destType models.PartyType
	destID   uint64
	status   models.Status
}

func transactionRows(f txFixture) *sqlmock.Rows {
	return sqlmock.NewRows(transactionColumns).AddRow(
		f.id, "12345", string(f.txType), string(f.kind), f.amount,
		string(f.fromCur), string(f.toCur), f.rate, nil,
		string(f.srcType), f.srcID, nil, string(f.destType), f.destID,
		string(f.status), nil, time.Now(), 1,
		nil, nil, nil, nil, nil, nil,
	)
}

func expectFindTransaction(mock sqlmock.Sqlmock, id string, rows *sqlmock.Rows) {
	mock.ExpectQuery("SELECT id, reference_number, type, kind, amount").
		WithArgs(id).
		WillReturnRows(rows)
}

func TestLifecycleService_Confirm(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newLifecycleService(db)
	ctx := context.Background()

	pendingNormal := txFixture{
		id:      "tx-1",
		txType:  models.TypeDeposit,
		kind:    models.KindNormal,
		amount:  "50000000",
		fromCur: models.CurrencyIRR,
		toCur:   models.CurrencyAED,
		rate:    "25000",
		srcType: models.PartyCounterparty,
		srcID:   5,
		status:  models.StatusPending,
	}

	t.Run("NormalCreditsCustomerOnConfirm", func(t *testing.T) {
		expectFindTransaction(mock, "tx-1", transactionRows(pendingNormal))

		mock.ExpectBegin()
		// 50,000,000 toman at the stored 25000 rate lands as 2000 dirham.
		mock.ExpectExec(`UPDATE counterparties SET aed = aed \+`).
			WithArgs("2000", sqlmock.AnyArg(), uint64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE transactions SET status").
			WithArgs("confirmed", sqlmock.AnyArg(), uint64(2), "tx-1", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		confirmed := pendingNormal
		confirmed.status = models.StatusConfirmed
		expectFindTransaction(mock, "tx-1", transactionRows(confirmed))

		record, err := service.Confirm(ctx, "tx-1", 2)
		require.NoError(t, err)
		assert.Equal(t, models.StatusConfirmed, record.Status)
	})

	t.Run("BankGoesInTransitWithoutEffects", func(t *testing.T) {
		pendingBank := pendingNormal
		pendingBank.id = "tx-2"
		pendingBank.txType = models.TypeTransfer
		pendingBank.kind = models.KindBank
		pendingBank.srcType = models.PartyVault
		pendingBank.srcID = 1
		pendingBank.destType = models.PartyCounterparty
		pendingBank.destID = 7
		expectFindTransaction(mock, "tx-2", transactionRows(pendingBank))

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE transactions SET status").
			WithArgs("in_transit", sqlmock.AnyArg(), uint64(2), "tx-2", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		inTransit := pendingBank
		inTransit.status = models.StatusInTransit
		expectFindTransaction(mock, "tx-2", transactionRows(inTransit))

		record, err := service.Confirm(ctx, "tx-2", 2)
		require.NoError(t, err)
		assert.Equal(t, models.StatusInTransit, record.Status)
	})

	t.Run("AlreadyConfirmedRejected", func(t *testing.T) {
		confirmed := pendingNormal
		confirmed.status = models.StatusConfirmed
		expectFindTransaction(mock, "tx-1", transactionRows(confirmed))

		_, err := service.Confirm(ctx, "tx-1", 2)
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	})

	t.Run("ConcurrentTransitionLosesGuard", func(t *testing.T) {
		expectFindTransaction(mock, "tx-1", transactionRows(pendingNormal))

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE counterparties SET aed = aed \+`).
			WithArgs("2000", sqlmock.AnyArg(), uint64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		// Another actor moved the record first, the guarded update hits
		// zero rows and the whole commit rolls back.
		mock.ExpectExec("UPDATE transactions SET status").
			WithArgs("confirmed", sqlmock.AnyArg(), uint64(2), "tx-1", "pending").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := service.Confirm(ctx, "tx-1", 2)
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleService_Cancel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newLifecycleService(db)
	ctx := context.Background()

	pendingBank := txFixture{
		id:       "tx-3",
		txType:   models.TypeTransfer,
		kind:     models.KindBank,
		amount:   "600",
		fromCur:  models.CurrencyIRR,
		toCur:    models.CurrencyAED,
		rate:     "25000",
		srcType:  models.PartyVault,
		srcID:    1,
		destType: models.PartyCounterparty,
		destID:   7,
		status:   models.StatusPending,
	}

	t.Run("PendingCancelsWithoutRefund", func(t *testing.T) {
		expectFindTransaction(mock, "tx-3", transactionRows(pendingBank))

		mock.ExpectBegin()
		// No balance effect: the vault debit taken at batch submission
		// stays where it is.
		mock.ExpectExec("UPDATE transactions SET status").
			WithArgs("cancelled", sqlmock.AnyArg(), uint64(2), "tx-3", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		cancelled := pendingBank
		cancelled.status = models.StatusCancelled
		expectFindTransaction(mock, "tx-3", transactionRows(cancelled))

		record, err := service.Cancel(ctx, "tx-3", 2)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, record.Status)
	})

	t.Run("DeliveredCannotCancel", func(t *testing.T) {
		delivered := pendingBank
		delivered.status = models.StatusDelivered
		expectFindTransaction(mock, "tx-3", transactionRows(delivered))

		_, err := service.Cancel(ctx, "tx-3", 2)
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleService_Deliver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newLifecycleService(db)
	ctx := context.Background()

	inTransit := txFixture{
		id:       "tx-4",
		txType:   models.TypeTransfer,
		kind:     models.KindBank,
		amount:   "50000000",
		fromCur:  models.CurrencyIRR,
		toCur:    models.CurrencyAED,
		rate:     "25000",
		srcType:  models.PartyVault,
		srcID:    2,
		destType: models.PartyCounterparty,
		destID:   7,
		status:   models.StatusInTransit,
	}

	t.Run("CreditsMainVaultAtStoredRate", func(t *testing.T) {
		expectFindTransaction(mock, "tx-4", transactionRows(inTransit))
		mock.ExpectQuery("SELECT id, name, is_main, aed, irr, cash").
			WillReturnRows(vaultRows(1, "main", true, "0", "0", "0"))

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE vaults SET aed = aed \+`).
			WithArgs("2000", sqlmock.AnyArg(), uint64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE transactions SET status").
			WithArgs("delivered", sqlmock.AnyArg(), uint64(2), "tx-4", "in_transit").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		delivered := inTransit
		delivered.status = models.StatusDelivered
		expectFindTransaction(mock, "tx-4", transactionRows(delivered))

		record, err := service.Deliver(ctx, "tx-4", 2)
		require.NoError(t, err)
		assert.Equal(t, models.StatusDelivered, record.Status)
	})

	t.Run("DeliverTwiceRejected", func(t *testing.T) {
		delivered := inTransit
		delivered.status = models.StatusDelivered
		expectFindTransaction(mock, "tx-4", transactionRows(delivered))

		_, err := service.Deliver(ctx, "tx-4", 2)
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleService_Approve(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := newLifecycleService(db)
	ctx := context.Background()

	confirmedNormal := txFixture{
		id:      "tx-5",
		txType:  models.TypeDeposit,
		kind:    models.KindNormal,
		amount:  "50000000",
		fromCur: models.CurrencyIRR,
		toCur:   models.CurrencyAED,
		rate:    "25000",
		srcType: models.PartyCounterparty,
		srcID:   5,
		status:  models.StatusConfirmed,
	}

	t.Run("MovesCustomerFundsToMainVault", func(t *testing.T) {
		expectFindTransaction(mock, "tx-5", transactionRows(confirmedNormal))
		mock.ExpectQuery("SELECT id, name, is_main, aed, irr, cash").
			WillReturnRows(vaultRows(1, "main", true, "0", "0", "0"))

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE counterparties SET aed = aed - ").
			WithArgs("2000", sqlmock.AnyArg(), uint64(5), "2000").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE vaults SET aed = aed \+`).
			WithArgs("2000", sqlmock.AnyArg(), uint64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE transactions SET status").
			WithArgs("approved", sqlmock.AnyArg(), uint64(2), "tx-5", "confirmed").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		approved := confirmedNormal
		approved.status = models.StatusApproved
		expectFindTransaction(mock, "tx-5", transactionRows(approved))

		record, err := service.Approve(ctx, "tx-5", 2)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, record.Status)
	})

	t.Run("CustomerBalanceShortFailsApproval", func(t *testing.T) {
		expectFindTransaction(mock, "tx-5", transactionRows(confirmedNormal))
		mock.ExpectQuery("SELECT id, name, is_main, aed, irr, cash").
			WillReturnRows(vaultRows(1, "main", true, "0", "0", "0"))

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE counterparties SET aed = aed - ").
			WithArgs("2000", sqlmock.AnyArg(), uint64(5), "2000").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT aed FROM counterparties").
			WithArgs(uint64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"aed"}).AddRow("1500"))
		mock.ExpectRollback()

		_, err := service.Approve(ctx, "tx-5", 2)
		var short *errs.InsufficientBalanceError
		require.ErrorAs(t, err, &short)
		assert.True(t, short.Shortfall.Equal(decimal.NewFromInt(500)))
	})

	t.Run("ReverseCannotApprove", func(t *testing.T) {
		reverse := confirmedNormal
		reverse.id = "tx-6"
		reverse.kind = models.KindReverse
		expectFindTransaction(mock, "tx-6", transactionRows(reverse))

		_, err := service.Approve(ctx, "tx-6", 2)
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
