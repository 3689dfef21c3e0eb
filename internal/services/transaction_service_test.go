package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func newTestEngine(t *testing.T) (*TransactionService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	ledger := NewLedgerService(db)
	auth := NewAuthService(db, nil)
	engine := NewTransactionService(db, ledger, auth, NewAuditLogger(), nil)
	return engine, mock, func() { db.Close() }
}

func TestTransactionService_Deposit(t *testing.T) {
	t.Run("credits the account and records the movement", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		apiKey := newTestUUID(t)
		adminID := newTestUUID(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs("1111-01-AAAAAAA").
			WillReturnRows(accountRows("1111-01-AAAAAAA", 2_000, "1234", 1))
		expectAuthority(mock, apiKey, adminID)
		mock.ExpectExec("UPDATE accounts").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(sqlmock.AnyArg(), int64(500), "DEPOSIT", nil, "1111-01-AAAAAAA",
				nil, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := engine.Deposit(testCtx(), apiKey, "1111-01-AAAAAAA", 500, "1234", nil, nil)
		assert.NoError(t, err)
		assert.Equal(t, int64(2_000), result.PreviousBalance)
		assert.Equal(t, int64(2_500), result.NewBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a non-positive amount before touching state", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		_, err := engine.Deposit(testCtx(), newTestUUID(t), "1111-01-AAAAAAA", 0, "1234", nil, nil)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong password aborts before any write", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		apiKey := newTestUUID(t)
		adminID := newTestUUID(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs("1111-01-AAAAAAA").
			WillReturnRows(accountRows("1111-01-AAAAAAA", 2_000, "1234", 1))
		expectAuthority(mock, apiKey, adminID)
		mock.ExpectRollback()

		_, err := engine.Deposit(testCtx(), apiKey, "1111-01-AAAAAAA", 500, "9999", nil, nil)
		assert.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("foreign bank is rejected", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		apiKey := newTestUUID(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs("1111-01-AAAAAAA").
			WillReturnRows(accountRows("1111-01-AAAAAAA", 2_000, "1234", 1))
		mock.ExpectQuery("SELECT admin_id FROM api_keys").
			WithArgs(apiKey).
			WillReturnRows(sqlmock.NewRows([]string{"admin_id"}).AddRow(newTestUUID(t).String()))
		mock.ExpectQuery("SELECT admin_id FROM banks").
			WithArgs(testBankID).
			WillReturnRows(sqlmock.NewRows([]string{"admin_id"}).AddRow(newTestUUID(t).String()))
		mock.ExpectRollback()

		_, err := engine.Deposit(testCtx(), apiKey, "1111-01-AAAAAAA", 500, "1234", nil, nil)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestTransactionService_Withdraw(t *testing.T) {
	t.Run("insufficient balance aborts before any write", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		apiKey := newTestUUID(t)
		adminID := newTestUUID(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs("1111-01-AAAAAAA").
			WillReturnRows(accountRows("1111-01-AAAAAAA", 100, "1234", 1))
		expectAuthority(mock, apiKey, adminID)
		mock.ExpectRollback()

		_, err := engine.Withdraw(testCtx(), apiKey, "1111-01-AAAAAAA", 500, "1234", nil)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("debits and records with only a from side", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		apiKey := newTestUUID(t)
		adminID := newTestUUID(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs("1111-01-AAAAAAA").
			WillReturnRows(accountRows("1111-01-AAAAAAA", 2_000, "1234", 1))
		expectAuthority(mock, apiKey, adminID)
		mock.ExpectExec("UPDATE accounts").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(sqlmock.AnyArg(), int64(500), "WITHDRAWAL", "1111-01-AAAAAAA", nil,
				nil, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := engine.Withdraw(testCtx(), apiKey, "1111-01-AAAAAAA", 500, "1234", nil)
		assert.NoError(t, err)
		assert.Equal(t, int64(1_500), result.NewBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionService_Transfer(t *testing.T) {
	t.Run("rejects a transfer onto the same account", func(t *testing.T) {
		engine, _, closeDB := newTestEngine(t)
		defer closeDB()

		_, err := engine.Transfer(testCtx(), newTestUUID(t), "1111-01-AAAAAAA", "1111-01-AAAAAAA",
			500, "1234", nil, nil)
		assert.ErrorIs(t, err, ErrSameAccount)
	})

	t.Run("conserves total balance across both accounts", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		apiKey := newTestUUID(t)
		adminID := newTestUUID(t)

		mock.ExpectBegin()
		// Source id sorts after destination, so the destination locks first.
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs("1111-01-AAAAAAA").
			WillReturnRows(accountRows("1111-01-AAAAAAA", 300, "pw", 1))
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs("2222-01-BBBBBBB").
			WillReturnRows(accountRows("2222-01-BBBBBBB", 1_000, "1234", 1))
		expectAuthority(mock, apiKey, adminID)
		mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(sqlmock.AnyArg(), int64(400), "HOLDER", "2222-01-BBBBBBB", "1111-01-AAAAAAA",
				nil, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := engine.Transfer(testCtx(), apiKey, "2222-01-BBBBBBB", "1111-01-AAAAAAA", 400, "1234", nil, nil)
		assert.NoError(t, err)
		assert.Equal(t, int64(600), result.From.NewBalance)
		assert.Equal(t, int64(700), result.To.NewBalance)
		assert.Equal(t,
			result.From.PreviousBalance+result.To.PreviousBalance,
			result.From.NewBalance+result.To.NewBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient source balance", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		apiKey := newTestUUID(t)
		adminID := newTestUUID(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs("1111-01-AAAAAAA").
			WillReturnRows(accountRows("1111-01-AAAAAAA", 300, "1234", 1))
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs("2222-01-BBBBBBB").
			WillReturnRows(accountRows("2222-01-BBBBBBB", 1_000, "pw", 1))
		expectAuthority(mock, apiKey, adminID)
		mock.ExpectRollback()

		_, err := engine.Transfer(testCtx(), apiKey, "1111-01-AAAAAAA", "2222-01-BBBBBBB", 5_000, "1234", nil, nil)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})
}

func TestTransactionService_OneWon(t *testing.T) {
	t.Run("probe credits exactly one unit with a word", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		apiKey := newTestUUID(t)
		adminID := newTestUUID(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs("1111-01-AAAAAAA").
			WillReturnRows(accountRows("1111-01-AAAAAAA", 2_000, "1234", 1))
		expectAuthority(mock, apiKey, adminID)
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(2_001), sqlmock.AnyArg(), "1111-01-AAAAAAA", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(sqlmock.AnyArg(), int64(1), sqlmock.AnyArg(), nil, "1111-01-AAAAAAA",
				nil, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := engine.OneWonProbe(testCtx(), apiKey, "1111-01-AAAAAAA")
		assert.NoError(t, err)
		assert.Contains(t, fourWords, result.Word)
		assert.NotEqual(t, result.TransactionID.String(), "")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("confirm with the wrong word fails", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		probeID := newTestUUID(t)
		to := "1111-01-AAAAAAA"
		mock.ExpectQuery("SELECT (.+) FROM transactions").
			WithArgs(probeID).
			WillReturnRows(transactionRows(probeID, 1, "MAPLE", nil, &to))

		err := engine.OneWonConfirm(testCtx(), probeID, "TIGER")
		assert.ErrorIs(t, err, ErrWordMismatch)
	})

	t.Run("confirm with the right word succeeds", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		probeID := newTestUUID(t)
		to := "1111-01-AAAAAAA"
		mock.ExpectQuery("SELECT (.+) FROM transactions").
			WithArgs(probeID).
			WillReturnRows(transactionRows(probeID, 1, "MAPLE", nil, &to))

		assert.NoError(t, engine.OneWonConfirm(testCtx(), probeID, "MAPLE"))
	})
}

func TestTransactionService_Refund(t *testing.T) {
	t.Run("rejects input that names no side of the original record", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		apiKey := newTestUUID(t)
		recordID := newTestUUID(t)
		to := "1111-01-AAAAAAA"
		newAmount := int64(900)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM transactions").
			WithArgs(recordID).
			WillReturnRows(transactionRows(recordID, 5_000, "DEPOSIT", nil, &to))
		mock.ExpectRollback()

		_, err := engine.Refund(testCtx(), apiKey, recordID, RefundInput{Amount: &newAmount})
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fails when the to side cannot give back the original amount", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		apiKey := newTestUUID(t)
		recordID := newTestUUID(t)
		to := "1111-01-AAAAAAA"

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM transactions").
			WithArgs(recordID).
			WillReturnRows(transactionRows(recordID, 5_000, "DEPOSIT", nil, &to))
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs(to).
			WillReturnRows(accountRows(to, 300, "pw", 1))
		expectAuthority(mock, apiKey, newTestUUID(t))
		mock.ExpectRollback()

		_, err := engine.Refund(testCtx(), apiKey, recordID, RefundInput{ToAccount: &to})
		assert.ErrorIs(t, err, ErrRefundUnavailable)
	})

	t.Run("requires a replacement amount after the reversal", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		apiKey := newTestUUID(t)
		adminID := newTestUUID(t)
		recordID := newTestUUID(t)
		to := "1111-01-AAAAAAA"

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM transactions").
			WithArgs(recordID).
			WillReturnRows(transactionRows(recordID, 500, "DEPOSIT", nil, &to))
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs(to).
			WillReturnRows(accountRows(to, 2_000, "pw", 1))
		expectAuthority(mock, apiKey, adminID)
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(1_500), sqlmock.AnyArg(), to, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		_, err := engine.Refund(testCtx(), apiKey, recordID, RefundInput{ToAccount: &to})
		assert.ErrorIs(t, err, ErrAmountRequired)
	})

	t.Run("reverses and rewrites the record", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		apiKey := newTestUUID(t)
		adminID := newTestUUID(t)
		recordID := newTestUUID(t)
		to := "1111-01-AAAAAAA"
		newAmount := int64(900)
		newName := "CORRECTED"

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM transactions").
			WithArgs(recordID).
			WillReturnRows(transactionRows(recordID, 500, "DEPOSIT", nil, &to))
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs(to).
			WillReturnRows(accountRows(to, 2_000, "pw", 1))
		expectAuthority(mock, apiKey, adminID)
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(1_500), sqlmock.AnyArg(), to, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE transactions").
			WithArgs(newAmount, newName, nil, to, sqlmock.AnyArg(), recordID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		record, err := engine.Refund(testCtx(), apiKey, recordID, RefundInput{
			Amount:        &newAmount,
			DepositorName: &newName,
			ToAccount:     &to,
		})
		assert.NoError(t, err)
		assert.Equal(t, newAmount, record.Amount)
		assert.Equal(t, newName, record.DepositorName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionService_Update(t *testing.T) {
	t.Run("requires an amount", func(t *testing.T) {
		engine, _, closeDB := newTestEngine(t)
		defer closeDB()

		_, err := engine.Update(testCtx(), newTestUUID(t), newTestUUID(t), UpdateInput{})
		assert.ErrorIs(t, err, ErrAmountRequired)
	})

	t.Run("deposit-style correction credits the to side", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		apiKey := newTestUUID(t)
		adminID := newTestUUID(t)
		recordID := newTestUUID(t)
		to := "1111-01-AAAAAAA"
		amount := int64(750)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM transactions").
			WithArgs(recordID).
			WillReturnRows(transactionRows(recordID, 500, "DEPOSIT", nil, &to))
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs(to).
			WillReturnRows(accountRows(to, 2_000, "pw", 1))
		expectAuthority(mock, apiKey, adminID)
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(2_750), sqlmock.AnyArg(), to, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE transactions").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		record, err := engine.Update(testCtx(), apiKey, recordID, UpdateInput{
			Amount:    &amount,
			ToAccount: &to,
		})
		assert.NoError(t, err)
		assert.Equal(t, amount, record.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionService_SettleInstallment(t *testing.T) {
	t.Run("debits the installment when the balance covers it", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs("1111-01-AAAAAAA").
			WillReturnRows(accountRowsWithAmount("1111-01-AAAAAAA", 50_000, 10_000, "pw", 1))
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(40_000), sqlmock.AnyArg(), "1111-01-AAAAAAA", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE accounts SET payment_num").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(sqlmock.AnyArg(), int64(10_000), "INSTALLMENT", nil, "1111-01-AAAAAAA",
				nil, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, engine.SettleInstallment(testCtx(), "1111-01-AAAAAAA"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips silently on shortfall and counts the miss", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs("1111-01-AAAAAAA").
			WillReturnRows(accountRowsWithAmount("1111-01-AAAAAAA", 3_000, 10_000, "pw", 1))
		mock.ExpectExec("UPDATE accounts SET non_payment_num").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, engine.SettleInstallment(testCtx(), "1111-01-AAAAAAA"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionService_DepositInterest(t *testing.T) {
	t.Run("zero interest is a no-op", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		assert.NoError(t, engine.DepositInterest(testCtx(), "1111-01-AAAAAAA", 0))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("credits and records interest", func(t *testing.T) {
		engine, mock, closeDB := newTestEngine(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs("1111-01-AAAAAAA").
			WillReturnRows(accountRows("1111-01-AAAAAAA", 1_000_000, "pw", 1))
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(1_000_082), sqlmock.AnyArg(), "1111-01-AAAAAAA", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(sqlmock.AnyArg(), int64(82), "INTEREST", nil, "1111-01-AAAAAAA",
				nil, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, engine.DepositInterest(testCtx(), "1111-01-AAAAAAA", 82))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
