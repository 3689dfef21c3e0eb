package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/joabank/backend/internal/models"
)

func TestTermDepositInterest(t *testing.T) {
	t.Run("simple interest", func(t *testing.T) {
		result := TermDepositInterest(1_000_000, 3.0, 12, models.PaymentSimple)
		assert.Equal(t, int64(30_000), result.Interest)
		assert.Equal(t, int64(1_030_000), result.TotalAmount)
	})

	t.Run("simple interest truncates toward zero", func(t *testing.T) {
		// 100000 * (3.5/12/100) * 5 = 1458.33...
		result := TermDepositInterest(100_000, 3.5, 5, models.PaymentSimple)
		assert.Equal(t, int64(1_458), result.Interest)
		assert.Equal(t, int64(101_458), result.TotalAmount)
	})

	t.Run("compound interest", func(t *testing.T) {
		// 1000000 * 1.0025^12 = 1030415.9...
		result := TermDepositInterest(1_000_000, 3.0, 12, models.PaymentCompound)
		assert.Equal(t, int64(1_030_415), result.TotalAmount)
		assert.Equal(t, int64(30_415), result.Interest)
	})

	t.Run("zero term", func(t *testing.T) {
		result := TermDepositInterest(1_000_000, 3.0, 0, models.PaymentSimple)
		assert.Equal(t, int64(0), result.Interest)
		assert.Equal(t, int64(1_000_000), result.TotalAmount)
	})
}

func TestFixedDepositInterest(t *testing.T) {
	t.Run("simple interest", func(t *testing.T) {
		// 100000 * (3*4/2) * (3/12/100) = 1500
		result := FixedDepositInterest(100_000, 3.0, 3, models.PaymentSimple)
		assert.Equal(t, int64(1_500), result.Interest)
		assert.Equal(t, int64(301_500), result.TotalAmount)
	})

	t.Run("compound interest truncates each installment", func(t *testing.T) {
		// 100000*(1.01^2-1) = 2010, 100000*(1.01-1) = 1000
		result := FixedDepositInterest(100_000, 12.0, 2, models.PaymentCompound)
		assert.Equal(t, int64(3_010), result.Interest)
		assert.Equal(t, int64(203_010), result.TotalAmount)
	})
}

func TestPeriodicOrdinaryInterest(t *testing.T) {
	t.Run("one day of the annual rate", func(t *testing.T) {
		// 1000000 * 3.0/100/365 = 82.19...
		assert.Equal(t, int64(82), PeriodicOrdinaryInterest(1_000_000, 3.0))
	})

	t.Run("small balances truncate to zero", func(t *testing.T) {
		assert.Equal(t, int64(0), PeriodicOrdinaryInterest(100, 3.0))
	})

	t.Run("truncates the daily rate product, not the running quotient", func(t *testing.T) {
		// 3.65/100/365 lands just under 1e-4 in float64, so the daily
		// product is 99.99... and truncates to 99. Dividing the running
		// product left to right would give exactly 100.
		assert.Equal(t, int64(99), PeriodicOrdinaryInterest(1_000_000, 3.65))
	})
}

func TestRateService_CalculateRate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ledger := NewLedgerService(db)
	service := NewRateService(db, ledger)

	t.Run("term deposit product", func(t *testing.T) {
		accountID := "3333-01-1111111"
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs(accountID).
			WillReturnRows(accountRows(accountID, 0, "pw", 1))

		productID := newTestUUID(t)
		mock.ExpectQuery("SELECT (.+) FROM products").
			WithArgs(productID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "rate", "payment_type", "product_type", "bank_id"}).
				AddRow(productID.String(), "12-month term", 3.0, "SIMPLE", "TERM_DEPOSIT", newTestUUID(t).String()))

		result, err := service.CalculateRate(testCtx(), accountID, productID, 1_000_000, 12)
		assert.NoError(t, err)
		assert.Equal(t, int64(30_000), result.Interest)
		assert.Equal(t, int64(1_030_000), result.TotalAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ordinary product projects zero", func(t *testing.T) {
		accountID := "3333-01-1111111"
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs(accountID).
			WillReturnRows(accountRows(accountID, 0, "pw", 1))

		productID := newTestUUID(t)
		mock.ExpectQuery("SELECT (.+) FROM products").
			WithArgs(productID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "rate", "payment_type", "product_type", "bank_id"}).
				AddRow(productID.String(), "on-demand", 1.5, "SIMPLE", "ORDINARY_DEPOSIT", newTestUUID(t).String()))

		result, err := service.CalculateRate(testCtx(), accountID, productID, 500_000, 0)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), result.Interest)
		assert.Equal(t, int64(500_000), result.TotalAmount)
	})

	t.Run("unknown product", func(t *testing.T) {
		accountID := "3333-01-1111111"
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs(accountID).
			WillReturnRows(accountRows(accountID, 0, "pw", 1))

		productID := newTestUUID(t)
		mock.ExpectQuery("SELECT (.+) FROM products").
			WithArgs(productID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "rate", "payment_type", "product_type", "bank_id"}))

		_, err := service.CalculateRate(testCtx(), accountID, productID, 500_000, 12)
		assert.ErrorIs(t, err, ErrProductNotFound)
	})
}
