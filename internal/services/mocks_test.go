package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

var testBankID = uuid.MustParse("11111111-1111-1111-1111-111111111111")

func testCtx() context.Context {
	return context.Background()
}

func newTestUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

var accountTestColumns = []string{
	"id", "name", "balance", "password", "is_dormant", "transfer_limit",
	"payment_num", "non_payment_num", "start_date", "end_date", "term",
	"deposit_account", "withdraw_account", "amount", "bank_id", "member_id",
	"dummy_id", "product_id", "tax_type", "version", "created_at", "updated_at",
}

func accountRowsWithAmount(id string, balance, installment int64, password string, version int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(accountTestColumns).AddRow(
		id, "HOLDER", balance, password, false, int64(0),
		0, 0, "01/01/2024", "01/01/2025", 12,
		"", "", installment, testBankID.String(), nil,
		nil, nil, "TAX", version, now, now,
	)
}

func accountRows(id string, balance int64, password string, version int) *sqlmock.Rows {
	return accountRowsWithAmount(id, balance, 0, password, version)
}

var transactionTestColumns = []string{
	"id", "amount", "depositor_name", "from_account", "to_account",
	"dummy_id", "is_deleted", "created_at", "updated_at",
}

func transactionRows(id uuid.UUID, amount int64, depositorName string, fromAccount, toAccount *string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(transactionTestColumns).AddRow(
		id.String(), amount, depositorName, fromAccount, toAccount,
		nil, false, now, now,
	)
}

// expectAuthority queues the API-key resolution and bank ownership lookups
// run by bank-authority validation, both resolving to the same admin.
func expectAuthority(mock sqlmock.Sqlmock, apiKey, adminID uuid.UUID) {
	mock.ExpectQuery("SELECT admin_id FROM api_keys").
		WithArgs(apiKey).
		WillReturnRows(sqlmock.NewRows([]string{"admin_id"}).AddRow(adminID.String()))
	mock.ExpectQuery("SELECT admin_id FROM banks").
		WithArgs(testBankID).
		WillReturnRows(sqlmock.NewRows([]string{"admin_id"}).AddRow(adminID.String()))
}
