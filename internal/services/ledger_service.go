package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joabank/backend/internal/models"
)

// LedgerService owns every balance mutation. Accounts are locked with
// SELECT ... FOR UPDATE inside the caller's transaction; a version column
// guards against lost updates through any path that skips the row lock.
type LedgerService struct {
	db *sql.DB
}

func NewLedgerService(db *sql.DB) *LedgerService {
	return &LedgerService{db: db}
}

const accountColumns = `id, name, balance, password, is_dormant, transfer_limit,
	payment_num, non_payment_num, start_date, end_date, term,
	deposit_account, withdraw_account, amount, bank_id, member_id, dummy_id,
	product_id, tax_type, version, created_at, updated_at`

func scanAccount(row *sql.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID, &account.Name, &account.Balance, &account.Password,
		&account.IsDormant, &account.TransferLimit, &account.PaymentNum,
		&account.NonPaymentNum, &account.StartDate, &account.EndDate,
		&account.Term, &account.DepositAccount, &account.WithdrawAccount,
		&account.Amount, &account.BankID, &account.MemberID, &account.DummyID,
		&account.ProductID, &account.TaxType, &account.Version,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// LockAccount loads an account for mutation, holding its row lock until the
// surrounding transaction ends.
func (s *LedgerService) LockAccount(tx *sql.Tx, accountID string) (*models.Account, error) {
	row := tx.QueryRow(`
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1 AND NOT is_deleted
		FOR UPDATE`, accountID)
	return scanAccount(row)
}

// LockAccountPair locks two accounts in a consistent order (lower id first)
// to prevent deadlocks between concurrent transfers crossing the same pair
// in opposite directions. Results are returned in the requested order.
func (s *LedgerService) LockAccountPair(tx *sql.Tx, firstID, secondID string) (*models.Account, *models.Account, error) {
	firstLock, secondLock := firstID, secondID
	if firstID > secondID {
		firstLock, secondLock = secondID, firstID
	}

	a, err := s.LockAccount(tx, firstLock)
	if err != nil {
		return nil, nil, err
	}

	b, err := s.LockAccount(tx, secondLock)
	if err != nil {
		return nil, nil, err
	}

	if firstLock != firstID {
		a, b = b, a
	}
	return a, b, nil
}

// GetAccount loads an account without locking it.
func (s *LedgerService) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1 AND NOT is_deleted`, accountID)
	return scanAccount(row)
}

// UpdateBalance persists a new balance for a locked account. The version
// check fails closed if the row changed underneath us.
func (s *LedgerService) UpdateBalance(tx *sql.Tx, account *models.Account, newBalance int64) error {
	result, err := tx.Exec(`
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		newBalance, time.Now(), account.ID, account.Version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("optimistic lock failed for account %s", account.ID)
	}

	account.Balance = newBalance
	account.Version++
	return nil
}

// RecordTransaction appends a transaction row inside the same database
// transaction as the balance change it evidences. The log stores exactly
// the fields given; amount validation is the engine's job.
func (s *LedgerService) RecordTransaction(tx *sql.Tx, record *models.Transaction) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := tx.Exec(`
		INSERT INTO transactions (id, amount, depositor_name, from_account, to_account, dummy_id, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID, record.Amount, record.DepositorName, record.FromAccount,
		record.ToAccount, record.DummyID, record.IsDeleted, record.CreatedAt, record.UpdatedAt)
	return err
}

const transactionColumns = `id, amount, depositor_name, from_account, to_account, dummy_id, is_deleted, created_at, updated_at`

func scanTransaction(scanner interface {
	Scan(dest ...any) error
}) (*models.Transaction, error) {
	var record models.Transaction
	err := scanner.Scan(
		&record.ID, &record.Amount, &record.DepositorName,
		&record.FromAccount, &record.ToAccount, &record.DummyID,
		&record.IsDeleted, &record.CreatedAt, &record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// LockTransaction loads a transaction row for in-place correction.
func (s *LedgerService) LockTransaction(tx *sql.Tx, id uuid.UUID) (*models.Transaction, error) {
	row := tx.QueryRow(`
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1 AND NOT is_deleted
		FOR UPDATE`, id)
	return scanTransaction(row)
}

// GetTransaction is the point lookup used by read paths.
func (s *LedgerService) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1 AND NOT is_deleted`, id)
	return scanTransaction(row)
}

// UpdateTransaction rewrites the mutable fields of a corrected transaction.
func (s *LedgerService) UpdateTransaction(tx *sql.Tx, record *models.Transaction) error {
	record.UpdatedAt = time.Now()
	_, err := tx.Exec(`
		UPDATE transactions
		SET amount = $1, depositor_name = $2, from_account = $3, to_account = $4, updated_at = $5
		WHERE id = $6`,
		record.Amount, record.DepositorName, record.FromAccount,
		record.ToAccount, record.UpdatedAt, record.ID)
	return err
}

// GetDummy resolves a synthetic counterparty reference.
func (s *LedgerService) GetDummy(tx *sql.Tx, id uuid.UUID) (*models.Dummy, error) {
	var dummy models.Dummy
	err := tx.QueryRow(`SELECT id, name, admin_id FROM dummies WHERE id = $1`, id).
		Scan(&dummy.ID, &dummy.Name, &dummy.AdminID)
	if err == sql.ErrNoRows {
		return nil, ErrDummyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dummy, nil
}
